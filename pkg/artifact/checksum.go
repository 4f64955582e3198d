// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"encoding/hex"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/invowk/imagekit/pkg/descriptor"
)

// checksumAlgorithms lists the supported algorithms in order of preference.
var checksumAlgorithms = []string{"md5", "sha1", "sha256", "sha512"}

// Checksum is an artifact checksum with its algorithm.
type Checksum struct {
	Algorithm string
	Value     string
}

// String returns "algorithm:value".
func (c Checksum) String() string { return c.Algorithm + ":" + c.Value }

// Digest returns the OCI digest form of sha256 and sha512 checksums, and ""
// for the other algorithms.
func (c Checksum) Digest() digest.Digest {
	switch c.Algorithm {
	case "sha256":
		return digest.NewDigestFromEncoded(digest.SHA256, c.Value)
	case "sha512":
		return digest.NewDigestFromEncoded(digest.SHA512, c.Value)
	default:
		return ""
	}
}

// Validate checks the checksum encoding for its algorithm.
func (c Checksum) Validate() error {
	switch c.Algorithm {
	case "sha256", "sha512":
		if err := c.Digest().Validate(); err != nil {
			return &InvalidChecksumError{Algorithm: c.Algorithm, Value: c.Value, Reason: err.Error()}
		}
		return nil
	case "md5", "sha1":
		size := 16
		if c.Algorithm == "sha1" {
			size = 20
		}
		raw, err := hex.DecodeString(c.Value)
		if err != nil || len(raw) != size {
			return &InvalidChecksumError{Algorithm: c.Algorithm, Value: c.Value, Reason: "not a hex encoded digest of the expected length"}
		}
		return nil
	default:
		return &InvalidChecksumError{Algorithm: c.Algorithm, Value: c.Value, Reason: "unsupported algorithm"}
	}
}

// PreferredChecksum returns the preferred checksum (md5, then sha1, sha256,
// sha512) declared by an artifact descriptor. Values are lowercased.
func PreferredChecksum(d *descriptor.Descriptor) (Checksum, error) {
	for _, alg := range checksumAlgorithms {
		v := d.String(alg)
		if v == "" {
			continue
		}
		c := Checksum{Algorithm: alg, Value: strings.ToLower(v)}
		if err := c.Validate(); err != nil {
			return Checksum{}, err
		}
		return c, nil
	}
	return Checksum{}, &InvalidChecksumError{Reason: "artifact " + d.Name() + " declares no checksum"}
}
