// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"errors"
	"fmt"
)

var (
	// ErrArtifactNotFound is the sentinel error wrapped by ArtifactNotFoundError.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrArtifactUnavailable is the sentinel error wrapped by ArtifactUnavailableError.
	ErrArtifactUnavailable = errors.New("artifact not available")

	// ErrInvalidChecksum is the sentinel error wrapped by InvalidChecksumError.
	ErrInvalidChecksum = errors.New("invalid checksum")
)

type (
	// ArtifactNotFoundError is returned when no archive matches a checksum.
	ArtifactNotFoundError struct {
		Checksum string
	}

	// ArtifactUnavailableError is returned when the archive exists but its build
	// is not in the COMPLETE state.
	ArtifactUnavailableError struct {
		Checksum string
		State    BuildState
	}

	// InvalidChecksumError is returned for malformed artifact checksums.
	InvalidChecksumError struct {
		Algorithm string
		Value     string
		Reason    string
	}
)

// Error implements the error interface.
func (e *ArtifactNotFoundError) Error() string {
	return fmt.Sprintf("artifact with checksum %s not found in Koji metadata", e.Checksum)
}

// Unwrap returns ErrArtifactNotFound for errors.Is() compatibility.
func (e *ArtifactNotFoundError) Unwrap() error { return ErrArtifactNotFound }

// Error implements the error interface.
func (e *ArtifactUnavailableError) Error() string {
	return fmt.Sprintf("artifact with checksum %s was found in Koji metadata but the build is in incorrect state (%s) "+
		"making the artifact not available for downloading anymore", e.Checksum, e.State)
}

// Unwrap returns ErrArtifactUnavailable for errors.Is() compatibility.
func (e *ArtifactUnavailableError) Unwrap() error { return ErrArtifactUnavailable }

// Error implements the error interface.
func (e *InvalidChecksumError) Error() string {
	if e.Algorithm == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s checksum %q: %s", e.Algorithm, e.Value, e.Reason)
}

// Unwrap returns ErrInvalidChecksum for errors.Is() compatibility.
func (e *InvalidChecksumError) Unwrap() error { return ErrInvalidChecksum }
