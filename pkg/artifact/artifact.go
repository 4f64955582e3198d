// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

const (
	// BuildBuilding is a build still in progress.
	BuildBuilding BuildState = 0
	// BuildComplete is the only state whose archives can be downloaded.
	BuildComplete BuildState = 1
	// BuildDeleted is a build whose files were removed.
	BuildDeleted BuildState = 2
	// BuildFailed is a failed build.
	BuildFailed BuildState = 3
	// BuildCanceled is a canceled build.
	BuildCanceled BuildState = 4

	urlTemplate = "http://%s/brewroot/packages/%s/%s/%s/maven/%s/%s/%s/%s"
)

type (
	// BuildID identifies a build. Metadata services report it either as a
	// number or as a string; both decode into a BuildID.
	BuildID string

	// BuildState is the numeric state code of a build.
	BuildState int

	// Archive is a file produced by a build, as returned by listArchives.
	Archive struct {
		BuildID    BuildID `json:"build_id"`
		Filename   string  `json:"filename"`
		GroupID    string  `json:"group_id"`
		ArtifactID string  `json:"artifact_id"`
		Version    string  `json:"version"`
		Checksum   string  `json:"checksum,omitempty"`
	}

	// Build is the build information returned by getBuild.
	Build struct {
		PackageName string     `json:"package_name"`
		Release     string     `json:"release"`
		State       BuildState `json:"state"`
	}

	// MetadataService is the build metadata backend queried by a Resolver.
	MetadataService interface {
		// ListArchives returns the Maven archives whose checksum matches.
		ListArchives(ctx context.Context, checksum string) ([]Archive, error)
		// GetBuild returns the build that produced an archive.
		GetBuild(ctx context.Context, id BuildID) (*Build, error)
	}

	// Metadata is the resolved metadata of one artifact. It is computed fresh
	// for every lookup and never stored.
	Metadata struct {
		Checksum    string
		BuildID     BuildID
		Filename    string
		GroupID     string
		ArtifactID  string
		Version     string
		PackageName string
		Release     string
		State       BuildState
	}
)

// UnmarshalJSON accepts a JSON number or string.
func (id *BuildID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = BuildID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("build_id must be a number or a string: %w", err)
	}
	*id = BuildID(n.String())
	return nil
}

// String returns the build id.
func (id BuildID) String() string { return string(id) }

// String returns the state label used by the build system (e.g. "DELETED").
func (s BuildState) String() string {
	switch s {
	case BuildBuilding:
		return "BUILDING"
	case BuildComplete:
		return "COMPLETE"
	case BuildDeleted:
		return "DELETED"
	case BuildFailed:
		return "FAILED"
	case BuildCanceled:
		return "CANCELED"
	default:
		return "UNKNOWN(" + strconv.Itoa(int(s)) + ")"
	}
}

// Available reports whether archives of a build in this state can be downloaded.
func (s BuildState) Available() bool { return s == BuildComplete }

// URL returns the canonical download URL of the artifact on host.
func (m *Metadata) URL(host string) string {
	return fmt.Sprintf(urlTemplate,
		host, m.PackageName, m.Version, m.Release,
		m.GroupID, m.ArtifactID, m.Version, m.Filename)
}
