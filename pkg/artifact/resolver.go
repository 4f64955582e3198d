// SPDX-License-Identifier: MPL-2.0

package artifact

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// DefaultHost is the download host used when none is configured.
const DefaultHost = "download.devel.redhat.com"

type (
	// Resolver turns artifact checksums into download URLs.
	// A Resolver holds no mutable state and is safe for concurrent use.
	Resolver struct {
		service MetadataService
		host    string
		logger  *slog.Logger
	}

	// ResolverOption configures a Resolver.
	ResolverOption func(*Resolver)
)

// WithHost sets the download host used in resolved URLs.
func WithHost(host string) ResolverOption {
	return func(r *Resolver) {
		if host != "" {
			r.host = host
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a Resolver backed by service.
func NewResolver(service MetadataService, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		service: service,
		host:    DefaultHost,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Host returns the download host.
func (r *Resolver) Host() string { return r.host }

// Lookup fetches the metadata of the artifact with the given checksum and
// verifies that it can still be downloaded.
func (r *Resolver) Lookup(ctx context.Context, checksum string) (*Metadata, error) {
	archives, err := r.service.ListArchives(ctx, checksum)
	if err != nil {
		return nil, fmt.Errorf("failed to list archives for checksum %s: %w", checksum, err)
	}

	archive, ok := selectArchive(archives, checksum)
	if !ok {
		return nil, &ArtifactNotFoundError{Checksum: checksum}
	}
	r.logger.Debug("found archive", "checksum", checksum, "build", archive.BuildID, "filename", archive.Filename)

	build, err := r.service.GetBuild(ctx, archive.BuildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get build %s for checksum %s: %w", archive.BuildID, checksum, err)
	}
	if !build.State.Available() {
		return nil, &ArtifactUnavailableError{Checksum: checksum, State: build.State}
	}

	return &Metadata{
		Checksum:    checksum,
		BuildID:     archive.BuildID,
		Filename:    archive.Filename,
		GroupID:     archive.GroupID,
		ArtifactID:  archive.ArtifactID,
		Version:     archive.Version,
		PackageName: build.PackageName,
		Release:     build.Release,
		State:       build.State,
	}, nil
}

// ResolveURL returns the download URL of the artifact with the given checksum.
func (r *Resolver) ResolveURL(ctx context.Context, checksum string) (string, error) {
	md, err := r.Lookup(ctx, checksum)
	if err != nil {
		return "", err
	}
	url := md.URL(r.host)
	r.logger.Debug("resolved artifact url", "checksum", checksum, "url", url)
	return url, nil
}

// selectArchive picks the archive carrying the checksum. Archives without a
// checksum were already filtered by the service and match as well.
func selectArchive(archives []Archive, checksum string) (Archive, bool) {
	for _, a := range archives {
		if a.Checksum == "" || strings.EqualFold(a.Checksum, checksum) {
			return a, true
		}
	}
	return Archive{}, false
}
