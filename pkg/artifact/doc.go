// SPDX-License-Identifier: MPL-2.0

// Package artifact resolves artifact checksums to canonical download URLs
// using build metadata (archives and builds) from a metadata service.
//
// A lookup performs exactly two sequential calls to the [MetadataService]:
// listArchives for the checksum, then getBuild for the archive's build. The
// build must be COMPLETE; any other state fails with [ArtifactUnavailableError].
// There is no caching and no retry. The caller's context is the only deadline.
package artifact
