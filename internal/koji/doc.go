// SPDX-License-Identifier: MPL-2.0

// Package koji queries Koji (or Brew) build metadata through the command line
// client. The Client implements artifact.MetadataService by running
//
//	<binary> call --json-output listArchives checksum=<checksum> type=maven
//	<binary> call --json-output getBuild <build_id>
//
// The client output is not strict JSON (it may contain trailing commas), so it
// is normalized with tidwall/jsonc before decoding.
package koji
