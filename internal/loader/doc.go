// SPDX-License-Identifier: MPL-2.0

// Package loader reads descriptor documents from files or inline arguments
// and builds validated descriptors from them.
//
// Supported formats are YAML (.yaml, .yml), JSON with comments and trailing
// commas (.json), TOML (.toml) and CUE (.cue). YAML and JSON keep the key
// order of the source document; TOML and CUE documents are ordered by key.
package loader
