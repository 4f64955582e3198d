// SPDX-License-Identifier: MPL-2.0

// Package modules discovers module descriptors in module repositories and
// resolves the modules an image installs, including their dependencies.
//
// A repository is either a local directory or a git repository cloned into a
// cache directory. Every module.yaml (or module.yml) below a repository root
// defines one module, identified by its name and optional version.
package modules
