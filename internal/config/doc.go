// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from $XDG_CONFIG_HOME/imagekit/config.cue (~/.config on Linux,
// ~/Library/Application Support on macOS, %APPDATA% on Windows) or from an explicit file.
// Every key can be overridden from the environment with the IMAGEKIT_ prefix, using
// underscores for nesting (IMAGEKIT_DOWNLOAD_HOST, IMAGEKIT_LOG_LEVEL).
//
// Files are validated against the embedded CUE schema (config_schema.cue) before they
// are merged over the defaults.
package config
