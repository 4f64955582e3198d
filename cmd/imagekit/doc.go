// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for imagekit.
//
// The command tree is built per invocation by NewRootCommand around an App,
// which carries the configuration provider and the metadata client factory.
// Main runs the tree through fang and maps errors to exit codes.
package cmd
