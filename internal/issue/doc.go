// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and fix
// suggestions. It can link to a catalog entry, a markdown page rendered with
// glamour that explains a whole failure kind (invalid descriptors, missing
// modules, unavailable artifacts).
package issue
