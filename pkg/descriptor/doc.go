// SPDX-License-Identifier: MPL-2.0

// Package descriptor implements validated, ordered configuration documents and
// the hierarchical merge engine that folds them into one effective document.
//
// # Descriptors
//
// A [Descriptor] wraps a parsed document (mapping from string key to value). A value
// is a scalar (string, int64, float64, bool, nil), an ordered list ([]any), or a
// nested *Descriptor. Every descriptor carries a [Kind]; the kind selects the CUE
// definition in the embedded schema.cue used to validate the document when it is
// constructed with [New]. Unknown keys fail construction with a [SchemaError].
//
// # Merging
//
// [Merge] folds a source descriptor into a target descriptor in place:
//   - keys missing from the target are deep-copied from the source
//   - nested descriptors are merged recursively
//   - lists are merged with [MergeLists]: scalars become a sorted union,
//     descriptors are joined on their "name" field
//   - scalar conflicts keep the target value
//   - "description" never flows from source to target unless one side is an
//     Overrides document
//
// Run sections ([Run]) merge field by field: the target keeps any non-empty
// user, cmd, entrypoint, or workdir and adopts the source value otherwise.
//
// Merging never locks. Callers must not merge concurrently into the same target.
package descriptor
