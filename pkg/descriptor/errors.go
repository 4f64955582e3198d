// SPDX-License-Identifier: MPL-2.0

package descriptor

import (
	"errors"
	"fmt"
)

var (
	// ErrSchema is the sentinel error wrapped by SchemaError.
	ErrSchema = errors.New("descriptor does not match its schema")

	// ErrMerge is the sentinel error wrapped by MergeError.
	ErrMerge = errors.New("descriptor merge failed")
)

type (
	// SchemaError is returned when a document does not satisfy the schema of
	// the requested kind, or cannot be represented as a descriptor at all.
	SchemaError struct {
		Kind   Kind
		Source string
		Err    error
	}

	// MergeError is returned when two values cannot be merged.
	MergeError struct {
		// Path is the dotted key path where the merge failed (empty at the top level).
		Path   string
		Reason string
	}
)

// Error implements the error interface.
func (e *SchemaError) Error() string {
	src := e.Source
	if src == "" {
		src = "<input>"
	}
	return fmt.Sprintf("invalid %s descriptor %s: %v", e.Kind, src, e.Err)
}

// Unwrap returns ErrSchema and the underlying validation error, so both
// errors.Is(err, ErrSchema) and errors.As(err, *cueutil.ValidationError) work.
func (e *SchemaError) Unwrap() []error { return []error{ErrSchema, e.Err} }

// Error implements the error interface.
func (e *MergeError) Error() string {
	if e.Path == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// Unwrap returns ErrMerge for errors.Is() compatibility.
func (e *MergeError) Unwrap() error { return ErrMerge }

// prefixed returns a copy of err with key prepended to its path when err is a
// MergeError; other errors are returned unchanged.
func prefixed(key string, err error) error {
	var me *MergeError
	if !errors.As(err, &me) {
		return err
	}
	path := key
	if me.Path != "" {
		path = key + "." + me.Path
	}
	return &MergeError{Path: path, Reason: me.Reason}
}
