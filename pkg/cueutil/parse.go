// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Schema is a compiled CUE schema whose definitions validate documents that
// were already parsed into Go values (maps, slices, scalars).
//
// A Schema is safe for concurrent use; validations are serialized because the
// underlying cue.Context is not.
type Schema struct {
	mu   sync.Mutex
	ctx  *cue.Context
	root cue.Value
}

// NewSchema compiles the schema source. A compile failure is an internal error:
// schemas are embedded into the binary and never come from users.
func NewSchema(source string) (*Schema, error) {
	ctx := cuecontext.New()

	root := ctx.CompileString(source)
	if root.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile schema: %w", root.Err())
	}

	return &Schema{ctx: ctx, root: root}, nil
}

// MustSchema is like NewSchema but panics on error. Intended for package-level
// variables initialized from embedded schema files.
func MustSchema(source string) *Schema {
	s, err := NewSchema(source)
	if err != nil {
		panic(err)
	}
	return s
}

// HasDefinition reports whether the schema declares the given definition path.
func (s *Schema) HasDefinition(definition string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.root.LookupPath(cue.ParsePath(definition)).Exists()
}

// Validate performs the 3-step flow against a Go document:
//
//  1. Look up the definition in the compiled schema
//  2. Encode the document and unify it with the definition
//  3. Validate (concrete by default)
//
// Returns a *ValidationError carrying the JSON path of the first offending field.
func (s *Schema) Validate(definition string, doc any, opts ...Option) error {
	options := applyOptions(opts)

	s.mu.Lock()
	defer s.mu.Unlock()

	def := s.root.LookupPath(cue.ParsePath(definition))
	if def.Err() != nil {
		return fmt.Errorf("internal error: schema definition %s not found: %w", definition, def.Err())
	}

	userValue := s.ctx.Encode(doc)
	if userValue.Err() != nil {
		return FormatError(userValue.Err(), options.filename)
	}

	unified := def.Unify(userValue)
	if err := unified.Validate(cue.Concrete(options.concrete)); err != nil {
		return FormatError(err, options.filename)
	}

	return nil
}

// Decode compiles CUE source data and decodes it into a plain document tree.
// It is used to read descriptor documents authored in CUE; schema validation
// happens later on the decoded value, like for every other input format.
func Decode(data []byte, opts ...Option) (map[string]any, error) {
	options := applyOptions(opts)

	if err := CheckFileSize(data, options.maxFileSize, options.filename); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()

	value := ctx.CompileBytes(data, cue.Filename(options.filename))
	if value.Err() != nil {
		return nil, FormatError(value.Err(), options.filename)
	}

	if err := value.Validate(cue.Concrete(options.concrete)); err != nil {
		return nil, FormatError(err, options.filename)
	}

	var doc map[string]any
	if err := value.Decode(&doc); err != nil {
		return nil, FormatError(err, options.filename)
	}

	return doc, nil
}
