// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared CUE validation utilities.
//
// The package consolidates the 3-step CUE flow used by the descriptor, loader,
// and config packages:
//
//  1. Compile the embedded schema
//  2. Compile (or encode) the user document and unify it with a definition
//  3. Validate and decode
//
// # Usage
//
//	//go:embed schema.cue
//	var schemaSource string
//
//	schema, err := cueutil.NewSchema(schemaSource)
//	if err != nil {
//	    return err
//	}
//	if err := schema.Validate("#Image", doc, cueutil.WithFilename("image.yaml")); err != nil {
//	    return err // *ValidationError with the CUE path of the offending field
//	}
package cueutil
