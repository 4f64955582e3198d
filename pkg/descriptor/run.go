// SPDX-License-Identifier: MPL-2.0

package descriptor

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// runFields are the Run fields merged individually.
var runFields = []string{"user", "cmd", "entrypoint", "workdir"}

// Run is a typed view over a Run descriptor (the container runtime section).
type Run struct {
	d *Descriptor
}

// NewRun builds a validated Run descriptor.
func NewRun(doc any, opts ...Option) (*Run, error) {
	d, err := New(KindRun, doc, opts...)
	if err != nil {
		return nil, err
	}
	return &Run{d: d}, nil
}

// AsRun returns the Run view of d when d is a Run descriptor.
func AsRun(d *Descriptor) (*Run, bool) {
	if d == nil || d.kind != KindRun {
		return nil, false
	}
	return &Run{d: d}, true
}

// Descriptor returns the underlying descriptor.
func (r *Run) Descriptor() *Descriptor { return r.d }

// Merge fills every empty field of r from other and returns r.
// A field is empty when it is missing, null, "" or an empty list; lists are
// replaced as a whole, never combined.
func (r *Run) Merge(other *Run) *Run {
	if other != nil {
		mergeRun(r.d, other.d)
	}
	return r
}

// User returns the configured user. Numeric UIDs are rendered as text.
func (r *Run) User() string {
	v, _ := r.d.Get("user")
	return formatScalar(v)
}

// Workdir returns the working directory.
func (r *Run) Workdir() string { return r.d.String("workdir") }

// Cmd returns the command arguments.
func (r *Run) Cmd() []string { return stringList(r.d.List("cmd")) }

// Entrypoint returns the entrypoint arguments.
func (r *Run) Entrypoint() []string { return stringList(r.d.List("entrypoint")) }

// CommandLine renders entrypoint followed by cmd as a single shell-quoted
// command line, e.g. `/bin/sh -c 'echo hello'`.
func (r *Run) CommandLine() (string, error) {
	args := append(r.Entrypoint(), r.Cmd()...)
	quoted := make([]string, 0, len(args))
	for _, arg := range args {
		q, err := syntax.Quote(arg, syntax.LangBash)
		if err != nil {
			return "", err
		}
		quoted = append(quoted, q)
	}
	return strings.Join(quoted, " "), nil
}

func mergeRun(target, source *Descriptor) {
	for _, field := range runFields {
		if !isEmpty(target.values[field]) {
			continue
		}
		sv, ok := source.values[field]
		if !ok || isEmpty(sv) {
			continue
		}
		target.put(field, adopt(cloneValue(sv), target))
	}
}

func isEmpty(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case *Descriptor:
		return v.Len() == 0
	default:
		return false
	}
}

func stringList(list []any) []string {
	if list == nil {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		out = append(out, formatScalar(v))
	}
	return out
}
