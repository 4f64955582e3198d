// SPDX-License-Identifier: MPL-2.0

package descriptor

import (
	"fmt"
	"iter"
	"reflect"
	"slices"
	"sort"
	"strconv"

	"github.com/invowk/imagekit/pkg/cueutil"
)

type (
	// Descriptor is an ordered, validated document. Keys keep the order of the
	// source document (or insertion order for keys added later).
	Descriptor struct {
		kind   Kind
		keys   []string
		values map[string]any
		parent *Descriptor
		source string
	}

	// Field is a single key/value pair of an Ordered document.
	Field struct {
		Key   string
		Value any
	}

	// Ordered is a document whose key order must be preserved. Decoders that
	// know the source order (YAML) produce Ordered values; plain Go maps are
	// inserted in ascending key order instead.
	Ordered []Field

	// Option configures descriptor construction.
	Option func(*options)

	options struct {
		source string
		parent *Descriptor
	}
)

// WithSource records where the document came from (file path, "<inline>").
// The source is used in error messages only.
func WithSource(source string) Option {
	return func(o *options) {
		o.source = source
	}
}

// WithParent attaches the new descriptor to a parent descriptor.
func WithParent(parent *Descriptor) Option {
	return func(o *options) {
		o.parent = parent
	}
}

// New builds a descriptor of the given kind from a parsed document and
// validates it against the kind's schema.
//
// doc may be a map[string]any, a map[any]any with string keys, an Ordered
// document, or another *Descriptor (which is rebuilt with the new kind).
// Nested documents become child descriptors whose kind is taken from the
// parent kind's Schema.
func New(kind Kind, doc any, opts ...Option) (*Descriptor, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if err := kind.Validate(); err != nil {
		return nil, &SchemaError{Kind: kind, Source: o.source, Err: err}
	}

	d, err := build(kind, doc, o.source)
	if err != nil {
		return nil, &SchemaError{Kind: kind, Source: o.source, Err: err}
	}
	d.parent = o.parent

	if def := kind.Schema().Definition; def != "" {
		filename := o.source
		if filename == "" {
			filename = "<input>"
		}
		if err := schema.Validate(def, d.Map(), cueutil.WithFilename(filename)); err != nil {
			return nil, &SchemaError{Kind: kind, Source: o.source, Err: err}
		}
	}

	return d, nil
}

// MustNew is like New but panics on error. Intended for tests and fixed documents.
func MustNew(kind Kind, doc any, opts ...Option) *Descriptor {
	d, err := New(kind, doc, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// Kind returns the descriptor kind.
func (d *Descriptor) Kind() Kind { return d.kind }

// Source returns the origin recorded with WithSource, inherited by children.
func (d *Descriptor) Source() string { return d.source }

// Parent returns the descriptor containing d, or nil for a root descriptor.
func (d *Descriptor) Parent() *Descriptor { return d.parent }

// Len returns the number of keys.
func (d *Descriptor) Len() int { return len(d.keys) }

// Keys returns the keys in document order.
func (d *Descriptor) Keys() []string { return slices.Clone(d.keys) }

// Has reports whether key is present.
func (d *Descriptor) Has(key string) bool {
	_, ok := d.values[key]
	return ok
}

// Get returns the value stored under key.
func (d *Descriptor) Get(key string) (any, bool) {
	v, ok := d.values[key]
	return v, ok
}

// String returns the value of key when it is a string, and "" otherwise.
func (d *Descriptor) String(key string) string {
	s, _ := d.values[key].(string)
	return s
}

// Descriptor returns the nested descriptor stored under key, or nil.
func (d *Descriptor) Descriptor(key string) *Descriptor {
	child, _ := d.values[key].(*Descriptor)
	return child
}

// List returns the list stored under key, or nil.
func (d *Descriptor) List(key string) []any {
	list, _ := d.values[key].([]any)
	return list
}

// Text returns the scalar stored under key rendered as text. Numbers are
// formatted without exponent. Missing keys, null and non-scalar values yield "".
func (d *Descriptor) Text(key string) string {
	v := d.values[key]
	if !isScalar(v) {
		return ""
	}
	return formatScalar(v)
}

// Name returns the "name" field rendered as text.
func (d *Descriptor) Name() string { return d.Text(NameKey) }

// Set stores value under key, appending the key when it is new. The value
// is normalized like a document passed to New but is not validated.
func (d *Descriptor) Set(key string, value any) error {
	v, err := normalize(d.kind.Schema().ChildKind(key), value, d.source)
	if err != nil {
		return &SchemaError{Kind: d.kind, Source: d.source, Err: fmt.Errorf("%s: %w", key, err)}
	}
	d.put(key, adopt(v, d))
	return nil
}

// Delete removes key. Deleting a missing key is a no-op.
func (d *Descriptor) Delete(key string) {
	if _, ok := d.values[key]; !ok {
		return
	}
	delete(d.values, key)
	d.keys = slices.DeleteFunc(d.keys, func(k string) bool { return k == key })
}

// All iterates over the key/value pairs in document order.
func (d *Descriptor) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, k := range d.keys {
			if !yield(k, d.values[k]) {
				return
			}
		}
	}
}

// Clone returns a deep copy of d. The copy has no parent.
func (d *Descriptor) Clone() *Descriptor {
	if d == nil {
		return nil
	}
	c := &Descriptor{
		kind:   d.kind,
		keys:   slices.Clone(d.keys),
		values: make(map[string]any, len(d.values)),
		source: d.source,
	}
	for k, v := range d.values {
		c.values[k] = adopt(cloneValue(v), c)
	}
	return c
}

// Map returns the document as plain Go values: map[string]any, []any and
// scalars. The result shares nothing with d.
func (d *Descriptor) Map() map[string]any {
	m := make(map[string]any, len(d.keys))
	for _, k := range d.keys {
		m[k] = plain(d.values[k])
	}
	return m
}

// put stores an already normalized value.
func (d *Descriptor) put(key string, value any) {
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

func build(kind Kind, doc any, source string) (*Descriptor, error) {
	d := &Descriptor{kind: kind, values: map[string]any{}, source: source}
	s := kind.Schema()

	add := func(key string, value any) error {
		v, err := normalize(s.ChildKind(key), value, source)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		d.put(key, adopt(v, d))
		return nil
	}

	switch doc := doc.(type) {
	case nil:
	case *Descriptor:
		for _, k := range doc.keys {
			if err := add(k, doc.values[k]); err != nil {
				return nil, err
			}
		}
	case Ordered:
		for _, f := range doc {
			if err := add(f.Key, f.Value); err != nil {
				return nil, err
			}
		}
	case map[string]any:
		for _, k := range sortedKeys(doc) {
			if err := add(k, doc[k]); err != nil {
				return nil, err
			}
		}
	case map[any]any:
		m := make(map[string]any, len(doc))
		for k, v := range doc {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("key %v: keys must be strings, got %T", k, k)
			}
			m[ks] = v
		}
		for _, k := range sortedKeys(m) {
			if err := add(k, m[k]); err != nil {
				return nil, err
			}
		}
	default:
		rv := reflect.ValueOf(doc)
		if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("document must be a mapping, got %T", doc)
		}
		m := make(map[string]any, rv.Len())
		it := rv.MapRange()
		for it.Next() {
			m[it.Key().String()] = it.Value().Interface()
		}
		for _, k := range sortedKeys(m) {
			if err := add(k, m[k]); err != nil {
				return nil, err
			}
		}
	}

	return d, nil
}

// normalize converts a parsed value into the descriptor value model. Mappings
// become descriptors of the given kind; list elements share the kind.
func normalize(kind Kind, v any, source string) (any, error) {
	switch v := v.(type) {
	case nil, string, bool, int64, float64:
		return v, nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float32:
		return float64(v), nil
	case *Descriptor, Ordered, map[string]any, map[any]any:
		return build(kind, v, source)
	case []any:
		return normalizeList(kind, v, source)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		list := make([]any, rv.Len())
		for i := range list {
			list[i] = rv.Index(i).Interface()
		}
		return normalizeList(kind, list, source)
	case reflect.Map:
		return build(kind, v, source)
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func normalizeList(kind Kind, list []any, source string) ([]any, error) {
	out := make([]any, len(list))
	for i, elem := range list {
		v, err := normalize(kind, elem, source)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// adopt points descriptor values (and descriptor list elements) at parent.
func adopt(v any, parent *Descriptor) any {
	switch v := v.(type) {
	case *Descriptor:
		v.parent = parent
	case []any:
		for _, elem := range v {
			if d, ok := elem.(*Descriptor); ok {
				d.parent = parent
			}
		}
	}
	return v
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case *Descriptor:
		return v.Clone()
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = cloneValue(elem)
		}
		return out
	default:
		return v
	}
}

func plain(v any) any {
	switch v := v.(type) {
	case *Descriptor:
		return v.Map()
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = plain(elem)
		}
		return out
	default:
		return v
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatScalar(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
