// SPDX-License-Identifier: MPL-2.0

package descriptor

import (
	"cmp"
	"strconv"
)

// Equal reports whether two descriptors hold the same document. Key order
// and kind are ignored; numbers compare by value (1 equals 1.0).
func (d *Descriptor) Equal(other *Descriptor) bool {
	if d == nil || other == nil {
		return d == other
	}
	if len(d.values) != len(other.values) {
		return false
	}
	for k, v := range d.values {
		ov, ok := other.values[k]
		if !ok || !equalValues(v, ov) {
			return false
		}
	}
	return true
}

func equalValues(a, b any) bool {
	switch a := a.(type) {
	case *Descriptor:
		b, ok := b.(*Descriptor)
		return ok && a.Equal(b)
	case []any:
		b, ok := b.([]any)
		if !ok || len(a) != len(b) {
			return false
		}
		for i := range a {
			if !equalValues(a[i], b[i]) {
				return false
			}
		}
		return true
	}
	if !isScalar(b) {
		return false
	}
	return compareScalars(a, b) == 0
}

func isScalar(v any) bool {
	switch v.(type) {
	case *Descriptor, []any:
		return false
	}
	return true
}

// scalarRank orders scalar types: nil < bool < number < string < anything else.
func scalarRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case int64, float64:
		return 2
	case string:
		return 3
	default:
		return 4
	}
}

// compareScalars is the total order used to sort scalar lists.
func compareScalars(a, b any) int {
	if c := cmp.Compare(scalarRank(a), scalarRank(b)); c != 0 {
		return c
	}
	switch a := a.(type) {
	case nil:
		return 0
	case bool:
		b := b.(bool)
		switch {
		case a == b:
			return 0
		case !a:
			return -1
		default:
			return 1
		}
	case int64:
		if b, ok := b.(int64); ok {
			return cmp.Compare(a, b)
		}
		return cmp.Compare(float64(a), b.(float64))
	case float64:
		if b, ok := b.(int64); ok {
			return cmp.Compare(a, float64(b))
		}
		return cmp.Compare(a, b.(float64))
	case string:
		return cmp.Compare(a, b.(string))
	default:
		return cmp.Compare(formatScalar(a), formatScalar(b))
	}
}

// identity returns the join key of a list element: its "name" value tagged
// with the value type, so that the string "1" and the number 1 differ while
// 1 and 1.0 match. Elements without a name have no identity.
func identity(v any) (string, bool) {
	d, ok := v.(*Descriptor)
	if !ok {
		return "", false
	}
	name, ok := d.values[NameKey]
	if !ok || name == nil {
		return "", false
	}
	switch name := name.(type) {
	case string:
		return "s:" + name, true
	case bool:
		return "b:" + strconv.FormatBool(name), true
	case int64:
		return "n:" + strconv.FormatInt(name, 10), true
	case float64:
		if name == float64(int64(name)) {
			return "n:" + strconv.FormatInt(int64(name), 10), true
		}
		return "n:" + strconv.FormatFloat(name, 'g', -1, 64), true
	default:
		return "", false
	}
}
