// SPDX-License-Identifier: MPL-2.0

package descriptor

import (
	"errors"
	"fmt"
	"slices"
)

var errNilTarget = errors.New("cannot merge into a nil descriptor")

// Merge folds source into target and returns target. Target values win over
// source values; see the package documentation for the full rules.
//
// target is modified in place and is not restored when an error is returned.
// source is never modified and shares no values with target afterwards.
func Merge(target, source *Descriptor) (*Descriptor, error) {
	if target == nil {
		return nil, errNilTarget
	}
	if source == nil {
		return target, nil
	}
	if err := merge(target, source, isOverrideMerge(target.kind, source.kind)); err != nil {
		return target, err
	}
	return target, nil
}

// MergeAll folds sources into target in order, so earlier sources take
// precedence over later ones.
func MergeAll(target *Descriptor, sources ...*Descriptor) (*Descriptor, error) {
	for _, source := range sources {
		if _, err := Merge(target, source); err != nil {
			return target, err
		}
	}
	return target, nil
}

// MergeLists merges two lists without modifying either of them.
//
// Scalar lists produce the sorted union of both lists without duplicates.
// Descriptor lists are joined on the "name" field: source elements with a
// name not present in target come first (in source order), followed by every
// target element, merged with the source elements sharing its name. Elements
// without a name never match.
//
// Lists containing lists, or mixing descriptors and scalars, return a MergeError.
// Elements are normalized first, so plain Go integers and floats compare as
// numbers and mappings become descriptors.
func MergeLists(target, source []any) ([]any, error) {
	t, err := normalizeElements(target)
	if err != nil {
		return nil, err
	}
	s, err := normalizeElements(source)
	if err != nil {
		return nil, err
	}
	return mergeLists(t, s, nil)
}

// normalizeElements converts caller-built list elements into the descriptor
// value model. Descriptors and nested lists are left for mergeLists to judge.
func normalizeElements(list []any) ([]any, error) {
	out := make([]any, len(list))
	for i, elem := range list {
		switch elem.(type) {
		case *Descriptor, []any:
			out[i] = elem
			continue
		}
		v, err := normalize(KindGeneric, elem, "")
		if err != nil {
			return nil, &MergeError{Path: fmt.Sprintf("[%d]", i), Reason: err.Error()}
		}
		out[i] = v
	}
	return out, nil
}

func merge(target, source *Descriptor, override bool) error {
	for _, key := range source.keys {
		if !override && isExcluded(key) {
			continue
		}

		sv := source.values[key]
		tv, ok := target.values[key]
		if !ok {
			target.put(key, adopt(cloneValue(sv), target))
			continue
		}

		switch t := tv.(type) {
		case *Descriptor:
			s, ok := sv.(*Descriptor)
			if !ok {
				continue
			}
			if t.kind == KindRun && s.kind == KindRun {
				mergeRun(t, s)
				continue
			}
			if err := merge(t, s, override); err != nil {
				return prefixed(key, err)
			}
		case []any:
			s, ok := sv.([]any)
			if !ok {
				continue
			}
			merged, err := mergeLists(t, s, &override)
			if err != nil {
				return prefixed(key, err)
			}
			target.values[key] = adopt(merged, target)
		}
	}
	return nil
}

// mergeLists implements MergeLists. A nil override decides the description
// policy for every pair of joined elements from their kinds; otherwise the
// policy of the enclosing descriptor merge applies.
func mergeLists(target, source []any, override *bool) ([]any, error) {
	descriptors, err := listShape(target, source)
	if err != nil {
		return nil, err
	}

	if !descriptors {
		union := make([]any, 0, len(target)+len(source))
		union = append(union, target...)
		union = append(union, source...)
		slices.SortStableFunc(union, compareScalars)
		return slices.CompactFunc(union, func(a, b any) bool {
			return compareScalars(a, b) == 0
		}), nil
	}

	inTarget := map[string]bool{}
	for _, t := range target {
		if id, ok := identity(t); ok {
			inTarget[id] = true
		}
	}

	result := make([]any, 0, len(target)+len(source))
	for _, s := range source {
		if id, ok := identity(s); !ok || !inTarget[id] {
			result = append(result, s.(*Descriptor).Clone())
		}
	}

	for _, t := range target {
		merged := t.(*Descriptor).Clone()
		if id, ok := identity(t); ok {
			for _, s := range source {
				if sid, ok := identity(s); !ok || sid != id {
					continue
				}
				src := s.(*Descriptor)
				ov := isOverrideMerge(merged.kind, src.kind)
				if override != nil {
					ov = *override
				}
				if err := merge(merged, src, ov); err != nil {
					return nil, prefixed(merged.Name(), err)
				}
			}
		}
		result = append(result, merged)
	}

	return result, nil
}

// listShape reports whether the lists hold descriptors (true) or scalars
// (false). Empty lists are scalar lists.
func listShape(lists ...[]any) (bool, error) {
	var sawDescriptor, sawScalar bool
	for _, list := range lists {
		for _, elem := range list {
			switch elem.(type) {
			case []any:
				return false, &MergeError{Reason: "cannot merge a list containing a list"}
			case *Descriptor:
				sawDescriptor = true
			default:
				sawScalar = true
			}
		}
	}
	if sawDescriptor && sawScalar {
		return false, &MergeError{Reason: "cannot merge a list mixing descriptors and scalar values"}
	}
	return sawDescriptor, nil
}
