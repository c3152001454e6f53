package persist

import (
	"reflect"

	"github.com/ValentinKolb/dState/lib/state"
)

// MergeFunc deep merges source into target and returns the result
type MergeFunc func(target, source any) any

// ArrayMerger combines two arrays found at the same position while merging.
// merge is the deep merge configured with the same ArrayMerger, for
// recursing into elements.
type ArrayMerger func(target, source []any, merge MergeFunc) []any

// Merge deep merges source into target. Neither input is modified.
//
//   - objects are merged key by key, keys present on one side only are kept
//   - two arrays are combined by arrayMerger (CombineMerge when nil)
//   - in every other case the source value wins
func Merge(target, source any, arrayMerger ArrayMerger) any {
	if arrayMerger == nil {
		arrayMerger = CombineMerge
	}
	var merge MergeFunc
	merge = func(target, source any) any {
		return mergeValue(target, source, arrayMerger, merge)
	}
	return merge(target, source)
}

func mergeValue(target, source any, arrayMerger ArrayMerger, merge MergeFunc) any {
	switch src := source.(type) {
	case map[string]any:
		dst, ok := target.(map[string]any)
		if !ok {
			return state.Clone(src)
		}
		out := make(map[string]any, len(dst)+len(src))
		for key, value := range dst {
			out[key] = state.Clone(value)
		}
		for key, value := range src {
			if existing, found := dst[key]; found && isMergeable(value) {
				out[key] = merge(existing, value)
				continue
			}
			out[key] = state.Clone(value)
		}
		return out
	case []any:
		dst, ok := target.([]any)
		if !ok {
			return state.Clone(src)
		}
		return arrayMerger(dst, src, merge)
	default:
		return state.Clone(source)
	}
}

func isMergeable(value any) bool {
	switch value.(type) {
	case map[string]any, []any:
		return true
	default:
		return false
	}
}

// --------------------------------------------------------------------------
// Array Strategies
// --------------------------------------------------------------------------

// CombineMerge merges arrays index by index. It starts from a copy of target
// and, for every source element at index i:
//
//   - appends a copy when target has no index i
//   - deep merges target[i] with it when the element is an object or array
//   - otherwise appends it unless target already contains an equal value
//
// Index i always refers to the original target. Elements appended for earlier
// source items are never merged into, so CombineMerge([1], [2, {a:1}]) is
// [1, 2, {a:1}].
func CombineMerge(target, source []any, merge MergeFunc) []any {
	out := make([]any, len(target), len(target)+len(source))
	for i, item := range target {
		out[i] = state.Clone(item)
	}

	for i, item := range source {
		switch {
		case i >= len(target): // beyond the original target, not len(out)
			out = append(out, state.Clone(item))
		case isMergeable(item):
			out[i] = merge(target[i], item)
		case !contains(target, item):
			out = append(out, item)
		}
	}
	return out
}

// ConcatMerge appends all source elements to the target elements
func ConcatMerge(target, source []any, _ MergeFunc) []any {
	out := make([]any, 0, len(target)+len(source))
	for _, item := range target {
		out = append(out, state.Clone(item))
	}
	for _, item := range source {
		out = append(out, state.Clone(item))
	}
	return out
}

// OverwriteMerge replaces the target array with the source array
func OverwriteMerge(_, source []any, _ MergeFunc) []any {
	return state.Clone(source).([]any)
}

// contains reports whether the scalar item is an element of values
func contains(values []any, item any) bool {
	for _, value := range values {
		if !isMergeable(value) && reflect.DeepEqual(value, item) {
			return true
		}
	}
	return false
}
