package persist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name     string
		target   any
		source   any
		expected any
	}{
		{
			name:     "keys from both sides are kept",
			target:   map[string]any{"a": 1.0, "b": 2.0},
			source:   map[string]any{"b": 3.0, "c": 4.0},
			expected: map[string]any{"a": 1.0, "b": 3.0, "c": 4.0},
		},
		{
			name:     "nested objects are merged",
			target:   map[string]any{"user": map[string]any{"name": "ada", "age": 36.0}},
			source:   map[string]any{"user": map[string]any{"age": 37.0}},
			expected: map[string]any{"user": map[string]any{"name": "ada", "age": 37.0}},
		},
		{
			name:     "mismatched kinds resolve to the source",
			target:   map[string]any{"a": map[string]any{"x": 1.0}, "b": []any{1.0}, "c": "text"},
			source:   map[string]any{"a": "flat", "b": map[string]any{"y": 2.0}, "c": []any{"z"}},
			expected: map[string]any{"a": "flat", "b": map[string]any{"y": 2.0}, "c": []any{"z"}},
		},
		{
			name:     "null in the source wins",
			target:   map[string]any{"a": 1.0},
			source:   map[string]any{"a": nil},
			expected: map[string]any{"a": nil},
		},
		{
			name:     "arrays use combine merge",
			target:   map[string]any{"todos": []any{"a", "b"}},
			source:   map[string]any{"todos": []any{"a", "c", "d"}},
			expected: map[string]any{"todos": []any{"a", "b", "c", "d"}},
		},
		{
			name:     "source items past the original target are appended",
			target:   map[string]any{"list": []any{1.0}},
			source:   map[string]any{"list": []any{2.0, map[string]any{"a": 1.0}}},
			expected: map[string]any{"list": []any{1.0, 2.0, map[string]any{"a": 1.0}}},
		},
		{
			name:     "scalars",
			target:   1.0,
			source:   2.0,
			expected: 2.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Merge(tt.target, tt.source, nil))
		})
	}
}

func TestCombineMerge(t *testing.T) {
	tests := []struct {
		name     string
		target   []any
		source   []any
		expected []any
	}{
		{"empty target", []any{}, []any{1.0, 2.0}, []any{1.0, 2.0}},
		{"empty source", []any{1.0}, []any{}, []any{1.0}},
		{"contained scalars are skipped", []any{1.0, 2.0}, []any{2.0, 1.0}, []any{1.0, 2.0}},
		{"new scalars are appended", []any{1.0}, []any{2.0}, []any{1.0, 2.0}},
		{"extra elements are appended", []any{1.0}, []any{1.0, 5.0}, []any{1.0, 5.0}},
		{
			"objects merge by index",
			[]any{map[string]any{"id": 1.0, "done": false}, map[string]any{"id": 2.0}},
			[]any{map[string]any{"done": true}},
			[]any{map[string]any{"id": 1.0, "done": true}, map[string]any{"id": 2.0}},
		},
		{
			"nested arrays merge by index",
			[]any{[]any{1.0}},
			[]any{[]any{2.0}},
			[]any{[]any{1.0, 2.0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Merge(tt.target, tt.source, CombineMerge))
		})
	}
}

func TestArrayStrategies(t *testing.T) {
	target := map[string]any{"list": []any{1.0, 2.0}}
	source := map[string]any{"list": []any{2.0, 3.0}}

	assert.Equal(t, map[string]any{"list": []any{1.0, 2.0, 2.0, 3.0}}, Merge(target, source, ConcatMerge))
	assert.Equal(t, map[string]any{"list": []any{2.0, 3.0}}, Merge(target, source, OverwriteMerge))
}

func TestMergeDoesNotModifyInputs(t *testing.T) {
	target := map[string]any{"user": map[string]any{"name": "ada"}, "list": []any{map[string]any{"a": 1.0}}}
	source := map[string]any{"user": map[string]any{"age": 36.0}, "list": []any{map[string]any{"b": 2.0}}}

	merged := Merge(target, source, nil).(map[string]any)
	merged["user"].(map[string]any)["name"] = "changed"
	merged["list"].([]any)[0].(map[string]any)["a"] = 99.0

	assert.Equal(t, map[string]any{"user": map[string]any{"name": "ada"}, "list": []any{map[string]any{"a": 1.0}}}, target)
	assert.Equal(t, map[string]any{"user": map[string]any{"age": 36.0}, "list": []any{map[string]any{"b": 2.0}}}, source)
}

// --------------------------------------------------------------------------
// Properties
// --------------------------------------------------------------------------

func flatObject() *rapid.Generator[map[string]any] {
	return rapid.Custom(func(t *rapid.T) map[string]any {
		keys := rapid.SliceOfDistinct(rapid.StringMatching(`[a-e]`), rapid.ID[string]).Draw(t, "keys")
		out := make(map[string]any, len(keys))
		for _, key := range keys {
			out[key] = float64(rapid.IntRange(-5, 5).Draw(t, "value"))
		}
		return out
	})
}

func TestMergeRetentionProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		target := flatObject().Draw(rt, "target")
		source := flatObject().Draw(rt, "source")

		merged := Merge(target, source, nil).(map[string]any)

		for key, value := range source {
			if merged[key] != value {
				rt.Fatalf("source key %q: expected %v, got %v", key, value, merged[key])
			}
		}
		for key, value := range target {
			if _, inSource := source[key]; inSource {
				continue
			}
			if merged[key] != value {
				rt.Fatalf("target only key %q: expected %v, got %v", key, value, merged[key])
			}
		}
		if len(merged) > len(target)+len(source) {
			rt.Fatalf("merged object has unexpected keys: %v", merged)
		}
	})
}

func TestCombineMergeProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		target := rapid.SliceOf(rapid.Float64Range(0, 5)).Draw(rt, "target")
		source := rapid.SliceOf(rapid.Float64Range(0, 5)).Draw(rt, "source")

		out := CombineMerge(toAny(target), toAny(source), func(a, b any) any { return b })

		// every target element keeps its position
		for i, v := range target {
			if out[i] != v {
				rt.Fatalf("target element %d changed: %v", i, out)
			}
		}
		// every source element ends up in the result
		for _, v := range source {
			if !contains(out, v) {
				rt.Fatalf("source element %v missing in %v", v, out)
			}
		}
	})
}

func toAny(values []float64) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
