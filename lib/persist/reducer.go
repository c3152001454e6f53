package persist

import (
	"strconv"
	"strings"

	"github.com/ValentinKolb/dState/lib/state"
)

// DefaultReducer returns the state unchanged when paths is empty. Otherwise it
// builds a new object that only contains the listed dot separated paths
// ("user.settings.theme"). Paths missing in the state are skipped. A literal
// dot in a key is written as "\.".
func DefaultReducer(s any, paths []string) any {
	if len(paths) == 0 {
		return s
	}

	out := map[string]any{}
	for _, path := range paths {
		segments := splitPath(path)
		if len(segments) == 0 {
			continue
		}
		if value, ok := getPath(s, segments); ok {
			setPath(out, segments, state.Clone(value))
		}
	}
	return out
}

// splitPath splits a dot path into its segments, honoring "\." escapes
func splitPath(path string) []string {
	var segments []string
	var current strings.Builder
	for i := 0; i < len(path); i++ {
		switch {
		case path[i] == '\\' && i+1 < len(path) && path[i+1] == '.':
			current.WriteByte('.')
			i++
		case path[i] == '.':
			segments = append(segments, current.String())
			current.Reset()
		default:
			current.WriteByte(path[i])
		}
	}
	segments = append(segments, current.String())

	for _, segment := range segments {
		if segment == "" {
			return nil
		}
	}
	return segments
}

// getPath resolves segments in a JSON shaped value. Array elements are addressed by their index.
func getPath(value any, segments []string) (any, bool) {
	current := value
	for _, segment := range segments {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(node) {
				return nil, false
			}
			current = node[index]
		default:
			return nil, false
		}
	}
	return current, true
}

// setPath writes value at segments, creating intermediate objects
func setPath(target map[string]any, segments []string, value any) {
	node := target
	for _, segment := range segments[:len(segments)-1] {
		next, ok := node[segment].(map[string]any)
		if !ok {
			next = map[string]any{}
			node[segment] = next
		}
		node = next
	}
	node[segments[len(segments)-1]] = value
}
