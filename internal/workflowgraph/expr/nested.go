package expr

import "strings"

// GetNestedValue walks a dotted path ("a.b.c") through nested
// map[string]interface{} values, returning (value, true) if every segment
// resolved to a map containing the next key, or (nil, false) otherwise.
func GetNestedValue(data map[string]interface{}, path string) (interface{}, bool) {
	segments := strings.Split(path, ".")
	var current interface{} = data

	for _, seg := range segments {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := m[seg]
		if !ok {
			return nil, false
		}
		current = v
	}
	return current, true
}

// SetNestedValue walks a dotted path, creating intermediate maps as needed,
// and sets the final segment to value.
func SetNestedValue(data map[string]interface{}, path string, value interface{}) {
	segments := strings.Split(path, ".")
	current := data

	for i, seg := range segments {
		if i == len(segments)-1 {
			current[seg] = value
			return
		}
		next, ok := current[seg].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			current[seg] = next
		}
		current = next
	}
}
