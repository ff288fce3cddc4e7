package state

import "strings"

const RedactedPlaceholder = "[REDACTED]"

// Redact returns a copy of value with every string leaf beneath a key whose
// name case-insensitively substring-matches one of keys replaced by
// RedactedPlaceholder. Once a key matches, every string leaf within its
// value (however deeply nested) is redacted, not just a top-level string —
// a matched key is treated as marking the whole subtree sensitive.
func Redact(value interface{}, keys []string) interface{} {
	if len(keys) == 0 {
		return deepCopyJSON(value)
	}
	lowered := make([]string, len(keys))
	for i, k := range keys {
		lowered[i] = strings.ToLower(k)
	}
	return redactValue(value, lowered, false)
}

func redactValue(value interface{}, keys []string, forceRedact bool) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			matched := forceRedact || keyMatches(k, keys)
			out[k] = redactValue(val, keys, matched)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, val := range v {
			out[i] = redactValue(val, keys, forceRedact)
		}
		return out
	case string:
		if forceRedact {
			return RedactedPlaceholder
		}
		return v
	default:
		return v
	}
}

func keyMatches(key string, loweredKeys []string) bool {
	lk := strings.ToLower(key)
	for _, k := range loweredKeys {
		if strings.Contains(lk, k) {
			return true
		}
	}
	return false
}
