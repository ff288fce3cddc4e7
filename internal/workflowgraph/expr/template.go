package expr

import (
	"encoding/json"
	"strings"

	"newton/internal/workflowgraph/state"
)

// Interpolate scans template for ${expr} placeholders, evaluates each
// against bindings, and stringifies the result into the surrounding text.
// A placeholder whose evaluated value is a JSON scalar is rendered as its
// plain text form (null -> "", numbers/bools -> their literal form,
// strings -> themselves unquoted); a placeholder that evaluates to an
// object or array is rendered as compact JSON. A template with no
// placeholders is returned unchanged.
func (e *Engine) Interpolate(template string, bindings Bindings) (string, error) {
	var out strings.Builder
	rest := template

	for {
		start := strings.Index(rest, "${")
		if start == -1 {
			out.WriteString(rest)
			break
		}
		end := strings.Index(rest[start:], "}")
		if end == -1 {
			out.WriteString(rest)
			break
		}
		end += start

		out.WriteString(rest[:start])
		expression := rest[start+2 : end]

		value, err := e.Evaluate(expression, bindings)
		if err != nil {
			return "", state.WrapError(state.CodeTplInterpolate, state.CategoryValidation,
				"failed to interpolate template placeholder \"${"+expression+"}\"", err)
		}
		out.WriteString(stringifyScalar(value))

		rest = rest[end+1:]
	}

	return out.String(), nil
}

func stringifyScalar(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool, int, int64, float64:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
