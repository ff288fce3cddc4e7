package transform

import (
	"fmt"

	"newton/internal/workflowgraph/expr"
	"newton/internal/workflowgraph/state"
)

// InterpolateTemplates passes every string value in context and task
// params through ${expr} interpolation. Interpolation failures surface as
// WFG-TPL-001 carrying the dotted path of the offending field.
func InterpolateTemplates(doc *state.WorkflowDocument, engine *expr.Engine) (*state.WorkflowDocument, error) {
	out, err := cloneDocument(doc)
	if err != nil {
		return nil, err
	}

	bindings := expr.Bindings{
		Context:  out.Workflow.Context,
		Tasks:    map[string]interface{}{},
		Triggers: out.Triggers,
	}

	interpolatedContext, err := interpolateStrings(out.Workflow.Context, engine, bindings, "context")
	if err != nil {
		return nil, err
	}
	out.Workflow.Context, _ = interpolatedContext.(map[string]interface{})

	for i := range out.Workflow.Tasks {
		t := &out.Workflow.Tasks[i]
		interpolatedParams, err := interpolateStrings(t.Params, engine, bindings, fmt.Sprintf("tasks.%s.params", t.ID))
		if err != nil {
			return nil, err
		}
		t.Params, _ = interpolatedParams.(map[string]interface{})
	}

	return out, nil
}

// interpolateStrings walks value, running every string leaf (including the
// literal text of a {"$expr": "..."} entry, which ordinarily contains no
// ${...} placeholder and so passes through unchanged) through
// engine.Interpolate.
func interpolateStrings(value interface{}, engine *expr.Engine, bindings expr.Bindings, path string) (interface{}, error) {
	switch v := value.(type) {
	case string:
		out, err := engine.Interpolate(v, bindings)
		if err != nil {
			return nil, wrapTPLPath(err, path)
		}
		return out, nil
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for k, item := range v {
			interp, err := interpolateStrings(item, engine, bindings, path+"."+k)
			if err != nil {
				return nil, err
			}
			result[k] = interp
		}
		return result, nil
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			interp, err := interpolateStrings(item, engine, bindings, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			result[i] = interp
		}
		return result, nil
	default:
		return v, nil
	}
}

func wrapTPLPath(err error, path string) error {
	if ee, ok := err.(*state.EngineError); ok {
		return state.WrapError(state.CodeTplInterpolate, ee.Category,
			fmt.Sprintf("%s (at %s)", ee.Message, path), ee.Source)
	}
	return err
}
