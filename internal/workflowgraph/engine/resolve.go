package engine

import (
	"newton/internal/workflowgraph/expr"
	"newton/internal/workflowgraph/state"
)

// resolveParams walks value and replaces every single-key
// {"$expr": "..."} object with the result of evaluating that expression
// against view, recursing into nested objects and arrays. Any other value
// (including a map with more than one key, or a key other than "$expr")
// passes through after its own children are resolved.
func resolveParams(value interface{}, e *expr.Engine, view state.StateView) (interface{}, error) {
	switch v := value.(type) {
	case map[string]interface{}:
		if len(v) == 1 {
			if raw, ok := v["$expr"]; ok {
				exprStr, ok := raw.(string)
				if ok {
					return e.Evaluate(exprStr, bindingsFromView(view))
				}
			}
		}
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			resolved, err := resolveParams(val, e, view)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, val := range v {
			resolved, err := resolveParams(val, e, view)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}

func bindingsFromView(view state.StateView) expr.Bindings {
	tasks := make(map[string]interface{}, len(view.Tasks))
	for id, tv := range view.Tasks {
		tasks[id] = map[string]interface{}{
			"status":     tv.Status,
			"output":     tv.Output,
			"error_code": tv.ErrorCode,
		}
	}
	return expr.Bindings{
		Context:  view.Context,
		Tasks:    tasks,
		Triggers: view.Triggers,
	}
}

func resolveTaskParams(task state.Task, e *expr.Engine, view state.StateView) (map[string]interface{}, error) {
	resolved, err := resolveParams(map[string]interface{}(task.Params), e, view)
	if err != nil {
		return nil, err
	}
	out, _ := resolved.(map[string]interface{})
	if out == nil {
		out = map[string]interface{}{}
	}
	return out, nil
}
