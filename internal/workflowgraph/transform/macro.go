package transform

import (
	"encoding/json"
	"fmt"

	"newton/internal/workflowgraph/expr"
	"newton/internal/workflowgraph/state"
)

// ExpandMacros replaces each macro invocation task with the macro's
// template tasks, interpolating ${...} placeholders in their string
// fields against a local scope built from the invocation's `with`
// arguments (bound as `context`). Duplicate task ids produced by expansion fail with
// WFG-MACRO-001; invocations of unknown macro names fail with
// WFG-MACRO-002.
func ExpandMacros(doc *state.WorkflowDocument, engine *expr.Engine) (*state.WorkflowDocument, error) {
	out, err := cloneDocument(doc)
	if err != nil {
		return nil, err
	}

	var expanded []state.Task
	for _, task := range out.Workflow.Tasks {
		if !task.IsMacroInvocation() {
			expanded = append(expanded, task)
			continue
		}

		macroDef, ok := out.Macros[task.Macro]
		if !ok {
			return nil, state.NewError(state.CodeMacroUnknown, state.CategoryValidation,
				fmt.Sprintf("unknown macro invocation %q", task.Macro))
		}

		bindings := expr.Bindings{
			Context:  task.With,
			Tasks:    map[string]interface{}{},
			Triggers: map[string]interface{}{},
		}

		for _, tmplTask := range macroDef.Tasks {
			interpolated, err := interpolateTask(tmplTask, engine, bindings)
			if err != nil {
				return nil, err
			}
			expanded = append(expanded, interpolated)
		}
	}

	seen := map[string]bool{}
	for _, t := range expanded {
		if t.IsMacroInvocation() {
			continue
		}
		if seen[t.ID] {
			return nil, state.NewError(state.CodeMacroDuplicate, state.CategoryValidation,
				fmt.Sprintf("macro expansion produced duplicate task id %q", t.ID))
		}
		seen[t.ID] = true
	}

	out.Workflow.Tasks = expanded
	return out, nil
}

// interpolateTask runs a macro template task's string fields through
// template interpolation against the invocation's local scope (exposed as
// the `context` binding, matching the macro body's use of
// ${context["param"]}).
func interpolateTask(task state.Task, engine *expr.Engine, bindings expr.Bindings) (state.Task, error) {
	raw, err := cloneValue(task)
	if err != nil {
		return state.Task{}, state.WrapError(state.CodeMacroDuplicate, state.CategorySerialization,
			"failed to serialize macro task template", err)
	}

	interpolated, err := interpolateValue(raw, engine, bindings, "macro_task")
	if err != nil {
		return state.Task{}, err
	}

	var result state.Task
	if err := decodeInto(interpolated, &result); err != nil {
		return state.Task{}, state.WrapError(state.CodeMacroDuplicate, state.CategorySerialization,
			"failed to decode expanded macro task", err)
	}
	return result, nil
}

// decodeInto round-trips v through JSON into dst.
func decodeInto(v interface{}, dst interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func interpolateValue(value interface{}, engine *expr.Engine, bindings expr.Bindings, field string) (interface{}, error) {
	switch v := value.(type) {
	case string:
		out, err := engine.Interpolate(v, bindings)
		if err != nil {
			return nil, err
		}
		return out, nil
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			interp, err := interpolateValue(item, engine, bindings, fmt.Sprintf("%s[%d]", field, i))
			if err != nil {
				return nil, err
			}
			result[i] = interp
		}
		return result, nil
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for k, item := range v {
			interp, err := interpolateValue(item, engine, bindings, field+"."+k)
			if err != nil {
				return nil, err
			}
			result[k] = interp
		}
		return result, nil
	default:
		return v, nil
	}
}
