package transform

import (
	"strings"

	"newton/internal/workflowgraph/expr"
	"newton/internal/workflowgraph/state"
)

// PruneIncludeIf drops tasks whose include_if evaluates false, and drops
// any transition whose target was dropped or whose own include_if
// evaluates false. include_if MUST NOT reference tasks.* (task results do
// not exist yet at transform time); violating that fails WFG-INCLUDE-001.
func PruneIncludeIf(doc *state.WorkflowDocument, engine *expr.Engine) (*state.WorkflowDocument, error) {
	out, err := cloneDocument(doc)
	if err != nil {
		return nil, err
	}

	bindings := expr.Bindings{
		Context:  out.Workflow.Context,
		Tasks:    map[string]interface{}{},
		Triggers: out.Triggers,
	}

	var retained []state.Task
	removed := map[string]bool{}

	for _, task := range out.Workflow.Tasks {
		include, err := evaluateCondition(task.IncludeIf, engine, bindings)
		if err != nil {
			return nil, err
		}
		if !include {
			removed[task.ID] = true
			continue
		}
		task.IncludeIf = nil
		retained = append(retained, task)
	}

	for i := range retained {
		task := &retained[i]
		var kept []state.Transition
		for _, tr := range task.Transitions {
			if removed[tr.To] {
				continue
			}
			include, err := evaluateCondition(tr.IncludeIf, engine, bindings)
			if err != nil {
				return nil, err
			}
			tr.IncludeIf = nil
			if include {
				kept = append(kept, tr)
			}
		}
		task.Transitions = kept
	}

	out.Workflow.Tasks = retained
	return out, nil
}

// evaluateCondition resolves an include_if/when-style condition value: nil
// means "always include", a literal bool is used as-is, and an
// {"$expr": "<s>"} map is compiled (after rejecting any reference to
// `tasks`) and evaluated with the spec's truthy rule.
func evaluateCondition(cond interface{}, engine *expr.Engine, bindings expr.Bindings) (bool, error) {
	if cond == nil {
		return true, nil
	}
	switch v := cond.(type) {
	case bool:
		return v, nil
	case map[string]interface{}:
		exprStr, ok := v["$expr"].(string)
		if !ok {
			return true, nil
		}
		if strings.Contains(exprStr, "tasks") {
			return false, state.NewError(state.CodeIncludeIfTasksRef, state.CategoryValidation,
				"include_if may not reference `tasks` — task results are not available at transform time: "+exprStr)
		}
		result, err := engine.Evaluate(exprStr, bindings)
		if err != nil {
			return false, err
		}
		return expr.Truthy(result), nil
	default:
		return true, nil
	}
}
