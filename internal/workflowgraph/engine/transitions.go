package engine

import (
	"fmt"
	"sort"

	"newton/internal/workflowgraph/expr"
	"newton/internal/workflowgraph/state"
)

// selectTransitions implements §4.6 step 8c: transitions are sorted by
// ascending priority; if any carries a `when`, the task is in exclusive
// mode and the first matching transition (when + include_if both true)
// wins; otherwise every transition whose include_if passes is enqueued.
func selectTransitions(task state.Task, e *expr.Engine, view state.StateView) ([]string, error) {
	transitions := make([]state.Transition, len(task.Transitions))
	copy(transitions, task.Transitions)
	sort.SliceStable(transitions, func(i, j int) bool {
		return transitions[i].Priority < transitions[j].Priority
	})

	exclusive := false
	for _, tr := range transitions {
		if tr.When != nil {
			exclusive = true
			break
		}
	}

	bindings := bindingsFromView(view)

	if exclusive {
		for _, tr := range transitions {
			whenOK, err := evaluateCondition(tr.When, e, bindings, true)
			if err != nil {
				return nil, err
			}
			if !whenOK {
				continue
			}
			includeOK, err := evaluateCondition(tr.IncludeIf, e, bindings, true)
			if err != nil {
				return nil, err
			}
			if includeOK {
				return []string{tr.To}, nil
			}
		}
		return nil, nil
	}

	var targets []string
	seen := map[string]bool{}
	for _, tr := range transitions {
		includeOK, err := evaluateCondition(tr.IncludeIf, e, bindings, true)
		if err != nil {
			return nil, err
		}
		if !includeOK || seen[tr.To] {
			continue
		}
		seen[tr.To] = true
		targets = append(targets, tr.To)
	}
	return targets, nil
}

// evaluateCondition evaluates a `when`/`include_if`-shaped field: nil
// means "always include" (defaultTrue is true for both include_if and
// when once transform-time pruning has cleared the field); a bool is
// used as-is; a {"$expr": s} map is compiled and its result must itself
// be a bool — any other result type fails WFG-EXPR-BOOL-001, since
// `when`/`include_if` conditions are not truthy-coerced like template
// interpolation is.
func evaluateCondition(cond interface{}, e *expr.Engine, bindings expr.Bindings, defaultTrue bool) (bool, error) {
	if cond == nil {
		return defaultTrue, nil
	}
	if b, ok := cond.(bool); ok {
		return b, nil
	}
	if m, ok := cond.(map[string]interface{}); ok {
		if raw, ok := m["$expr"]; ok {
			if exprStr, ok := raw.(string); ok {
				result, err := e.Evaluate(exprStr, bindings)
				if err != nil {
					return false, err
				}
				b, ok := result.(bool)
				if !ok {
					return false, state.NewError(state.CodeExprNonBool, state.CategoryValidation,
						fmt.Sprintf("condition %q must evaluate to a bool, got %T", exprStr, result))
				}
				return b, nil
			}
		}
	}
	return defaultTrue, nil
}
