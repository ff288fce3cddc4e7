package transform

import (
	"newton/internal/workflowgraph/expr"
	"newton/internal/workflowgraph/state"
)

// Normalize applies structural defaults: a transition with no explicit
// priority gets state.DefaultTransitionPriority, a task with no retry
// policy gets a single-attempt policy, and nil context/params maps become
// empty ones so later stages never need a nil check.
func Normalize(doc *state.WorkflowDocument, _ *expr.Engine) (*state.WorkflowDocument, error) {
	out, err := cloneDocument(doc)
	if err != nil {
		return nil, err
	}

	if out.Workflow.Context == nil {
		out.Workflow.Context = map[string]interface{}{}
	}

	for i := range out.Workflow.Tasks {
		t := &out.Workflow.Tasks[i]
		if t.Params == nil {
			t.Params = map[string]interface{}{}
		}
		if t.Retry == nil {
			t.Retry = &state.RetryPolicy{MaxAttempts: 1}
		}
		for j := range t.Transitions {
			if t.Transitions[j].Priority == 0 {
				t.Transitions[j].Priority = state.DefaultTransitionPriority
			}
		}
	}

	return out, nil
}
