package operator

import (
	"context"
	"fmt"
	"sort"

	"newton/internal/workflowgraph/state"
)

// AssertCompleted fails WFG-ASSERT-001 if any required task id has status
// "missing" in the tasks view; otherwise it reports per-id statuses.
type AssertCompleted struct{}

func (o *AssertCompleted) Name() string { return "AssertCompleted" }

func (o *AssertCompleted) ValidateParams(params map[string]interface{}) error {
	if _, ok := params["require"].([]interface{}); !ok {
		return state.NewError(state.CodeDocumentParse, state.CategoryValidation,
			"AssertCompleted requires a \"require\" array of task ids")
	}
	return nil
}

func (o *AssertCompleted) Execute(ctx context.Context, params map[string]interface{}, ec ExecContext) (interface{}, error) {
	if err := o.ValidateParams(params); err != nil {
		return nil, err
	}

	rawIDs := params["require"].([]interface{})
	statuses := map[string]string{}
	var missing []string

	for _, raw := range rawIDs {
		id, _ := raw.(string)
		view, ok := ec.View.Tasks[id]
		if !ok || view.Status == state.TaskStatusMissing {
			missing = append(missing, id)
			statuses[id] = state.TaskStatusMissing
			continue
		}
		statuses[id] = view.Status
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, state.NewError(state.CodeAssertFailed, state.CategoryValidation,
			fmt.Sprintf("required tasks not completed: %v", missing))
	}

	allSucceeded := true
	for _, s := range statuses {
		if s != string(state.RunSuccess) {
			allSucceeded = false
			break
		}
	}

	return map[string]interface{}{
		"all_succeeded": allSucceeded,
		"statuses":      statuses,
	}, nil
}
