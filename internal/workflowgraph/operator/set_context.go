package operator

import (
	"context"
	"fmt"

	"newton/internal/workflowgraph/state"
)

// SetContext requests a context merge. It performs no merge itself — the
// scheduler deep-merges the returned "patch" field into the live context
// once the task run completes (§4.4).
type SetContext struct{}

func (o *SetContext) Name() string { return "SetContext" }

func (o *SetContext) ValidateParams(params map[string]interface{}) error {
	patch, ok := params["patch"]
	if !ok {
		return state.NewError(state.CodeDocumentParse, state.CategoryValidation,
			"SetContext requires a \"patch\" param")
	}
	if _, ok := patch.(map[string]interface{}); !ok {
		return state.NewError(state.CodeDocumentParse, state.CategoryValidation,
			fmt.Sprintf("SetContext \"patch\" must be an object, got %T", patch))
	}
	return nil
}

func (o *SetContext) Execute(ctx context.Context, params map[string]interface{}, ec ExecContext) (interface{}, error) {
	if err := o.ValidateParams(params); err != nil {
		return nil, err
	}
	patch := params["patch"].(map[string]interface{})
	return map[string]interface{}{
		"applied": true,
		"patch":   patch,
	}, nil
}
