package operator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"newton/internal/workflowgraph/state"
)

// ReadControlFile lets a workflow poll a side-channel JSON file (typically
// written by an out-of-band human or automation step) for a done/message
// signal. path is resolved relative to the workspace; a missing file is
// not an error.
type ReadControlFile struct{}

func (o *ReadControlFile) Name() string { return "ReadControlFile" }

func (o *ReadControlFile) ValidateParams(params map[string]interface{}) error {
	if path, ok := params["path"].(string); !ok || path == "" {
		return state.NewError(state.CodeDocumentParse, state.CategoryValidation,
			"ReadControlFile requires a non-empty \"path\" string param")
	}
	return nil
}

func (o *ReadControlFile) Execute(ctx context.Context, params map[string]interface{}, ec ExecContext) (interface{}, error) {
	if err := o.ValidateParams(params); err != nil {
		return nil, err
	}

	relPath := params["path"].(string)
	fullPath := filepath.Join(ec.WorkspacePath, relPath)

	content, err := os.ReadFile(fullPath)
	if os.IsNotExist(err) {
		return map[string]interface{}{
			"exists":   false,
			"done":     false,
			"message":  nil,
			"metadata": nil,
		}, nil
	}
	if err != nil {
		return nil, state.WrapError(state.CodeControlFileInvalid, state.CategoryIO,
			fmt.Sprintf("failed to read control file %q", relPath), err)
	}

	var parsed struct {
		Done     bool        `json:"done"`
		Message  interface{} `json:"message"`
		Metadata interface{} `json:"metadata"`
	}
	if err := json.Unmarshal(content, &parsed); err != nil {
		return nil, state.WrapError(state.CodeControlFileInvalid, state.CategorySerialization,
			fmt.Sprintf("control file %q is not valid JSON", relPath), err)
	}

	return map[string]interface{}{
		"exists":   true,
		"done":     parsed.Done,
		"message":  parsed.Message,
		"metadata": parsed.Metadata,
	}, nil
}
