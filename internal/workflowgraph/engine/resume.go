package engine

import (
	"encoding/json"
	"os"
	"path/filepath"

	"newton/internal/workflowgraph/artifact"
	"newton/internal/workflowgraph/checkpoint"
	"newton/internal/workflowgraph/expr"
	"newton/internal/workflowgraph/operator"
	"newton/internal/workflowgraph/state"
)

// Resume rehydrates an Engine from a previously written checkpoint (§4.9):
// task_iterations, total_iterations, ready_queue, context, and triggers are
// loaded verbatim; completed is rebuilt by materializing every OutputRef
// (inline values pass through, artifact references are read from disk and
// JSON-decoded). The workflow document passed in must already be the
// freshly re-parsed, post-transform definition for this execution; its
// hash is compared against the checkpoint's workflow_hash by the
// checkpoint store (WFG-CKPT-001 on mismatch unless allowWorkflowChange).
func Resume(executionID, workflowPath, workflowHash, workspacePath string, doc *state.WorkflowDocument, registry *operator.Registry, exprEngine *expr.Engine, artifacts *artifact.Store, checkpoints *checkpoint.Store, allowWorkflowChange bool) (*Engine, error) {
	exec, err := checkpoints.LoadExecution(executionID)
	if err != nil {
		return nil, err
	}
	ckpt, err := checkpoints.LoadCheckpoint(executionID, workflowHash, allowWorkflowChange)
	if err != nil {
		return nil, err
	}

	tasksByID := make(map[string]state.Task, len(doc.Workflow.Tasks))
	for _, t := range doc.Workflow.Tasks {
		tasksByID[t.ID] = t
	}

	completed := map[string]state.TaskRunRecord{}
	for taskID, rec := range ckpt.Completed {
		value, err := materializeOutputRef(artifacts.Root(), rec.Output)
		if err != nil {
			return nil, err
		}
		completed[taskID] = state.TaskRunRecord{
			Status:     rec.Status,
			Output:     value,
			ErrorCode:  rec.ErrorCode,
			DurationMs: rec.DurationMs,
			RunSeq:     rec.RunSeq,
		}
	}

	execState := state.NewExecutionState(ckpt.Context, ckpt.TriggerPayload)
	for taskID, rec := range completed {
		execState.InsertCompleted(taskID, rec, ckpt.Completed[taskID])
	}

	taskIterations := make(map[string]int, len(ckpt.TaskIterations))
	for k, v := range ckpt.TaskIterations {
		taskIterations[k] = v
	}

	e := &Engine{
		ExecutionID:     executionID,
		WorkflowPath:    workflowPath,
		WorkflowHash:    workflowHash,
		WorkspacePath:   workspacePath,
		Doc:             doc,
		TasksByID:       tasksByID,
		Registry:        registry,
		ExprEngine:      exprEngine,
		Artifacts:       artifacts,
		Checkpoints:     checkpoints,
		State:           execState,
		readyQueue:      append([]string{}, ckpt.ReadyQueue...),
		taskIterations:  taskIterations,
		totalIterations: ckpt.TotalIterations,
		execution:       exec,
	}
	e.startTime = exec.StartedAt
	e.lastCheckpoint = ckpt.CreatedAt
	e.execution.Status = state.StatusRunning
	e.execution.CompletedAt = nil
	e.execution.ErrorCode = ""

	e.logger().Info("execution resumed", "execution_id", executionID, "ready_queue", e.readyQueue, "total_iterations", e.totalIterations)
	return e, nil
}

// materializeOutputRef resolves a persisted OutputRef back into its value:
// an inline ref returns Value verbatim; an artifact ref is read from disk
// (relative to artifactRoot, the artifact store's resolved root) and
// JSON-decoded.
func materializeOutputRef(artifactRoot string, ref state.OutputRef) (interface{}, error) {
	if ref.Kind == state.OutputInline {
		return ref.Value, nil
	}

	path := ref.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(artifactRoot, ref.Path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, state.WrapError(state.CodeArtPathEscape, state.CategoryIO,
			"failed to read artifact referenced by checkpoint", err)
	}
	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, state.WrapError(state.CodeArtPathEscape, state.CategorySerialization,
			"failed to decode artifact referenced by checkpoint", err)
	}
	return value, nil
}
