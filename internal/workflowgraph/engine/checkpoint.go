package engine

import (
	"time"

	"newton/internal/workflowgraph/state"
)

// markFailed records a forced-failure status/code on the in-memory
// execution record ahead of a forced checkpoint, so execution.json
// reflects the failure even if the process exits immediately after.
func (e *Engine) markFailed(code string) {
	now := time.Now()
	e.execution.Status = state.StatusFailed
	e.execution.ErrorCode = code
	e.execution.CompletedAt = &now
}

// checkpointNow implements §4.8's write policy: execution.json is always
// written here (every checkpoint decision point); checkpoint.json is
// written when checkpoint.enabled AND (on_task_complete and this tick
// processed at least one task, OR interval_seconds has elapsed since the
// last checkpoint), or unconditionally when force is set (terminal stops,
// fatal errors).
func (e *Engine) checkpointNow(force, tickProcessedTasks bool) {
	e.execution.Warnings = append(e.execution.Warnings[:0], e.warnings...)
	_ = e.Checkpoints.SaveExecution(e.execution)

	cfg := e.Doc.Workflow.Settings.Checkpoint
	intervalElapsed := cfg.IntervalSeconds > 0 && time.Since(e.lastCheckpoint) >= time.Duration(cfg.IntervalSeconds)*time.Second

	shouldCheckpoint := force || (cfg.Enabled && ((cfg.OnTaskComplete && tickProcessedTasks) || intervalElapsed))
	if !shouldCheckpoint {
		return
	}

	taskIterations := make(map[string]int, len(e.taskIterations))
	for k, v := range e.taskIterations {
		taskIterations[k] = v
	}

	ckpt := &state.WorkflowCheckpoint{
		FormatVersion:   state.CheckpointFormatVersion,
		ExecutionID:     e.ExecutionID,
		WorkflowHash:    e.WorkflowHash,
		CreatedAt:       time.Now(),
		ReadyQueue:      append([]string{}, e.readyQueue...),
		Context:         e.State.Context(),
		TriggerPayload:  e.State.Triggers(),
		TaskIterations:  taskIterations,
		TotalIterations: e.totalIterations,
		Completed:       e.State.CheckpointRecords(),
	}
	_ = e.Checkpoints.SaveCheckpoint(ckpt)
	e.lastCheckpoint = ckpt.CreatedAt
}
