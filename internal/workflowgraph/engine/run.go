package engine

import (
	"context"
	"time"

	"newton/internal/workflowgraph/policy"
	"newton/internal/workflowgraph/state"
)

// RunResult is the outcome of driving an Engine's tick loop to completion.
type RunResult struct {
	Status    state.ExecutionStatus
	ErrorCode string
	Message   string
	Warnings  []string
}

// Run drives the tick loop (§4.6) until the ready queue is empty, a
// terminal stop is reached, or a forced failure occurs, then hands off to
// the completion-policy evaluator (§4.7) and finalizes execution.json.
func (e *Engine) Run(ctx context.Context) (*RunResult, error) {
	var result tickResult
	for {
		r, err := e.tick(ctx)
		if err != nil {
			return nil, err
		}
		result = r
		if result.stop {
			break
		}
	}

	now := time.Now()
	e.execution.CompletedAt = &now

	if result.forcedFailure {
		e.execution.Status = state.StatusFailed
		e.execution.ErrorCode = result.errorCode
		e.checkpointNow(true, false)
		e.logger().Error("execution finished", "execution_id", e.ExecutionID, "status", state.StatusFailed, "code", result.errorCode)
		return &RunResult{
			Status:    state.StatusFailed,
			ErrorCode: result.errorCode,
			Message:   result.message,
			Warnings:  e.warnings,
		}, nil
	}

	verdict := policy.Evaluate(e.Doc.Workflow.Settings, e.TasksByID, e.State.Completed())
	e.execution.Status = verdict.Status
	if verdict.Err != nil {
		e.execution.ErrorCode = verdict.Err.Code
	}
	e.checkpointNow(true, false)
	e.logger().Info("execution finished", "execution_id", e.ExecutionID, "status", verdict.Status)

	out := &RunResult{Status: verdict.Status, Warnings: e.warnings}
	if verdict.Err != nil {
		out.ErrorCode = verdict.Err.Code
		out.Message = verdict.Err.Message
	}
	return out, nil
}
