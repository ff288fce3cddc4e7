package engine

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"newton/internal/workflowgraph/operator"
	"newton/internal/workflowgraph/state"
)

// taskOutcome is one task run's result, post retry loop, ready to be sorted
// into the frontier-processing order and inserted into completed.
type taskOutcome struct {
	TaskID     string
	Status     state.RunStatus
	Output     interface{}
	ErrorCode  string
	Message    string
	DurationMs int64
	RunSeq     int
}

// runTask resolves params, validates them against the operator, then runs
// the retry loop: up to retry.MaxAttempts attempts, each optionally raced
// against task.TimeoutMs, with sleeps between attempts of
// backoff_ms*attempt, or backoff_ms*backoff_multiplier^(attempt-1) when a
// multiplier is set (plus jitter).
func (e *Engine) runTask(ctx context.Context, task state.Task, runSeq int, view state.StateView) taskOutcome {
	start := time.Now()

	op, err := e.Registry.Get(task.Operator)
	if err != nil {
		return failureOutcome(task.ID, runSeq, start, err)
	}

	params, err := resolveTaskParams(task, e.ExprEngine, view)
	if err != nil {
		return failureOutcome(task.ID, runSeq, start, err)
	}

	if err := op.ValidateParams(params); err != nil {
		return failureOutcome(task.ID, runSeq, start, err)
	}

	retry := task.Retry
	if retry == nil {
		retry = &state.RetryPolicy{MaxAttempts: 1}
	}

	ec := operator.ExecContext{
		WorkspacePath: e.WorkspacePath,
		ExecutionID:   e.ExecutionID,
		TaskID:        task.ID,
		RunSeq:        runSeq,
		View:          view,
	}

	var lastErr error
	for attempt := 1; attempt <= maxInt(retry.MaxAttempts, 1); attempt++ {
		output, err := e.executeOnce(ctx, op, params, ec, task.TimeoutMs)
		if err == nil {
			return taskOutcome{
				TaskID:     task.ID,
				Status:     state.RunSuccess,
				Output:     output,
				DurationMs: time.Since(start).Milliseconds(),
				RunSeq:     runSeq,
			}
		}
		lastErr = err
		if attempt < maxInt(retry.MaxAttempts, 1) {
			sleepBackoff(retry, attempt)
		}
	}

	return failureOutcome(task.ID, runSeq, start, lastErr)
}

func (e *Engine) executeOnce(ctx context.Context, op operator.Operator, params map[string]interface{}, ec operator.ExecContext, timeoutMs int64) (interface{}, error) {
	if timeoutMs <= 0 {
		return op.Execute(ctx, params, ec)
	}

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
	defer cancel()

	type result struct {
		output interface{}
		err    error
	}
	done := make(chan result, 1)
	go func() {
		output, err := op.Execute(callCtx, params, ec)
		done <- result{output: output, err: err}
	}()

	select {
	case r := <-done:
		return r.output, r.err
	case <-callCtx.Done():
		return nil, state.NewError(state.CodeTimeTaskTimeout, state.CategoryTimeout,
			fmt.Sprintf("task %q exceeded its %dms timeout", ec.TaskID, timeoutMs))
	}
}

func sleepBackoff(retry *state.RetryPolicy, attempt int) {
	backoff := float64(retry.BackoffMs) * float64(attempt)
	if retry.BackoffMultiplier > 0 {
		backoff = float64(retry.BackoffMs) * pow(retry.BackoffMultiplier, attempt-1)
	}
	delay := time.Duration(backoff) * time.Millisecond
	if retry.JitterMs > 0 {
		delay += time.Duration(rand.Int63n(retry.JitterMs)) * time.Millisecond
	}
	if delay > 0 {
		time.Sleep(delay)
	}
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}

func failureOutcome(taskID string, runSeq int, start time.Time, err error) taskOutcome {
	code := ""
	if c, ok := state.CodeOf(err); ok {
		code = c
	}
	return taskOutcome{
		TaskID:     taskID,
		Status:     state.RunFailed,
		Output:     map[string]interface{}{"error": err.Error()},
		ErrorCode:  code,
		Message:    err.Error(),
		DurationMs: time.Since(start).Milliseconds(),
		RunSeq:     runSeq,
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
