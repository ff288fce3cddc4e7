package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"newton/internal/workflowgraph/state"
)

// tickResult reports whether the outer loop should stop after this tick,
// and if the stop was forced by a hard failure (budget/iteration cap/
// continue_on_error), the status/code/message to finalize the execution
// with.
type tickResult struct {
	stop          bool
	forcedFailure bool
	errorCode     string
	message       string
}

// tick runs one iteration of the §4.6 loop.
func (e *Engine) tick(ctx context.Context) (tickResult, error) {
	if e.Doc.Workflow.Settings.MaxTimeSeconds > 0 && time.Since(e.startTime) >= time.Duration(e.Doc.Workflow.Settings.MaxTimeSeconds)*time.Second {
		e.markFailed(state.CodeTimeBudgetExceeded)
		e.checkpointNow(true, false)
		e.logger().Error("execution stopped", "execution_id", e.ExecutionID, "code", state.CodeTimeBudgetExceeded)
		return tickResult{stop: true, forcedFailure: true, errorCode: state.CodeTimeBudgetExceeded,
			message: "execution exceeded max_time_seconds"}, nil
	}

	batch, forced := e.drainBatch()
	if forced != nil {
		e.markFailed(forced.errorCode)
		e.checkpointNow(true, false)
		e.logger().Error("execution stopped", "execution_id", e.ExecutionID, "code", forced.errorCode)
		return *forced, nil
	}
	if len(batch) == 0 {
		return tickResult{stop: true}, nil
	}

	e.logger().Debug("tick dispatching batch", "execution_id", e.ExecutionID, "batch_size", len(batch))

	view := e.State.Snapshot(e.allTaskIDs())

	outcomes := e.runBatchConcurrently(ctx, batch, view)
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].TaskID < outcomes[j].TaskID })

	var terminalIDs []string
	for _, o := range outcomes {
		if t := e.TasksByID[o.TaskID]; t.Terminal == state.TerminalSuccess || t.Terminal == state.TerminalFailure {
			terminalIDs = append(terminalIDs, o.TaskID)
		}
	}

	for _, o := range outcomes {
		task := e.TasksByID[o.TaskID]
		e.insertCompleted(task, o)
		e.logger().Info("task completed", "execution_id", e.ExecutionID, "task_id", o.TaskID,
			"operator", task.Operator, "status", o.Status, "duration_ms", o.DurationMs)

		if o.Status == state.RunFailed && !e.Doc.Workflow.Settings.ContinueOnError {
			e.markFailed(state.CodeExecTaskFailed)
			e.checkpointNow(true, true)
			e.logger().Error("execution stopped", "execution_id", e.ExecutionID, "code", state.CodeExecTaskFailed, "task_id", o.TaskID)
			return tickResult{stop: true, forcedFailure: true, errorCode: state.CodeExecTaskFailed,
				message: fmt.Sprintf("task %q failed: %s", o.TaskID, o.Message)}, nil
		}

		postView := e.State.Snapshot(e.allTaskIDs())
		targets, err := selectTransitions(task, e.ExprEngine, postView)
		if err != nil {
			e.markFailed(state.CodeExprCompile)
			e.checkpointNow(true, true)
			return tickResult{stop: true, forcedFailure: true, errorCode: state.CodeExprCompile,
				message: err.Error()}, nil
		}
		for _, target := range targets {
			e.readyQueue = append(e.readyQueue, target)
		}
	}

	stop := false
	if len(terminalIDs) > 0 && e.Doc.Workflow.Settings.Completion.StopOnTerminal {
		stop = true
		if len(terminalIDs) > 1 {
			sort.Strings(terminalIDs)
			winner := terminalIDs[0]
			affected := terminalIDs[1:]
			e.warnings = append(e.warnings, fmt.Sprintf(
				"%s: multiple terminal tasks completed in one tick; winner=%s affected=%v",
				state.CodeTermMultiTie, winner, affected))
		}
	}

	e.checkpointNow(false, true)
	return tickResult{stop: stop}, nil
}

// drainBatch pops up to parallel_limit entries from the ready queue,
// applying the workflow- and task-iteration caps as it goes.
func (e *Engine) drainBatch() ([]batchEntry, *tickResult) {
	limit := e.Doc.Workflow.Settings.ParallelLimit
	if limit <= 0 {
		limit = 1
	}

	var batch []batchEntry
	for len(e.readyQueue) > 0 && len(batch) < limit {
		taskID := e.readyQueue[0]
		e.readyQueue = e.readyQueue[1:]

		task, ok := e.TasksByID[taskID]
		if !ok {
			continue
		}

		e.totalIterations++
		if e.Doc.Workflow.Settings.MaxWorkflowIterations > 0 && e.totalIterations > e.Doc.Workflow.Settings.MaxWorkflowIterations {
			return nil, &tickResult{stop: true, forcedFailure: true, errorCode: state.CodeIterWorkflowCap,
				message: "total_iterations exceeded max_workflow_iterations"}
		}

		e.taskIterations[taskID]++
		if e.taskIterations[taskID] > e.taskIterationCap(task) {
			return nil, &tickResult{stop: true, forcedFailure: true, errorCode: state.CodeIterTaskCap,
				message: fmt.Sprintf("task %q exceeded its iteration cap", taskID)}
		}

		batch = append(batch, batchEntry{Task: task, RunSeq: e.taskIterations[taskID]})
	}
	return batch, nil
}

type batchEntry struct {
	Task   state.Task
	RunSeq int
}

func (e *Engine) runBatchConcurrently(ctx context.Context, batch []batchEntry, view state.StateView) []taskOutcome {
	results := make(chan taskOutcome, len(batch))
	var wg sync.WaitGroup
	for _, entry := range batch {
		wg.Add(1)
		go func(entry batchEntry) {
			defer wg.Done()
			results <- e.runTask(ctx, entry.Task, entry.RunSeq, view)
		}(entry)
	}
	wg.Wait()
	close(results)

	outcomes := make([]taskOutcome, 0, len(batch))
	for o := range results {
		outcomes = append(outcomes, o)
	}
	return outcomes
}

func (e *Engine) insertCompleted(task state.Task, o taskOutcome) {
	record := state.TaskRunRecord{
		Status:     o.Status,
		Output:     o.Output,
		ErrorCode:  o.ErrorCode,
		DurationMs: o.DurationMs,
		RunSeq:     o.RunSeq,
	}

	ref, err := e.Artifacts.Route(e.ExecutionID, task.ID, o.RunSeq, o.Output, nil)
	if err != nil {
		ref = state.InlineOutput(map[string]interface{}{"artifact_routing_error": err.Error()})
	}
	persisted := state.WorkflowTaskRunRecord{
		TaskID:     task.ID,
		Status:     o.Status,
		Output:     ref,
		ErrorCode:  o.ErrorCode,
		DurationMs: o.DurationMs,
		RunSeq:     o.RunSeq,
	}

	e.State.InsertCompleted(task.ID, record, persisted)
	e.execution.TaskRuns = append(e.execution.TaskRuns, state.WorkflowTaskRunSummary{
		TaskID:      task.ID,
		Status:      o.Status,
		ErrorCode:   o.ErrorCode,
		DurationMs:  o.DurationMs,
		RunSeq:      o.RunSeq,
		CompletedAt: time.Now(),
	})
}

func (e *Engine) allTaskIDs() []string {
	ids := make([]string, 0, len(e.TasksByID))
	for id := range e.TasksByID {
		ids = append(ids, id)
	}
	return ids
}
