// Package policy implements the completion-policy evaluator (§4.7): a pure
// function from settings, the task table, and the completed-run map to a
// final Completed/Failed verdict.
package policy

import (
	"fmt"
	"sort"

	"newton/internal/workflowgraph/state"
)

// Verdict is the completion-policy evaluator's result.
type Verdict struct {
	Status state.ExecutionStatus
	Err    *state.EngineError
}

// Evaluate applies the four completion rules in order: goal gates, task
// failures, terminal failure, else Completed. tasksByID is the full task
// table (for goal-gate enumeration); completed is the run-result map keyed
// by task id.
func Evaluate(settings state.Settings, tasksByID map[string]state.Task, completed map[string]state.TaskRunRecord) Verdict {
	if v := evaluateGoalGates(settings, tasksByID, completed); v != nil {
		return *v
	}
	if v := evaluateTaskFailures(settings, completed); v != nil {
		return *v
	}
	if v := evaluateTerminalFailure(tasksByID, completed); v != nil {
		return *v
	}
	return Verdict{Status: state.StatusCompleted}
}

func evaluateGoalGates(settings state.Settings, tasksByID map[string]state.Task, completed map[string]state.TaskRunRecord) *Verdict {
	var failures []string

	var gateIDs []string
	for id, t := range tasksByID {
		if t.GoalGate {
			gateIDs = append(gateIDs, id)
		}
	}
	sort.Strings(gateIDs)

	for _, id := range gateIDs {
		task := tasksByID[id]
		record, ok := completed[id]
		if !ok {
			if settings.Completion.RequireGoalGates {
				failures = append(failures, gateEntry(id, "not_reached", task.GoalGateGroup))
			}
			continue
		}
		if record.Status != state.RunSuccess && settings.Completion.GoalGateFailureBehavior != state.GoalGateBehaviorAllow {
			failures = append(failures, gateEntry(id, string(record.Status), task.GoalGateGroup))
		}
	}

	if len(failures) == 0 {
		return nil
	}
	sort.Strings(failures)
	return &Verdict{
		Status: state.StatusFailed,
		Err: state.NewError(state.CodeGateNotPassed, state.CategoryValidation,
			fmt.Sprintf("goal gates not passed: %s", joinComma(failures))),
	}
}

func gateEntry(id, status, group string) string {
	if group == "" {
		return fmt.Sprintf("%s=%s", id, status)
	}
	return fmt.Sprintf("%s=%s (group=%s)", id, status, group)
}

func evaluateTaskFailures(settings state.Settings, completed map[string]state.TaskRunRecord) *Verdict {
	if !settings.Completion.SuccessRequiresNoTaskFailure {
		return nil
	}
	for _, record := range completed {
		if record.Status == state.RunFailed {
			return &Verdict{
				Status: state.StatusFailed,
				Err: state.NewError(state.CodeExecTaskFailed, state.CategoryToolExecution,
					"a task failed and success_requires_no_task_failures is set"),
			}
		}
	}
	return nil
}

func evaluateTerminalFailure(tasksByID map[string]state.Task, completed map[string]state.TaskRunRecord) *Verdict {
	var ids []string
	for id := range completed {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		task, ok := tasksByID[id]
		if !ok || task.Terminal != "failure" {
			continue
		}
		return &Verdict{
			Status: state.StatusFailed,
			Err: state.NewError(state.CodeExecTerminalFailure, state.CategoryToolExecution,
				fmt.Sprintf("task %q completed as a failure-terminal task", id)),
		}
	}
	return nil
}

func joinComma(items []string) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ", "
		}
		out += item
	}
	return out
}
