// Package engine implements the scheduler/executor tick loop (§4.6), the
// completion-policy handoff, checkpointing (§4.8), and the resume path
// (§4.9).
package engine

import (
	"log/slog"
	"time"

	"newton/internal/workflowgraph/artifact"
	"newton/internal/workflowgraph/checkpoint"
	"newton/internal/workflowgraph/expr"
	"newton/internal/workflowgraph/operator"
	"newton/internal/workflowgraph/state"
)

const defaultMaxTaskIterations = 100

// Engine drives one workflow execution's tick loop. It owns the scheduler
// state named in §4.6 (tasksByID, readyQueue, taskIterations,
// totalIterations, lastCheckpoint, startTime) plus the shared
// ExecutionState and the collaborator packages (operator registry,
// artifact store, checkpoint store, expression engine).
type Engine struct {
	ExecutionID   string
	WorkflowPath  string
	WorkflowHash  string
	WorkspacePath string
	Doc           *state.WorkflowDocument
	TasksByID     map[string]state.Task

	Registry    *operator.Registry
	ExprEngine  *expr.Engine
	Artifacts   *artifact.Store
	Checkpoints *checkpoint.Store

	State *state.ExecutionState

	// Logger receives the engine's structured records: execution started,
	// resumed, stopped and finished, one record per completed task, and a
	// debug record per dispatched batch. Checkpoint writes are not logged.
	// Defaults to slog.Default() when left nil, so callers that don't
	// care about engine-level logs don't need to wire anything.
	Logger *slog.Logger

	readyQueue      []string
	taskIterations  map[string]int
	totalIterations int
	lastCheckpoint  time.Time
	startTime       time.Time

	execution *state.WorkflowExecution
	warnings  []string
}

// New constructs an Engine ready to run from the entry task, with a fresh
// ExecutionState seeded from the document's context and the given trigger
// payload.
func New(executionID, workflowPath, workflowHash, workspacePath string, doc *state.WorkflowDocument, registry *operator.Registry, exprEngine *expr.Engine, artifacts *artifact.Store, checkpoints *checkpoint.Store, triggerPayload map[string]interface{}) *Engine {
	tasksByID := make(map[string]state.Task, len(doc.Workflow.Tasks))
	for _, t := range doc.Workflow.Tasks {
		tasksByID[t.ID] = t
	}

	now := time.Now()
	e := &Engine{
		ExecutionID:    executionID,
		WorkflowPath:   workflowPath,
		WorkflowHash:   workflowHash,
		WorkspacePath:  workspacePath,
		Doc:            doc,
		TasksByID:      tasksByID,
		Registry:       registry,
		ExprEngine:     exprEngine,
		Artifacts:      artifacts,
		Checkpoints:    checkpoints,
		State:          state.NewExecutionState(doc.Workflow.Context, triggerPayload),
		readyQueue:     []string{doc.Workflow.Settings.EntryTask},
		taskIterations: map[string]int{},
		startTime:      now,
		lastCheckpoint: now,
		execution: &state.WorkflowExecution{
			FormatVersion:   state.ExecutionFormatVersion,
			ExecutionID:     executionID,
			WorkflowPath:    workflowPath,
			WorkflowVersion: doc.Version,
			WorkflowHash:    workflowHash,
			StartedAt:       now,
			Status:          state.StatusRunning,
			Settings:        doc.Workflow.Settings,
			TriggerPayload:  triggerPayload,
		},
	}
	e.logger().Info("execution started", "execution_id", executionID, "entry_task", doc.Workflow.Settings.EntryTask)
	return e
}

// logger returns e.Logger, falling back to slog.Default() so a zero-value
// or New-constructed Engine never needs a nil check at call sites.
func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e *Engine) taskIterationCap(t state.Task) int {
	if t.MaxIterations > 0 {
		return t.MaxIterations
	}
	if e.Doc.Workflow.Settings.MaxTaskIterations > 0 {
		return e.Doc.Workflow.Settings.MaxTaskIterations
	}
	return defaultMaxTaskIterations
}
