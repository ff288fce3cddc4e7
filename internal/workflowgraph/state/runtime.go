package state

import (
	"sync"
	"time"
)

// RunStatus is the outcome of a single task run.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
	RunSkipped RunStatus = "skipped"
)

// TaskRunRecord is the in-memory record of one task execution, keyed by
// task id in ExecutionState.Completed. Output carries the raw (pre-artifact
// routing) value; the engine routes it through the artifact store into an
// OutputRef when it records the run, and checkpoints carry that form.
type TaskRunRecord struct {
	Status     RunStatus   `json:"status"`
	Output     interface{} `json:"output"`
	ErrorCode  string      `json:"error_code,omitempty"`
	DurationMs int64       `json:"duration_ms"`
	RunSeq     int         `json:"run_seq"`
}

// OutputRefKind tags which variant of OutputRef is populated.
type OutputRefKind string

const (
	OutputInline   OutputRefKind = "inline"
	OutputArtifact OutputRefKind = "artifact"
)

// OutputRef is the persisted form of a task run's output: either the value
// inline, or a pointer to an on-disk artifact.
type OutputRef struct {
	Kind     OutputRefKind `json:"kind"`
	Value    interface{}   `json:"value,omitempty"`
	Path     string        `json:"path,omitempty"`
	SizeBytes int64        `json:"size_bytes,omitempty"`
	SHA256   string        `json:"sha256,omitempty"`
}

func InlineOutput(value interface{}) OutputRef {
	return OutputRef{Kind: OutputInline, Value: value}
}

func ArtifactOutput(path string, size int64, sha256 string) OutputRef {
	return OutputRef{Kind: OutputArtifact, Path: path, SizeBytes: size, SHA256: sha256}
}

// WorkflowTaskRunRecord is the persisted form of TaskRunRecord, with Output
// routed through the artifact store.
type WorkflowTaskRunRecord struct {
	TaskID     string    `json:"task_id"`
	Status     RunStatus `json:"status"`
	Output     OutputRef `json:"output"`
	ErrorCode  string    `json:"error_code,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	RunSeq     int       `json:"run_seq"`
}

// WorkflowTaskRunSummary is the flat entry appended to WorkflowExecution's
// task_runs list — one per completed task run, in completion order.
type WorkflowTaskRunSummary struct {
	TaskID      string    `json:"task_id"`
	Status      RunStatus `json:"status"`
	ErrorCode   string    `json:"error_code,omitempty"`
	DurationMs  int64     `json:"duration_ms"`
	RunSeq      int       `json:"run_seq"`
	CompletedAt time.Time `json:"completed_at"`
}

// ExecutionStatus is the final (or in-flight) status of a workflow execution.
type ExecutionStatus string

const (
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
	StatusCancelled ExecutionStatus = "cancelled"
)

// WorkflowExecution is the persisted execution.json catalog entry.
type WorkflowExecution struct {
	FormatVersion     int                      `json:"format_version"`
	ExecutionID       string                   `json:"execution_id"`
	WorkflowPath      string                   `json:"workflow_path"`
	WorkflowVersion   string                   `json:"workflow_version"`
	WorkflowHash      string                   `json:"workflow_hash"`
	StartedAt         time.Time                `json:"started_at"`
	CompletedAt       *time.Time               `json:"completed_at,omitempty"`
	Status            ExecutionStatus          `json:"status"`
	ErrorCode         string                   `json:"error_code,omitempty"`
	Settings          Settings                 `json:"settings"`
	TriggerPayload    map[string]interface{}   `json:"trigger_payload,omitempty"`
	TaskRuns          []WorkflowTaskRunSummary `json:"task_runs"`
	Warnings          []string                 `json:"warnings,omitempty"`
}

const ExecutionFormatVersion = 1

// WorkflowCheckpoint is the persisted checkpoint.json replayable snapshot.
type WorkflowCheckpoint struct {
	FormatVersion   int                              `json:"format_version"`
	ExecutionID     string                           `json:"execution_id"`
	WorkflowHash    string                            `json:"workflow_hash"`
	CreatedAt       time.Time                         `json:"created_at"`
	ReadyQueue      []string                          `json:"ready_queue"`
	Context         map[string]interface{}            `json:"context"`
	TriggerPayload  map[string]interface{}            `json:"trigger_payload,omitempty"`
	TaskIterations  map[string]int                    `json:"task_iterations"`
	TotalIterations int                               `json:"total_iterations"`
	Completed       map[string]WorkflowTaskRunRecord  `json:"completed"`
}

const CheckpointFormatVersion = 1

// TaskView is the per-task visibility surface exposed to expressions and
// operators via StateView.Tasks. Status is "missing" for tasks that have
// not yet completed in this execution.
type TaskView struct {
	Status    string      `json:"status"`
	Output    interface{} `json:"output,omitempty"`
	ErrorCode string      `json:"error_code,omitempty"`
}

const TaskStatusMissing = "missing"

// StateView is the immutable per-tick snapshot of {context, tasks,
// triggers} passed to operators and expression evaluation. No shared
// mutable handles leak to operators through a StateView.
type StateView struct {
	Context  map[string]interface{}
	Tasks    map[string]TaskView
	Triggers map[string]interface{}
}

// ExecutionState is the scheduler's mutable, in-memory state, guarded by a
// reader-writer lock: reads snapshot it at tick start, writes insert
// frontier results and apply patches during frontier processing. The lock
// is never held across a suspension point.
type ExecutionState struct {
	mu                sync.RWMutex
	context           map[string]interface{}
	completed         map[string]TaskRunRecord
	checkpointRecords map[string]WorkflowTaskRunRecord
	triggers          map[string]interface{}
}

// NewExecutionState constructs an ExecutionState from an initial context
// and trigger payload (both owned copies are made by the caller).
func NewExecutionState(context map[string]interface{}, triggers map[string]interface{}) *ExecutionState {
	if context == nil {
		context = map[string]interface{}{}
	}
	if triggers == nil {
		triggers = map[string]interface{}{}
	}
	return &ExecutionState{
		context:           context,
		completed:         map[string]TaskRunRecord{},
		checkpointRecords: map[string]WorkflowTaskRunRecord{},
		triggers:          triggers,
	}
}

// Snapshot takes a reader lock and returns an immutable deep-cloned
// StateView reflecting the state at this instant. taskIDs supplies the
// full task set so tasks that have not run yet appear with status
// "missing" rather than being absent from the view.
func (s *ExecutionState) Snapshot(taskIDs []string) StateView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view := StateView{
		Context:  deepCopyJSON(s.context).(map[string]interface{}),
		Tasks:    make(map[string]TaskView, len(taskIDs)),
		Triggers: deepCopyJSON(s.triggers).(map[string]interface{}),
	}
	for _, id := range taskIDs {
		if rec, ok := s.completed[id]; ok {
			view.Tasks[id] = TaskView{
				Status:    string(rec.Status),
				Output:    deepCopyJSON(rec.Output),
				ErrorCode: rec.ErrorCode,
			}
		} else {
			view.Tasks[id] = TaskView{Status: TaskStatusMissing}
		}
	}
	return view
}

// InsertCompleted records a task run outcome and, if its output is an
// object carrying a "patch" key, deep-merges that sub-object into the live
// context. It acquires the writer lock only for the duration of the insert
// and merge — never across a suspension point.
func (s *ExecutionState) InsertCompleted(taskID string, record TaskRunRecord, persisted WorkflowTaskRunRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.completed[taskID] = record
	s.checkpointRecords[taskID] = persisted

	if obj, ok := record.Output.(map[string]interface{}); ok {
		if patch, ok := obj["patch"].(map[string]interface{}); ok {
			s.context = deepMergeJSON(s.context, patch)
		}
	}
}

// Completed returns a snapshot copy of the in-memory completed map.
func (s *ExecutionState) Completed() map[string]TaskRunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]TaskRunRecord, len(s.completed))
	for k, v := range s.completed {
		out[k] = v
	}
	return out
}

// CheckpointRecords returns a snapshot copy of the persisted-form completed
// map, for writing into a WorkflowCheckpoint.
func (s *ExecutionState) CheckpointRecords() map[string]WorkflowTaskRunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]WorkflowTaskRunRecord, len(s.checkpointRecords))
	for k, v := range s.checkpointRecords {
		out[k] = v
	}
	return out
}

// Context returns a deep-cloned copy of the live context.
func (s *ExecutionState) Context() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return deepCopyJSON(s.context).(map[string]interface{})
}

// Triggers returns a deep-cloned copy of the trigger payload.
func (s *ExecutionState) Triggers() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return deepCopyJSON(s.triggers).(map[string]interface{})
}

// deepCopyJSON clones a value built only from the JSON-compatible types
// (map[string]interface{}, []interface{}, string, float64/int, bool, nil).
func deepCopyJSON(v interface{}) interface{} {
	switch vv := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(vv))
		for k, val := range vv {
			out[k] = deepCopyJSON(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(vv))
		for i, val := range vv {
			out[i] = deepCopyJSON(val)
		}
		return out
	default:
		return v
	}
}

// deepMergeJSON merges patch into base: object ∪ object recurses, any other
// pair (including type mismatches) replaces the base value outright.
func deepMergeJSON(base, patch map[string]interface{}) map[string]interface{} {
	out := deepCopyJSON(base).(map[string]interface{})
	for k, pv := range patch {
		if bv, exists := out[k]; exists {
			bvMap, bvIsMap := bv.(map[string]interface{})
			pvMap, pvIsMap := pv.(map[string]interface{})
			if bvIsMap && pvIsMap {
				out[k] = deepMergeJSON(bvMap, pvMap)
				continue
			}
		}
		out[k] = deepCopyJSON(pv)
	}
	return out
}

// MergePatch exposes deepMergeJSON, the merge InsertCompleted applies to a
// task output's "patch" object, for callers outside this package.
func MergePatch(base, patch map[string]interface{}) map[string]interface{} {
	return deepMergeJSON(base, patch)
}
