package checkpoint

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newton/internal/workflowgraph/state"
)

func TestSaveLoadExecution_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, nil, false)
	exec := &state.WorkflowExecution{
		FormatVersion:   state.ExecutionFormatVersion,
		ExecutionID:     "exec-1",
		WorkflowHash:    "abc123",
		StartedAt:       time.Now(),
		Status:          state.StatusRunning,
	}
	require.NoError(t, s.SaveExecution(exec))

	loaded, err := s.LoadExecution("exec-1")
	require.NoError(t, err)
	assert.Equal(t, "abc123", loaded.WorkflowHash)
	assert.Equal(t, state.StatusRunning, loaded.Status)
}

func TestSaveLoadCheckpoint_WorkflowHashMismatchFails(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, nil, false)
	ckpt := &state.WorkflowCheckpoint{
		FormatVersion: state.CheckpointFormatVersion,
		ExecutionID:   "exec-1",
		WorkflowHash:  "hash-a",
		CreatedAt:     time.Now(),
		Context:       map[string]interface{}{"x": 1},
		Completed:     map[string]state.WorkflowTaskRunRecord{},
	}
	require.NoError(t, s.SaveCheckpoint(ckpt))

	_, err := s.LoadCheckpoint("exec-1", "hash-b", false)
	require.Error(t, err)
	assert.True(t, state.IsCode(err, state.CodeCkptMismatch))

	loaded, err := s.LoadCheckpoint("exec-1", "hash-b", true)
	require.NoError(t, err)
	assert.Equal(t, "hash-a", loaded.WorkflowHash)
}

func TestSaveCheckpoint_RedactsContextKeys(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, []string{"secret"}, false)
	ckpt := &state.WorkflowCheckpoint{
		FormatVersion: state.CheckpointFormatVersion,
		ExecutionID:   "exec-1",
		WorkflowHash:  "hash-a",
		CreatedAt:     time.Now(),
		Context:       map[string]interface{}{"api_secret": "shh"},
		Completed:     map[string]state.WorkflowTaskRunRecord{},
	}
	require.NoError(t, s.SaveCheckpoint(ckpt))

	loaded, err := s.LoadCheckpoint("exec-1", "hash-a", false)
	require.NoError(t, err)
	assert.Equal(t, state.RedactedPlaceholder, loaded.Context["api_secret"])
}

func TestSaveCheckpoint_KeepHistoryWritesTimestampedCopy(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, nil, true)
	ckpt := &state.WorkflowCheckpoint{
		FormatVersion: state.CheckpointFormatVersion,
		ExecutionID:   "exec-1",
		WorkflowHash:  "hash-a",
		CreatedAt:     time.Now(),
		Context:       map[string]interface{}{},
		Completed:     map[string]state.WorkflowTaskRunRecord{},
	}
	require.NoError(t, s.SaveCheckpoint(ckpt))

	paths := NewPaths(dir, "exec-1")
	entries, err := os.ReadDir(paths.CheckpointsDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestList_ReportsKnownExecutions(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, nil, false)
	require.NoError(t, s.SaveExecution(&state.WorkflowExecution{
		FormatVersion: state.ExecutionFormatVersion,
		ExecutionID:   "exec-1",
		StartedAt:     time.Now(),
		Status:        state.StatusCompleted,
	}))
	require.NoError(t, s.SaveCheckpoint(&state.WorkflowCheckpoint{
		FormatVersion: state.CheckpointFormatVersion,
		ExecutionID:   "exec-1",
		CreatedAt:     time.Now(),
		Context:       map[string]interface{}{},
		Completed:     map[string]state.WorkflowTaskRunRecord{},
	}))

	summaries, err := s.List()
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "exec-1", summaries[0].ExecutionID)
	assert.Equal(t, state.StatusCompleted, summaries[0].Status)
}

func TestCollectLiveArtifactPaths_IncludesRunningExecutions(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, nil, false)
	require.NoError(t, s.SaveExecution(&state.WorkflowExecution{
		FormatVersion: state.ExecutionFormatVersion,
		ExecutionID:   "exec-1",
		StartedAt:     time.Now(),
		Status:        state.StatusRunning,
	}))
	require.NoError(t, s.SaveCheckpoint(&state.WorkflowCheckpoint{
		FormatVersion: state.CheckpointFormatVersion,
		ExecutionID:   "exec-1",
		CreatedAt:     time.Now(),
		Context:       map[string]interface{}{},
		Completed: map[string]state.WorkflowTaskRunRecord{
			"task-a": {TaskID: "task-a", Output: state.ArtifactOutput("workflows/exec-1/task/task-a/1/output.json", 10, "deadbeef")},
		},
	}))

	inputs, err := s.CollectLiveArtifactPaths()
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, state.StatusRunning, inputs[0].ExecutionStatus)
	assert.Contains(t, inputs[0].ArtifactPaths, "workflows/exec-1/task/task-a/1/output.json")
}
