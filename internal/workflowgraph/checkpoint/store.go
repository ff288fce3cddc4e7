package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"newton/internal/workflowgraph/state"
)

// Store reads and writes execution.json/checkpoint.json for one workspace
// root, redacting context on write per the configured redact_keys.
type Store struct {
	workspaceRoot string
	redactKeys    []string
	keepHistory   bool
}

func NewStore(workspaceRoot string, redactKeys []string, keepHistory bool) *Store {
	return &Store{workspaceRoot: workspaceRoot, redactKeys: redactKeys, keepHistory: keepHistory}
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return state.WrapError(state.CodeCkptMismatch, state.CategoryIO,
			"failed to create execution state directory", err)
	}
	tmp, err := os.CreateTemp(dir, ".ckpt-*.tmp")
	if err != nil {
		return state.WrapError(state.CodeCkptMismatch, state.CategoryIO,
			"failed to create temp state file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return state.WrapError(state.CodeCkptMismatch, state.CategoryIO,
			"failed to write temp state file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return state.WrapError(state.CodeCkptMismatch, state.CategoryIO,
			"failed to close temp state file", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return state.WrapError(state.CodeCkptMismatch, state.CategoryIO,
			"failed to rename temp state file into place", err)
	}
	return nil
}

// SaveExecution writes execution.json atomically.
func (s *Store) SaveExecution(exec *state.WorkflowExecution) error {
	paths := NewPaths(s.workspaceRoot, exec.ExecutionID)
	data, err := json.MarshalIndent(exec, "", "  ")
	if err != nil {
		return state.WrapError(state.CodeCkptMismatch, state.CategorySerialization,
			"failed to serialize execution.json", err)
	}
	return writeAtomic(paths.ExecutionFile, data)
}

// LoadExecution reads execution.json for executionID.
func (s *Store) LoadExecution(executionID string) (*state.WorkflowExecution, error) {
	paths := NewPaths(s.workspaceRoot, executionID)
	data, err := os.ReadFile(paths.ExecutionFile)
	if err != nil {
		return nil, state.WrapError(state.CodeCkptMismatch, state.CategoryIO,
			"failed to read execution.json", err)
	}
	var exec state.WorkflowExecution
	if err := json.Unmarshal(data, &exec); err != nil {
		return nil, state.WrapError(state.CodeCkptMismatch, state.CategorySerialization,
			"failed to deserialize execution.json", err)
	}
	return &exec, nil
}

// SaveCheckpoint redacts ckpt.Context, writes checkpoint.json atomically,
// and — when keepHistory is set — also writes a timestamped copy under
// checkpoints/checkpoint-<rfc3339>.json, with the timestamp's colons
// replaced by dashes.
func (s *Store) SaveCheckpoint(ckpt *state.WorkflowCheckpoint) error {
	redacted := *ckpt
	redacted.Context = state.Redact(ckpt.Context, s.redactKeys).(map[string]interface{})

	paths := NewPaths(s.workspaceRoot, ckpt.ExecutionID)
	data, err := json.MarshalIndent(redacted, "", "  ")
	if err != nil {
		return state.WrapError(state.CodeCkptMismatch, state.CategorySerialization,
			"failed to serialize checkpoint.json", err)
	}
	if err := writeAtomic(paths.CheckpointFile, data); err != nil {
		return err
	}

	if s.keepHistory {
		if err := os.MkdirAll(paths.CheckpointsDir, 0o755); err != nil {
			return state.WrapError(state.CodeCkptMismatch, state.CategoryIO,
				"failed to create checkpoints history directory", err)
		}
		ts := strings.ReplaceAll(ckpt.CreatedAt.UTC().Format(time.RFC3339), ":", "-")
		historic := filepath.Join(paths.CheckpointsDir, "checkpoint-"+ts+".json")
		if err := writeAtomic(historic, data); err != nil {
			return err
		}
	}
	return nil
}

// LoadCheckpoint reads checkpoint.json for executionID and verifies its
// workflow_hash matches currentWorkflowHash, failing WFG-CKPT-001 if the
// workflow definition changed underneath a resumed execution (unless
// allowWorkflowChange is set).
func (s *Store) LoadCheckpoint(executionID, currentWorkflowHash string, allowWorkflowChange bool) (*state.WorkflowCheckpoint, error) {
	paths := NewPaths(s.workspaceRoot, executionID)
	data, err := os.ReadFile(paths.CheckpointFile)
	if err != nil {
		return nil, state.WrapError(state.CodeCkptMismatch, state.CategoryIO,
			"failed to read checkpoint.json", err)
	}
	var ckpt state.WorkflowCheckpoint
	if err := json.Unmarshal(data, &ckpt); err != nil {
		return nil, state.WrapError(state.CodeCkptMismatch, state.CategorySerialization,
			"failed to deserialize checkpoint.json", err)
	}
	if !allowWorkflowChange && ckpt.WorkflowHash != currentWorkflowHash {
		return nil, state.NewError(state.CodeCkptMismatch, state.CategoryValidation,
			"checkpoint workflow_hash does not match the current workflow definition")
	}
	return &ckpt, nil
}
