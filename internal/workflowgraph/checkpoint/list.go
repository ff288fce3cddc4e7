package checkpoint

import (
	"os"
	"path/filepath"
	"time"

	"newton/internal/workflowgraph/artifact"
	"newton/internal/workflowgraph/state"
)

// Summary is one row of `checkpoints list`.
type Summary struct {
	ExecutionID    string
	Status         state.ExecutionStatus
	StartedAt      time.Time
	CheckpointAge  time.Duration
	CheckpointSize int64
}

// List enumerates every execution directory under the state root and
// reports its execution status alongside its checkpoint.json's age and
// size. Executions with no readable execution.json/checkpoint.json pair
// are silently skipped, matching the original CLI's best-effort listing.
func (s *Store) List() ([]Summary, error) {
	base := StateRoot(s.workspaceRoot)
	dirEntries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, state.WrapError(state.CodeCkptMismatch, state.CategoryIO,
			"failed to list workflow state directory", err)
	}

	now := time.Now()
	var out []Summary
	for _, entry := range dirEntries {
		if !entry.IsDir() {
			continue
		}
		executionID := entry.Name()
		exec, err := s.LoadExecution(executionID)
		if err != nil {
			continue
		}
		paths := NewPaths(s.workspaceRoot, executionID)
		info, err := os.Stat(paths.CheckpointFile)
		if err != nil {
			continue
		}
		out = append(out, Summary{
			ExecutionID:    executionID,
			Status:         exec.Status,
			StartedAt:      exec.StartedAt,
			CheckpointAge:  now.Sub(info.ModTime()),
			CheckpointSize: info.Size(),
		})
	}
	return out, nil
}

// Clean deletes history files under every execution's checkpoints/ dir
// whose modification time is at least olderThan in the past. The current
// checkpoint.json/execution.json are never removed by this path — only
// the keep_history snapshots the scheduler writes over time.
func (s *Store) Clean(olderThan time.Duration) error {
	base := StateRoot(s.workspaceRoot)
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return state.WrapError(state.CodeCkptMismatch, state.CategoryIO,
			"failed to list workflow state directory", err)
	}

	now := time.Now()
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		checkpointsDir := filepath.Join(base, entry.Name(), "checkpoints")
		items, err := os.ReadDir(checkpointsDir)
		if err != nil {
			continue
		}
		for _, item := range items {
			info, err := item.Info()
			if err != nil {
				continue
			}
			if now.Sub(info.ModTime()) >= olderThan {
				_ = os.Remove(filepath.Join(checkpointsDir, item.Name()))
			}
		}
	}
	return nil
}

// CollectLiveArtifactPaths builds the artifact.LiveSetInput rows the
// artifact store needs to compute its live set: one row per execution
// directory found under the state root, with the artifact paths
// referenced by its current checkpoint's completed task records.
func (s *Store) CollectLiveArtifactPaths() ([]artifact.LiveSetInput, error) {
	base := StateRoot(s.workspaceRoot)
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, state.WrapError(state.CodeCkptMismatch, state.CategoryIO,
			"failed to list workflow state directory", err)
	}

	var inputs []artifact.LiveSetInput
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		executionID := entry.Name()
		paths := NewPaths(s.workspaceRoot, executionID)

		info, err := os.Stat(paths.CheckpointFile)
		if err != nil {
			continue
		}

		exec, execErr := s.LoadExecution(executionID)
		var status state.ExecutionStatus
		if execErr == nil {
			status = exec.Status
		}

		var artifactPaths []string
		if ckpt, err := s.loadCheckpointUnchecked(executionID); err == nil {
			for _, rec := range ckpt.Completed {
				if rec.Output.Kind == state.OutputArtifact {
					artifactPaths = append(artifactPaths, rec.Output.Path)
				}
			}
		}

		inputs = append(inputs, artifact.LiveSetInput{
			ExecutionStatus: status,
			CheckpointMTime: info.ModTime(),
			ArtifactPaths:   artifactPaths,
		})
	}
	return inputs, nil
}

// loadCheckpointUnchecked reads checkpoint.json without the workflow_hash
// comparison LoadCheckpoint enforces, since live-path collection runs
// across every execution regardless of which workflow definition produced
// it.
func (s *Store) loadCheckpointUnchecked(executionID string) (*state.WorkflowCheckpoint, error) {
	return s.LoadCheckpoint(executionID, "", true)
}
