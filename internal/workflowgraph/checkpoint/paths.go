// Package checkpoint persists and rehydrates execution.json/checkpoint.json
// under .newton/state/workflows/<execution-id>, per §4.8.
package checkpoint

import "path/filepath"

// Paths is the fixed layout of one execution's on-disk state.
type Paths struct {
	ExecutionDir   string
	ExecutionFile  string
	CheckpointFile string
	CheckpointsDir string
}

// NewPaths lays out the per-execution paths under workspaceRoot.
func NewPaths(workspaceRoot, executionID string) Paths {
	base := StateRoot(workspaceRoot)
	dir := filepath.Join(base, executionID)
	return Paths{
		ExecutionDir:   dir,
		ExecutionFile:  filepath.Join(dir, "execution.json"),
		CheckpointFile: filepath.Join(dir, "checkpoint.json"),
		CheckpointsDir: filepath.Join(dir, "checkpoints"),
	}
}

// StateRoot is the directory holding one subdirectory per execution id.
func StateRoot(workspaceRoot string) string {
	return filepath.Join(workspaceRoot, ".newton", "state", "workflows")
}
