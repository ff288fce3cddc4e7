package artifact

import (
	"path/filepath"
	"time"

	"newton/internal/workflowgraph/state"
)

// LiveSetInput is the minimal view of a checkpoint the live-set computation
// needs: its referenced artifact paths, its owning execution's status, and
// when the checkpoint was last written.
type LiveSetInput struct {
	ExecutionStatus state.ExecutionStatus
	CheckpointMTime time.Time
	ArtifactPaths   []string
}

// ComputeLiveSet implements the §4.5 live-set rule: a checkpoint's
// artifact paths stay live if its execution is still Running or Cancelled,
// or if the checkpoint itself was written within retentionHours. Paths are
// canonicalized (cleaned) relative to the artifact root before being
// returned so they compare equal to the relPath keys produced by
// listArtifactFiles.
func ComputeLiveSet(inputs []LiveSetInput, retentionHours int64) map[string]bool {
	live := map[string]bool{}
	cutoff := time.Now().Add(-time.Duration(retentionHours) * time.Hour)

	for _, in := range inputs {
		keep := in.ExecutionStatus == state.StatusRunning || in.ExecutionStatus == state.StatusCancelled
		if !keep && retentionHours > 0 && in.CheckpointMTime.After(cutoff) {
			keep = true
		}
		if !keep {
			continue
		}
		for _, p := range in.ArtifactPaths {
			live[filepath.Clean(p)] = true
		}
	}
	return live
}
