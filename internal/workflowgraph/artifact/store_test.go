package artifact

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newton/internal/workflowgraph/state"
)

func newTestStore(t *testing.T, cfg state.ArtifactStorageConfig) *Store {
	t.Helper()
	dir := t.TempDir()
	return NewStore(dir, cfg)
}

func TestRoute_SmallValueIsInline(t *testing.T) {
	s := newTestStore(t, state.ArtifactStorageConfig{MaxInlineBytes: 1024, MaxArtifactBytes: 1 << 20, MaxTotalBytes: 1 << 30})
	ref, err := s.Route("exec-1", "task-a", 1, map[string]interface{}{"ok": true}, nil)
	require.NoError(t, err)
	assert.Equal(t, state.OutputInline, ref.Kind)
}

func TestRoute_LargeValueWritesArtifactFile(t *testing.T) {
	s := newTestStore(t, state.ArtifactStorageConfig{MaxInlineBytes: 8, MaxArtifactBytes: 1 << 20, MaxTotalBytes: 1 << 30})
	value := map[string]interface{}{"data": strings.Repeat("x", 1000)}
	ref, err := s.Route("exec-1", "task-a", 1, value, nil)
	require.NoError(t, err)
	assert.Equal(t, state.OutputArtifact, ref.Kind)
	assert.NotEmpty(t, ref.SHA256)
	assert.True(t, strings.Contains(ref.Path, filepath.Join("task", "task-a", "1")))
}

func TestRoute_OverMaxArtifactBytesFails(t *testing.T) {
	s := newTestStore(t, state.ArtifactStorageConfig{MaxInlineBytes: 4, MaxArtifactBytes: 16, MaxTotalBytes: 1 << 30})
	value := map[string]interface{}{"data": strings.Repeat("x", 1000)}
	_, err := s.Route("exec-1", "task-a", 1, value, nil)
	require.Error(t, err)
	assert.True(t, state.IsCode(err, state.CodeArtOverSize))
}

func TestRoute_InvalidTaskIDFailsWithPathEscape(t *testing.T) {
	s := newTestStore(t, state.ArtifactStorageConfig{MaxInlineBytes: 4, MaxArtifactBytes: 1 << 20, MaxTotalBytes: 1 << 30})
	value := map[string]interface{}{"data": strings.Repeat("x", 1000)}
	_, err := s.Route("exec-1", "../escape", 1, value, nil)
	require.Error(t, err)
	assert.True(t, state.IsCode(err, state.CodeArtPathEscape))
}

func TestEnsureCapacity_EvictsNonLiveOldestFirst(t *testing.T) {
	s := newTestStore(t, state.ArtifactStorageConfig{MaxInlineBytes: 4, MaxArtifactBytes: 1 << 20, MaxTotalBytes: 600})

	value := map[string]interface{}{"data": strings.Repeat("a", 300)}
	_, err := s.Route("exec-1", "task-a", 1, value, nil)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = s.Route("exec-1", "task-b", 1, value, nil)
	require.NoError(t, err)

	ref, err := s.Route("exec-1", "task-c", 1, value, nil)
	require.NoError(t, err)
	assert.Equal(t, state.OutputArtifact, ref.Kind)
}

func TestEnsureCapacity_RespectsLiveSetEvenWhenOldest(t *testing.T) {
	s := newTestStore(t, state.ArtifactStorageConfig{MaxInlineBytes: 4, MaxArtifactBytes: 1 << 20, MaxTotalBytes: 350})

	value := map[string]interface{}{"data": strings.Repeat("a", 300)}
	ref, err := s.Route("exec-1", "task-a", 1, value, nil)
	require.NoError(t, err)

	live := map[string]bool{filepath.Clean(ref.Path): true}
	_, err = s.Route("exec-1", "task-b", 1, value, live)
	require.Error(t, err)
	assert.True(t, state.IsCode(err, state.CodeArtQuotaExceeded))
}

func TestComputeLiveSet_RunningExecutionKeepsArtifactsLive(t *testing.T) {
	live := ComputeLiveSet([]LiveSetInput{
		{ExecutionStatus: state.StatusRunning, ArtifactPaths: []string{"workflows/e/task/a/1/output.json"}},
		{ExecutionStatus: state.StatusCompleted, CheckpointMTime: time.Now().Add(-48 * time.Hour), ArtifactPaths: []string{"workflows/e/task/b/1/output.json"}},
	}, 1)
	assert.True(t, live["workflows/e/task/a/1/output.json"])
	assert.False(t, live["workflows/e/task/b/1/output.json"])
}

func TestComputeLiveSet_RecentCheckpointKeepsArtifactsLive(t *testing.T) {
	live := ComputeLiveSet([]LiveSetInput{
		{ExecutionStatus: state.StatusCompleted, CheckpointMTime: time.Now(), ArtifactPaths: []string{"workflows/e/task/a/1/output.json"}},
	}, 24)
	assert.True(t, live["workflows/e/task/a/1/output.json"])
}

func TestCleanArtifacts_RemovesOldNonLiveFiles(t *testing.T) {
	s := newTestStore(t, state.ArtifactStorageConfig{MaxInlineBytes: 4, MaxArtifactBytes: 1 << 20, MaxTotalBytes: 1 << 30})
	value := map[string]interface{}{"data": strings.Repeat("a", 100)}
	_, err := s.Route("exec-1", "task-a", 1, value, nil)
	require.NoError(t, err)

	err = s.CleanArtifacts(-time.Hour, nil)
	require.NoError(t, err)

	entries, total, err := s.listArtifactFiles()
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, int64(0), total)
}
