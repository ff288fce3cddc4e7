package operator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInterviewer answers Approve/Choose from fixed fields, optionally
// blocking until ctx is cancelled to exercise the timeout path.
type fakeInterviewer struct {
	approve     bool
	choice      string
	err         error
	block       bool
	approveCall int
	chooseCall  int
}

func (f *fakeInterviewer) Approve(ctx context.Context, message string) (bool, error) {
	f.approveCall++
	if f.block {
		<-ctx.Done()
		return false, ctx.Err()
	}
	return f.approve, f.err
}

func (f *fakeInterviewer) Choose(ctx context.Context, message string, options []string) (string, error) {
	f.chooseCall++
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.choice, f.err
}

// fakeAuditIndex records Record calls in memory for assertions.
type fakeAuditIndex struct {
	calls []AuditEntry
}

func (f *fakeAuditIndex) Record(executionID string, entry AuditEntry) error {
	f.calls = append(f.calls, entry)
	return nil
}

func TestHumanApproval_ValidateParams_RequiresMessage(t *testing.T) {
	op := NewHumanApproval(&fakeInterviewer{}, t.TempDir(), nil)
	err := op.ValidateParams(map[string]interface{}{})
	require.Error(t, err)
}

func TestHumanApproval_ValidateParams_TimeoutRequiresDefault(t *testing.T) {
	op := NewHumanApproval(&fakeInterviewer{}, t.TempDir(), nil)
	err := op.ValidateParams(map[string]interface{}{
		"message":         "proceed?",
		"timeout_seconds": float64(5),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_on_timeout")
}

func TestHumanApproval_Execute_ApprovedWritesAuditLine(t *testing.T) {
	dir := t.TempDir()
	op := NewHumanApproval(&fakeInterviewer{approve: true}, dir, nil)

	out, err := op.Execute(context.Background(), map[string]interface{}{"message": "ship it?"},
		ExecContext{ExecutionID: "exec-1", TaskID: "approve-task"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"approved": true, "timed_out": false}, out)

	raw, err := os.ReadFile(filepath.Join(dir, "exec-1", "audit.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "approve-task")
	assert.Contains(t, string(raw), "\"approved\":true")
}

func TestHumanApproval_Execute_TimeoutFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	op := NewHumanApproval(&fakeInterviewer{block: true}, dir, nil)

	out, err := op.Execute(context.Background(), map[string]interface{}{
		"message":            "ship it?",
		"timeout_seconds":    float64(0),
		"default_on_timeout": true,
	}, ExecContext{ExecutionID: "exec-2", TaskID: "approve-task"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"approved": true, "timed_out": true}, out)
}

func TestHumanApproval_Execute_MirrorsToAuditIndex(t *testing.T) {
	dir := t.TempDir()
	index := &fakeAuditIndex{}
	op := NewHumanApproval(&fakeInterviewer{approve: false}, dir, nil).WithAuditIndex(index)

	_, err := op.Execute(context.Background(), map[string]interface{}{"message": "deploy?"},
		ExecContext{ExecutionID: "exec-3", TaskID: "approve-task"})
	require.NoError(t, err)

	require.Len(t, index.calls, 1)
	assert.Equal(t, "approve-task", index.calls[0].TaskID)
	assert.Equal(t, "HumanApproval", index.calls[0].Operator)
	assert.Equal(t, map[string]interface{}{"approved": false}, index.calls[0].Decision)
}

func TestHumanApproval_Execute_NilAuditIndexIsFine(t *testing.T) {
	dir := t.TempDir()
	op := NewHumanApproval(&fakeInterviewer{approve: true}, dir, nil)
	require.Nil(t, op.AuditIndex)

	_, err := op.Execute(context.Background(), map[string]interface{}{"message": "ok?"},
		ExecContext{ExecutionID: "exec-4", TaskID: "t"})
	require.NoError(t, err)
}

func TestHumanApproval_decide_RespectsParentCancellation(t *testing.T) {
	op := NewHumanApproval(&fakeInterviewer{block: true}, t.TempDir(), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, timedOut, err := op.decide(ctx, "anything")
	require.NoError(t, err)
	assert.True(t, timedOut)
}
