package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newton/internal/workflowgraph/operator"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecord_InsertsRowRetrievableByExecution(t *testing.T) {
	s := openTestStore(t)

	entry := operator.AuditEntry{
		Timestamp: time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC),
		TaskID:    "approve-deploy",
		Operator:  "HumanApproval",
		Message:   "deploy to prod?",
		Decision:  map[string]interface{}{"approved": true},
		TimedOut:  false,
	}
	require.NoError(t, s.Record("exec-1", entry))

	rows, err := s.ListByExecution("exec-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "exec-1", rows[0].ExecutionID)
	assert.Equal(t, "approve-deploy", rows[0].TaskID)
	assert.Equal(t, "HumanApproval", rows[0].Operator)
	assert.False(t, rows[0].TimedOut)
	assert.JSONEq(t, `{"approved":true}`, string(rows[0].Decision))
	assert.NotEmpty(t, rows[0].LogID)
}

func TestRecord_OrdersByCreatedAt(t *testing.T) {
	s := openTestStore(t)

	first := operator.AuditEntry{
		Timestamp: time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC),
		TaskID:    "a", Operator: "HumanApproval", Message: "m1",
		Decision: map[string]interface{}{"approved": true},
	}
	second := operator.AuditEntry{
		Timestamp: time.Date(2026, 7, 31, 12, 5, 0, 0, time.UTC),
		TaskID:    "b", Operator: "HumanDecision", Message: "m2",
		Decision: map[string]interface{}{"choice": "retry"},
	}
	require.NoError(t, s.Record("exec-2", first))
	require.NoError(t, s.Record("exec-2", second))

	rows, err := s.ListByExecution("exec-2")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].TaskID)
	assert.Equal(t, "b", rows[1].TaskID)
}

func TestListByExecution_IsolatesByExecutionID(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Record("exec-a", operator.AuditEntry{
		Timestamp: time.Now(), TaskID: "t1", Operator: "HumanApproval",
		Message: "m", Decision: map[string]interface{}{"approved": false},
	}))
	require.NoError(t, s.Record("exec-b", operator.AuditEntry{
		Timestamp: time.Now(), TaskID: "t2", Operator: "HumanApproval",
		Message: "m", Decision: map[string]interface{}{"approved": true},
	}))

	rows, err := s.ListByExecution("exec-a")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "t1", rows[0].TaskID)
}

func TestRecord_CapturesTimedOut(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Record("exec-3", operator.AuditEntry{
		Timestamp: time.Now(), TaskID: "t1", Operator: "HumanApproval",
		Message: "m", Decision: map[string]interface{}{"approved": false}, TimedOut: true,
	}))

	rows, err := s.ListByExecution("exec-3")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].TimedOut)
}
