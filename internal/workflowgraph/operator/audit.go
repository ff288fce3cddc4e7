package operator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"newton/internal/workflowgraph/state"
)

// AuditIndex optionally mirrors every entry AppendAuditEntry writes to
// audit.jsonl into a queryable store. audit.jsonl remains the record of
// truth; a nil AuditIndex on HumanApproval/HumanDecision simply disables
// the mirror.
type AuditIndex interface {
	Record(executionID string, entry AuditEntry) error
}

// AuditEntry is one redacted line appended to an execution's audit.jsonl
// for every HumanApproval/HumanDecision call.
type AuditEntry struct {
	Timestamp time.Time   `json:"timestamp"`
	TaskID    string      `json:"task_id"`
	Operator  string      `json:"operator"`
	Message   string      `json:"message"`
	Decision  interface{} `json:"decision"`
	TimedOut  bool        `json:"timed_out"`
}

// AppendAuditEntry writes entry as one JSON line to
// <auditDir>/<executionID>/audit.jsonl, redacting Decision per redactKeys
// before it is written. When index is non-nil, the same redacted entry is
// also mirrored into it (see AuditIndex); a mirror failure does not fail
// the call, since audit.jsonl is the record of truth.
func AppendAuditEntry(auditDir, executionID string, entry AuditEntry, redactKeys []string, index AuditIndex) error {
	dir := filepath.Join(auditDir, executionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return state.WrapError(state.CodeHumanInterviewFailed, state.CategoryIO,
			"failed to create audit directory", err)
	}

	entry.Decision = state.Redact(entry.Decision, redactKeys)

	line, err := json.Marshal(entry)
	if err != nil {
		return state.WrapError(state.CodeHumanInterviewFailed, state.CategorySerialization,
			"failed to encode audit entry", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, "audit.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return state.WrapError(state.CodeHumanInterviewFailed, state.CategoryIO,
			"failed to open audit.jsonl", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return state.WrapError(state.CodeHumanInterviewFailed, state.CategoryIO,
			"failed to append to audit.jsonl", err)
	}

	if index != nil {
		_ = index.Record(executionID, entry)
	}
	return nil
}
