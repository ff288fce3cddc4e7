// Package audit mirrors HumanApproval/HumanDecision audit entries into a
// queryable SQLite index alongside the required audit.jsonl file each
// execution directory already carries. audit.jsonl remains the record of
// truth (operator.AppendAuditEntry always writes it); Store is strictly
// an additional index a caller can attach via
// HumanApproval.WithAuditIndex/HumanDecision.WithAuditIndex so
// `newton workflow approvals list`-style tooling can query decisions
// across executions without scanning every audit.jsonl on disk.
package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"newton/internal/workflowgraph/operator"
)

// Store persists audit entries to a local SQLite database and implements
// operator.AuditIndex.
type Store struct {
	conn *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create audit index directory %s: %w", dir, err)
		}
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit index: %w", err)
	}
	conn.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 30000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.conn.Exec(`
CREATE TABLE IF NOT EXISTS audit_log (
	log_id       TEXT PRIMARY KEY,
	execution_id TEXT NOT NULL,
	task_id      TEXT NOT NULL,
	operator     TEXT NOT NULL,
	message      TEXT NOT NULL,
	decision     TEXT NOT NULL,
	timed_out    INTEGER NOT NULL,
	created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_log_execution ON audit_log(execution_id);
`)
	if err != nil {
		return fmt.Errorf("failed to migrate audit index: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Record implements operator.AuditIndex. entry.Decision has already been
// redacted by operator.AppendAuditEntry by the time this is called.
func (s *Store) Record(executionID string, entry operator.AuditEntry) error {
	decision, err := json.Marshal(entry.Decision)
	if err != nil {
		return fmt.Errorf("failed to encode audit decision: %w", err)
	}

	_, err = s.conn.Exec(
		`INSERT INTO audit_log (log_id, execution_id, task_id, operator, message, decision, timed_out, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), executionID, entry.TaskID, entry.Operator, entry.Message,
		string(decision), boolToInt(entry.TimedOut), entry.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// Entry is one indexed row, decoded back from SQLite.
type Entry struct {
	LogID       string
	ExecutionID string
	TaskID      string
	Operator    string
	Message     string
	Decision    json.RawMessage
	TimedOut    bool
	CreatedAt   time.Time
}

// ListByExecution returns every indexed entry for executionID, oldest first.
func (s *Store) ListByExecution(executionID string) ([]Entry, error) {
	rows, err := s.conn.Query(
		`SELECT log_id, execution_id, task_id, operator, message, decision, timed_out, created_at
		 FROM audit_log WHERE execution_id = ? ORDER BY created_at ASC`,
		executionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries for %s: %w", executionID, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var decision, createdAt string
		var timedOut int
		if err := rows.Scan(&e.LogID, &e.ExecutionID, &e.TaskID, &e.Operator, &e.Message, &decision, &timedOut, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		e.Decision = json.RawMessage(decision)
		e.TimedOut = timedOut != 0
		if parsed, err := time.Parse(time.RFC3339, createdAt); err == nil {
			e.CreatedAt = parsed
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
