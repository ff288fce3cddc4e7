package operator

import (
	"context"
	"fmt"
	"time"

	"newton/internal/workflowgraph/state"
)

// HumanApproval delegates to an Interviewer for an approve/reject
// decision. A timeout requires default_on_timeout to be supplied when the
// task declares timeout_seconds; each call appends one redacted audit
// line.
type HumanApproval struct {
	Interviewer Interviewer
	AuditDir    string
	RedactKeys  []string
	AuditIndex  AuditIndex
}

func NewHumanApproval(interviewer Interviewer, auditDir string, redactKeys []string) *HumanApproval {
	if interviewer == nil {
		interviewer = &ConsoleInterviewer{}
	}
	return &HumanApproval{Interviewer: interviewer, AuditDir: auditDir, RedactKeys: redactKeys}
}

// WithAuditIndex sets the optional SQLite mirror and returns the receiver
// for chaining at registry construction time.
func (o *HumanApproval) WithAuditIndex(index AuditIndex) *HumanApproval {
	o.AuditIndex = index
	return o
}

func (o *HumanApproval) Name() string { return "HumanApproval" }

func (o *HumanApproval) ValidateParams(params map[string]interface{}) error {
	if _, ok := params["message"].(string); !ok {
		return state.NewError(state.CodeDocumentParse, state.CategoryValidation,
			"HumanApproval requires a \"message\" string param")
	}
	if _, hasTimeout := params["timeout_seconds"]; hasTimeout {
		if _, ok := params["default_on_timeout"]; !ok {
			return state.NewError(state.CodeHumanTimeoutMissing, state.CategoryValidation,
				"HumanApproval declares timeout_seconds but no default_on_timeout")
		}
	}
	return nil
}

func (o *HumanApproval) Execute(ctx context.Context, params map[string]interface{}, ec ExecContext) (interface{}, error) {
	if err := o.ValidateParams(params); err != nil {
		return nil, err
	}

	message := params["message"].(string)
	runCtx := ctx
	var cancel context.CancelFunc
	if secs, ok := params["timeout_seconds"].(float64); ok {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(secs)*time.Second)
		defer cancel()
	}

	approved, timedOut, err := o.decide(runCtx, message)
	if err != nil {
		return nil, state.WrapError(state.CodeHumanInterviewFailed, state.CategoryToolExecution,
			fmt.Sprintf("HumanApproval failed for task %s", ec.TaskID), err)
	}
	if timedOut {
		if def, ok := params["default_on_timeout"].(bool); ok {
			approved = def
		}
	}

	auditErr := AppendAuditEntry(o.AuditDir, ec.ExecutionID, AuditEntry{
		Timestamp: time.Now(),
		TaskID:    ec.TaskID,
		Operator:  o.Name(),
		Message:   message,
		Decision:  map[string]interface{}{"approved": approved},
		TimedOut:  timedOut,
	}, o.RedactKeys, o.AuditIndex)
	if auditErr != nil {
		return nil, auditErr
	}

	return map[string]interface{}{"approved": approved, "timed_out": timedOut}, nil
}

func (o *HumanApproval) decide(ctx context.Context, message string) (approved bool, timedOut bool, err error) {
	type result struct {
		approved bool
		err      error
	}
	done := make(chan result, 1)
	go func() {
		approved, err := o.Interviewer.Approve(ctx, message)
		done <- result{approved: approved, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && ctx.Err() != nil {
			return false, true, nil
		}
		return r.approved, false, r.err
	case <-ctx.Done():
		return false, true, nil
	}
}
