package operator

import (
	"context"
	"fmt"
	"time"

	"newton/internal/workflowgraph/state"
)

// HumanDecision delegates to an Interviewer to pick one of a fixed set of
// named options. Same timeout/audit rules as HumanApproval, but the
// timeout default is default_choice rather than default_on_timeout.
type HumanDecision struct {
	Interviewer Interviewer
	AuditDir    string
	RedactKeys  []string
	AuditIndex  AuditIndex
}

func NewHumanDecision(interviewer Interviewer, auditDir string, redactKeys []string) *HumanDecision {
	if interviewer == nil {
		interviewer = &ConsoleInterviewer{}
	}
	return &HumanDecision{Interviewer: interviewer, AuditDir: auditDir, RedactKeys: redactKeys}
}

// WithAuditIndex sets the optional SQLite mirror and returns the receiver
// for chaining at registry construction time.
func (o *HumanDecision) WithAuditIndex(index AuditIndex) *HumanDecision {
	o.AuditIndex = index
	return o
}

func (o *HumanDecision) Name() string { return "HumanDecision" }

func (o *HumanDecision) ValidateParams(params map[string]interface{}) error {
	if _, ok := params["message"].(string); !ok {
		return state.NewError(state.CodeDocumentParse, state.CategoryValidation,
			"HumanDecision requires a \"message\" string param")
	}
	if _, ok := params["options"].([]interface{}); !ok {
		return state.NewError(state.CodeDocumentParse, state.CategoryValidation,
			"HumanDecision requires an \"options\" array param")
	}
	if _, hasTimeout := params["timeout_seconds"]; hasTimeout {
		if _, ok := params["default_choice"]; !ok {
			return state.NewError(state.CodeHumanTimeoutMissing, state.CategoryValidation,
				"HumanDecision declares timeout_seconds but no default_choice")
		}
	}
	return nil
}

func (o *HumanDecision) Execute(ctx context.Context, params map[string]interface{}, ec ExecContext) (interface{}, error) {
	if err := o.ValidateParams(params); err != nil {
		return nil, err
	}

	message := params["message"].(string)
	rawOptions := params["options"].([]interface{})
	options := make([]string, len(rawOptions))
	for i, o := range rawOptions {
		options[i], _ = o.(string)
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if secs, ok := params["timeout_seconds"].(float64); ok {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(secs)*time.Second)
		defer cancel()
	}

	choice, timedOut, err := o.decide(runCtx, message, options)
	if err != nil {
		return nil, state.WrapError(state.CodeHumanInterviewFailed, state.CategoryToolExecution,
			fmt.Sprintf("HumanDecision failed for task %s", ec.TaskID), err)
	}
	if timedOut {
		if def, ok := params["default_choice"].(string); ok {
			choice = def
		}
	}

	auditErr := AppendAuditEntry(o.AuditDir, ec.ExecutionID, AuditEntry{
		Timestamp: time.Now(),
		TaskID:    ec.TaskID,
		Operator:  o.Name(),
		Message:   message,
		Decision:  map[string]interface{}{"choice": choice},
		TimedOut:  timedOut,
	}, o.RedactKeys, o.AuditIndex)
	if auditErr != nil {
		return nil, auditErr
	}

	return map[string]interface{}{"choice": choice, "timed_out": timedOut}, nil
}

func (o *HumanDecision) decide(ctx context.Context, message string, options []string) (choice string, timedOut bool, err error) {
	type result struct {
		choice string
		err    error
	}
	done := make(chan result, 1)
	go func() {
		choice, err := o.Interviewer.Choose(ctx, message, options)
		done <- result{choice: choice, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && ctx.Err() != nil {
			return "", true, nil
		}
		return r.choice, false, r.err
	case <-ctx.Done():
		return "", true, nil
	}
}
