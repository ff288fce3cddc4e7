package document

import (
	"fmt"
	"sort"

	"newton/internal/workflowgraph/expr"
	"newton/internal/workflowgraph/state"
)

// ValidationResult collects every static-validation failure found in a
// document rather than aborting on the first — the caller decides whether
// any failure is fatal (all of them are, per spec, but the full list is
// more useful than a single error).
type ValidationResult struct {
	Errors []*state.EngineError
}

func (r *ValidationResult) OK() bool { return len(r.Errors) == 0 }

func (r *ValidationResult) add(err *state.EngineError) {
	r.Errors = append(r.Errors, err)
}

// Validate runs the full static-validation pass described in §4.2: version
// and mode checks, structural checks (duplicate ids, empty operator names,
// missing entry_task, invalid numeric limits, dangling transition targets),
// and a sweep over every `{"$expr": "<s>"}` string anywhere in context,
// params, or transition `when` fields, compiling each with engine.
func Validate(doc *state.WorkflowDocument, engine *expr.Engine) *ValidationResult {
	result := &ValidationResult{}

	if doc.Version != state.SupportedVersion {
		result.add(state.NewError(state.CodeDocumentParse, state.CategoryValidation,
			fmt.Sprintf("unsupported version %q, expected %q", doc.Version, state.SupportedVersion)))
	}
	if doc.Mode != state.SupportedMode {
		result.add(state.NewError(state.CodeDocumentParse, state.CategoryValidation,
			fmt.Sprintf("unsupported mode %q, expected %q", doc.Mode, state.SupportedMode)))
	}

	seenIDs := map[string]bool{}
	var ids []string
	for _, t := range doc.Workflow.Tasks {
		if t.ID == "" {
			result.add(state.NewError(state.CodeDocumentParse, state.CategoryValidation,
				"task entry has an empty id"))
			continue
		}
		if seenIDs[t.ID] {
			result.add(state.NewError(state.CodeDocumentParse, state.CategoryValidation,
				fmt.Sprintf("duplicate task id %q", t.ID)))
			continue
		}
		seenIDs[t.ID] = true
		ids = append(ids, t.ID)

		if t.Operator == "" && !t.IsMacroInvocation() {
			result.add(state.NewError(state.CodeDocumentParse, state.CategoryValidation,
				fmt.Sprintf("task %q has an empty operator name", t.ID)))
		}
		if t.Retry != nil && t.Retry.MaxAttempts < 0 {
			result.add(state.NewError(state.CodeDocumentParse, state.CategoryValidation,
				fmt.Sprintf("task %q has a negative retry.max_attempts", t.ID)))
		}
	}

	if doc.Workflow.Settings.EntryTask == "" {
		result.add(state.NewError(state.CodeDocumentParse, state.CategoryValidation,
			"settings.entry_task is required"))
	} else if !seenIDs[doc.Workflow.Settings.EntryTask] {
		result.add(state.NewError(state.CodeDocumentParse, state.CategoryValidation,
			fmt.Sprintf("settings.entry_task %q does not reference a known task", doc.Workflow.Settings.EntryTask)))
	}

	if doc.Workflow.Settings.ParallelLimit < 1 {
		result.add(state.NewError(state.CodeDocumentParse, state.CategoryValidation,
			"settings.parallel_limit must be >= 1"))
	}
	if doc.Workflow.Settings.MaxTaskIterations < 1 {
		result.add(state.NewError(state.CodeDocumentParse, state.CategoryValidation,
			"settings.max_task_iterations must be >= 1"))
	}
	if doc.Workflow.Settings.MaxWorkflowIterations < 1 {
		result.add(state.NewError(state.CodeDocumentParse, state.CategoryValidation,
			"settings.max_workflow_iterations must be >= 1"))
	}
	if doc.Workflow.Settings.MaxTimeSeconds < 1 {
		result.add(state.NewError(state.CodeDocumentParse, state.CategoryValidation,
			"settings.max_time_seconds must be >= 1"))
	}

	for _, t := range doc.Workflow.Tasks {
		for _, tr := range t.Transitions {
			if tr.To == "" {
				continue
			}
			if !seenIDs[tr.To] {
				result.add(state.NewError(state.CodeDocumentParse, state.CategoryValidation,
					fmt.Sprintf("task %q has a transition to unknown task id %q", t.ID, tr.To)))
			}
		}
	}

	for _, exprStr := range collectExprStrings(doc) {
		if err := engine.Compile(exprStr); err != nil {
			result.add(state.WrapError(state.CodeExprCompile, state.CategoryValidation,
				fmt.Sprintf("expression failed to compile: %q", exprStr), err))
		}
	}

	sort.Slice(result.Errors, func(i, j int) bool {
		return result.Errors[i].Message < result.Errors[j].Message
	})

	return result
}

// collectExprStrings walks context, every task's params, and every
// transition's `when` field, collecting the literal expression text of
// every {"$expr": "<s>"} value found anywhere in those trees.
func collectExprStrings(doc *state.WorkflowDocument) []string {
	var out []string

	walk := func(v interface{}) {
		collectExprStringsFrom(v, &out)
	}

	walk(doc.Workflow.Context)
	for _, t := range doc.Workflow.Tasks {
		walk(t.Params)
		for _, tr := range t.Transitions {
			walk(tr.When)
		}
	}
	for _, m := range doc.Macros {
		for _, t := range m.Tasks {
			walk(t.Params)
		}
	}

	return out
}

func collectExprStringsFrom(v interface{}, out *[]string) {
	switch val := v.(type) {
	case map[string]interface{}:
		if len(val) == 1 {
			if s, ok := val["$expr"].(string); ok {
				*out = append(*out, s)
				return
			}
		}
		for _, nested := range val {
			collectExprStringsFrom(nested, out)
		}
	case []interface{}:
		for _, nested := range val {
			collectExprStringsFrom(nested, out)
		}
	}
}
