package transform

import (
	"fmt"

	"newton/internal/workflowgraph/expr"
	"newton/internal/workflowgraph/state"
)

// Precompile compiles every remaining {"$expr": "<s>"} string in context,
// task params, and transition `when` fields, surfacing syntax errors
// before execution begins. After this stage no macro invocations may
// remain; any residual is reported as a hard WFG-MACRO-002 error here
// rather than being discovered later at execution time.
func Precompile(doc *state.WorkflowDocument, engine *expr.Engine) (*state.WorkflowDocument, error) {
	out, err := cloneDocument(doc)
	if err != nil {
		return nil, err
	}

	for _, t := range out.Workflow.Tasks {
		if t.IsMacroInvocation() {
			return nil, state.NewError(state.CodeMacroUnknown, state.CategoryValidation,
				fmt.Sprintf("residual macro invocation %q survived the transform pipeline", t.Macro))
		}
	}

	var exprs []string
	collectExprs(out.Workflow.Context, &exprs)
	for _, t := range out.Workflow.Tasks {
		collectExprs(t.Params, &exprs)
		for _, tr := range t.Transitions {
			collectExprs(tr.When, &exprs)
		}
	}

	for _, e := range exprs {
		if err := engine.Compile(e); err != nil {
			return nil, state.WrapError(state.CodeExprCompile, state.CategoryValidation,
				fmt.Sprintf("expression failed to compile: %q", e), err)
		}
	}

	return out, nil
}

func collectExprs(value interface{}, out *[]string) {
	switch v := value.(type) {
	case map[string]interface{}:
		if len(v) == 1 {
			if s, ok := v["$expr"].(string); ok {
				*out = append(*out, s)
				return
			}
		}
		for _, item := range v {
			collectExprs(item, out)
		}
	case []interface{}:
		for _, item := range v {
			collectExprs(item, out)
		}
	}
}
