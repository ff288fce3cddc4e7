package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newton/internal/workflowgraph/expr"
	"newton/internal/workflowgraph/state"
)

func baseDoc() *state.WorkflowDocument {
	return &state.WorkflowDocument{
		Version: state.SupportedVersion,
		Mode:    state.SupportedMode,
		Workflow: state.Workflow{
			Settings: state.Settings{
				EntryTask:             "start",
				MaxTimeSeconds:        60,
				ParallelLimit:         1,
				MaxTaskIterations:     10,
				MaxWorkflowIterations: 100,
			},
			Tasks: []state.Task{
				{ID: "start", Operator: "noop"},
			},
		},
	}
}

func TestValidate_ValidDocumentHasNoErrors(t *testing.T) {
	doc := baseDoc()
	result := Validate(doc, expr.NewEngine(0))
	assert.True(t, result.OK(), "%+v", result.Errors)
}

func TestValidate_UnsupportedVersionFails(t *testing.T) {
	doc := baseDoc()
	doc.Version = "1.0"
	result := Validate(doc, expr.NewEngine(0))
	require.False(t, result.OK())
}

func TestValidate_DuplicateTaskIDFails(t *testing.T) {
	doc := baseDoc()
	doc.Workflow.Tasks = append(doc.Workflow.Tasks, state.Task{ID: "start", Operator: "noop"})
	result := Validate(doc, expr.NewEngine(0))
	require.False(t, result.OK())
}

func TestValidate_EmptyOperatorNameFails(t *testing.T) {
	doc := baseDoc()
	doc.Workflow.Tasks[0].Operator = ""
	result := Validate(doc, expr.NewEngine(0))
	require.False(t, result.OK())
}

func TestValidate_MissingEntryTaskFails(t *testing.T) {
	doc := baseDoc()
	doc.Workflow.Settings.EntryTask = "does-not-exist"
	result := Validate(doc, expr.NewEngine(0))
	require.False(t, result.OK())
}

func TestValidate_InvalidLimitsFail(t *testing.T) {
	doc := baseDoc()
	doc.Workflow.Settings.ParallelLimit = 0
	result := Validate(doc, expr.NewEngine(0))
	require.False(t, result.OK())
}

func TestValidate_UnknownTransitionTargetFails(t *testing.T) {
	doc := baseDoc()
	doc.Workflow.Tasks[0].Transitions = []state.Transition{{To: "nope"}}
	result := Validate(doc, expr.NewEngine(0))
	require.False(t, result.OK())
}

func TestValidate_ExprCompileFailureReportsExprCode(t *testing.T) {
	doc := baseDoc()
	doc.Workflow.Tasks[0].Params = map[string]interface{}{
		"cond": map[string]interface{}{"$expr": "1 +"},
	}
	result := Validate(doc, expr.NewEngine(0))
	require.False(t, result.OK())

	var found bool
	for _, e := range result.Errors {
		if e.Code == state.CodeExprCompile {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidate_ValidExprCompiles(t *testing.T) {
	doc := baseDoc()
	doc.Workflow.Tasks[0].Params = map[string]interface{}{
		"cond": map[string]interface{}{"$expr": `context["x"] > 1`},
	}
	result := Validate(doc, expr.NewEngine(0))
	assert.True(t, result.OK(), "%+v", result.Errors)
}
