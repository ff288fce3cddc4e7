package explain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newton/internal/workflowgraph/expr"
	"newton/internal/workflowgraph/state"
)

func sampleDoc() *state.WorkflowDocument {
	return &state.WorkflowDocument{
		Workflow: state.Workflow{
			Context:  map[string]interface{}{"name": "world"},
			Settings: state.Settings{EntryTask: "greet"},
			Tasks: []state.Task{
				{
					ID:       "greet",
					Operator: "NoOp",
					Params: map[string]interface{}{
						"message": map[string]interface{}{"$expr": "'hello ' + context['name']"},
						"later":   map[string]interface{}{"$expr": "tasks['greet'].status"},
					},
					Transitions: []state.Transition{
						{To: "finish", Priority: 100, When: map[string]interface{}{"$expr": "true"}},
					},
				},
				{ID: "finish", Operator: "NoOp"},
			},
		},
	}
}

func TestBuild_ResolvesNonTaskDependentExpr(t *testing.T) {
	e := expr.NewEngine(0)
	doc := Build(sampleDoc(), e, nil)
	require.Len(t, doc.Tasks, 2)

	greet := doc.Tasks[0]
	if greet.ID != "greet" {
		greet = doc.Tasks[1]
	}
	params := greet.Params.(map[string]interface{})
	assert.Equal(t, "hello world", params["message"])
	assert.Equal(t, "(runtime)", params["later"])
}

func TestBuild_AppliesContextOverrides(t *testing.T) {
	e := expr.NewEngine(0)
	doc := Build(sampleDoc(), e, map[string]interface{}{"name": "overridden"})
	assert.Equal(t, "overridden", doc.Context["name"])
}

func TestRender_ListsTasksAndTransitions(t *testing.T) {
	e := expr.NewEngine(0)
	doc := Build(sampleDoc(), e, nil)
	out := Render(doc)
	assert.Contains(t, out, "entry: greet")
	assert.Contains(t, out, "greet [NoOp]")
	assert.Contains(t, out, "finish (priority=100")
}
