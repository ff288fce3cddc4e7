package dot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"newton/internal/workflowgraph/state"
)

func sampleDoc() *state.WorkflowDocument {
	return &state.WorkflowDocument{
		Workflow: state.Workflow{
			Settings: state.Settings{EntryTask: "start"},
			Tasks: []state.Task{
				{ID: "start", Operator: "NoOp", Transitions: []state.Transition{
					{To: "finish", Priority: 100, When: map[string]interface{}{"$expr": "true"}},
				}},
				{ID: "finish", Operator: "NoOp"},
				{ID: "orphan", Operator: "NoOp"},
			},
		},
	}
}

func TestRender_IncludesEveryTaskAndTransition(t *testing.T) {
	out := Render(sampleDoc())
	assert.Contains(t, out, "digraph workflow {")
	assert.Contains(t, out, `"start"`)
	assert.Contains(t, out, `"finish"`)
	assert.Contains(t, out, `"orphan"`)
	assert.Contains(t, out, `"start" -> "finish"`)
}

func TestRender_SkipsTransitionsToUnknownTargets(t *testing.T) {
	doc := &state.WorkflowDocument{
		Workflow: state.Workflow{
			Tasks: []state.Task{
				{ID: "a", Operator: "NoOp", Transitions: []state.Transition{{To: "ghost", Priority: 100}}},
			},
		},
	}
	out := Render(doc)
	assert.NotContains(t, out, "ghost")
}

func TestReachabilityWarnings_FlagsOrphanTask(t *testing.T) {
	warnings := ReachabilityWarnings(sampleDoc())
	assert.Equal(t, []string{"orphan"}, warnings)
}

func TestReachabilityWarnings_UnknownEntryTaskYieldsNoWarnings(t *testing.T) {
	doc := &state.WorkflowDocument{
		Workflow: state.Workflow{
			Settings: state.Settings{EntryTask: "missing"},
			Tasks:    []state.Task{{ID: "a", Operator: "NoOp"}},
		},
	}
	assert.Empty(t, ReachabilityWarnings(doc))
}
