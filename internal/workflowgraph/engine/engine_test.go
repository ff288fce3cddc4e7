package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newton/internal/workflowgraph/artifact"
	"newton/internal/workflowgraph/checkpoint"
	"newton/internal/workflowgraph/expr"
	"newton/internal/workflowgraph/operator"
	"newton/internal/workflowgraph/state"
)

func newTestEngine(t *testing.T, doc *state.WorkflowDocument) *Engine {
	t.Helper()
	dir := t.TempDir()
	registry := operator.NewDefaultRegistry()
	exprEngine := expr.NewEngine(0)
	artifacts := artifact.NewStore(dir, doc.Workflow.Settings.ArtifactStorage)
	checkpoints := checkpoint.NewStore(dir, nil, doc.Workflow.Settings.Checkpoint.KeepHistory)
	return New("exec-1", "workflow.yaml", "hash-1", dir, doc, registry, exprEngine, artifacts, checkpoints, map[string]interface{}{})
}

func linearDoc() *state.WorkflowDocument {
	return &state.WorkflowDocument{
		Version: state.SupportedVersion,
		Mode:    state.SupportedMode,
		Workflow: state.Workflow{
			Context: map[string]interface{}{},
			Settings: state.Settings{
				EntryTask:     "start",
				ParallelLimit: 4,
			},
			Tasks: []state.Task{
				{ID: "start", Operator: "NoOp", Transitions: []state.Transition{{To: "finish", Priority: state.DefaultTransitionPriority}}},
				{ID: "finish", Operator: "NoOp"},
			},
		},
	}
}

func TestRun_LinearWorkflowCompletes(t *testing.T) {
	e := newTestEngine(t, linearDoc())
	result, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, state.StatusCompleted, result.Status)

	completed := e.State.Completed()
	assert.Contains(t, completed, "start")
	assert.Contains(t, completed, "finish")
}

func TestRun_ContinueOnErrorFalseStopsOnFailure(t *testing.T) {
	doc := &state.WorkflowDocument{
		Version: state.SupportedVersion,
		Mode:    state.SupportedMode,
		Workflow: state.Workflow{
			Settings: state.Settings{EntryTask: "bad", ParallelLimit: 1},
			Tasks: []state.Task{
				{ID: "bad", Operator: "AssertCompleted", Params: map[string]interface{}{
					"require": []interface{}{"never-ran"},
				}},
			},
		},
	}
	e := newTestEngine(t, doc)
	result, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, state.StatusFailed, result.Status)
	assert.Equal(t, state.CodeExecTaskFailed, result.ErrorCode)
}

func TestRun_MaxWorkflowIterationsCapFails(t *testing.T) {
	doc := &state.WorkflowDocument{
		Version: state.SupportedVersion,
		Mode:    state.SupportedMode,
		Workflow: state.Workflow{
			Settings: state.Settings{
				EntryTask:             "loop",
				ParallelLimit:         1,
				MaxWorkflowIterations: 2,
			},
			Tasks: []state.Task{
				{ID: "loop", Operator: "NoOp", MaxIterations: 1000,
					Transitions: []state.Transition{{To: "loop", Priority: state.DefaultTransitionPriority}}},
			},
		},
	}
	e := newTestEngine(t, doc)
	result, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, state.StatusFailed, result.Status)
	assert.Equal(t, state.CodeIterWorkflowCap, result.ErrorCode)
}

func TestRun_TerminalTaskStopsLoopWhenConfigured(t *testing.T) {
	doc := &state.WorkflowDocument{
		Version: state.SupportedVersion,
		Mode:    state.SupportedMode,
		Workflow: state.Workflow{
			Settings: state.Settings{
				EntryTask:     "done",
				ParallelLimit: 1,
				Completion:    state.CompletionConfig{StopOnTerminal: true},
			},
			Tasks: []state.Task{
				{ID: "done", Operator: "NoOp", Terminal: state.TerminalSuccess,
					Transitions: []state.Transition{{To: "never", Priority: state.DefaultTransitionPriority}}},
				{ID: "never", Operator: "NoOp"},
			},
		},
	}
	e := newTestEngine(t, doc)
	result, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, state.StatusCompleted, result.Status)
	assert.NotContains(t, e.State.Completed(), "never")
}

func TestSelectTransitions_ExclusiveModeFirstMatchWins(t *testing.T) {
	e := newTestEngine(t, linearDoc())
	task := state.Task{
		ID: "x",
		Transitions: []state.Transition{
			{To: "b", Priority: 10, When: map[string]interface{}{"$expr": "false"}},
			{To: "c", Priority: 20, When: map[string]interface{}{"$expr": "true"}},
		},
	}
	view := state.StateView{Context: map[string]interface{}{}, Tasks: map[string]state.TaskView{}, Triggers: map[string]interface{}{}}
	targets, err := selectTransitions(task, e.ExprEngine, view)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, targets)
}

func TestSelectTransitions_FanOutModeEnqueuesAllPassing(t *testing.T) {
	e := newTestEngine(t, linearDoc())
	task := state.Task{
		ID: "x",
		Transitions: []state.Transition{
			{To: "b", Priority: 10},
			{To: "c", Priority: 20},
		},
	}
	view := state.StateView{Context: map[string]interface{}{}, Tasks: map[string]state.TaskView{}, Triggers: map[string]interface{}{}}
	targets, err := selectTransitions(task, e.ExprEngine, view)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b", "c"}, targets)
}

func TestSelectTransitions_NonBoolWhenFailsWithExprBoolCode(t *testing.T) {
	e := newTestEngine(t, linearDoc())
	task := state.Task{
		ID: "x",
		Transitions: []state.Transition{
			{To: "b", Priority: 10, When: map[string]interface{}{"$expr": "1"}},
		},
	}
	view := state.StateView{Context: map[string]interface{}{}, Tasks: map[string]state.TaskView{}, Triggers: map[string]interface{}{}}
	_, err := selectTransitions(task, e.ExprEngine, view)
	require.Error(t, err)
	assert.True(t, state.IsCode(err, state.CodeExprNonBool))
}

func TestSelectTransitions_NilIncludeIfDefaultsToTrue(t *testing.T) {
	e := newTestEngine(t, linearDoc())
	task := state.Task{
		ID: "x",
		Transitions: []state.Transition{
			{To: "b", Priority: 10},
		},
	}
	view := state.StateView{Context: map[string]interface{}{}, Tasks: map[string]state.TaskView{}, Triggers: map[string]interface{}{}}
	targets, err := selectTransitions(task, e.ExprEngine, view)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, targets)
}

func TestResolveParams_ReplacesExprLeaf(t *testing.T) {
	e := newTestEngine(t, linearDoc())
	view := state.StateView{
		Context:  map[string]interface{}{"name": "world"},
		Tasks:    map[string]state.TaskView{},
		Triggers: map[string]interface{}{},
	}
	params := map[string]interface{}{
		"greeting": map[string]interface{}{"$expr": "'hello ' + context['name']"},
		"nested":   map[string]interface{}{"inner": map[string]interface{}{"$expr": "1 + 1"}},
	}
	resolved, err := resolveParams(params, e.ExprEngine, view)
	require.NoError(t, err)
	m := resolved.(map[string]interface{})
	assert.Equal(t, "hello world", m["greeting"])
}
