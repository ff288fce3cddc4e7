package operator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newton/internal/workflowgraph/state"
)

func TestRegistry_GetUnknownOperatorFailsWithOp001(t *testing.T) {
	r := NewDefaultRegistry()
	_, err := r.Get("DoesNotExist")
	require.Error(t, err)
	assert.True(t, state.IsCode(err, state.CodeOperatorNotFound))
}

func TestRegistry_GetKnownOperator(t *testing.T) {
	r := NewDefaultRegistry()
	op, err := r.Get("NoOp")
	require.NoError(t, err)
	assert.Equal(t, "NoOp", op.Name())
}

func TestNoOp_ReturnsOkStatus(t *testing.T) {
	op := &NoOp{}
	out, err := op.Execute(context.Background(), map[string]interface{}{}, ExecContext{})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"status": "ok"}, out)
}

func TestSetContext_ReturnsAppliedPatch(t *testing.T) {
	op := &SetContext{}
	patch := map[string]interface{}{"a": 1}
	out, err := op.Execute(context.Background(), map[string]interface{}{"patch": patch}, ExecContext{})
	require.NoError(t, err)
	result := out.(map[string]interface{})
	assert.Equal(t, true, result["applied"])
	assert.Equal(t, patch, result["patch"])
}

func TestSetContext_MissingPatchFails(t *testing.T) {
	op := &SetContext{}
	err := op.ValidateParams(map[string]interface{}{})
	require.Error(t, err)
}

func TestAssertCompleted_MissingTaskFailsWithAssert001(t *testing.T) {
	op := &AssertCompleted{}
	ec := ExecContext{View: state.StateView{Tasks: map[string]state.TaskView{
		"a": {Status: string(state.RunSuccess)},
	}}}
	_, err := op.Execute(context.Background(), map[string]interface{}{
		"require": []interface{}{"a", "b"},
	}, ec)
	require.Error(t, err)
	assert.True(t, state.IsCode(err, state.CodeAssertFailed))
}

func TestAssertCompleted_AllPresentSucceeds(t *testing.T) {
	op := &AssertCompleted{}
	ec := ExecContext{View: state.StateView{Tasks: map[string]state.TaskView{
		"a": {Status: string(state.RunSuccess)},
	}}}
	out, err := op.Execute(context.Background(), map[string]interface{}{
		"require": []interface{}{"a"},
	}, ec)
	require.NoError(t, err)
	result := out.(map[string]interface{})
	assert.Equal(t, true, result["all_succeeded"])
}

func TestReadControlFile_MissingFileReturnsExistsFalse(t *testing.T) {
	dir := t.TempDir()
	op := &ReadControlFile{}
	out, err := op.Execute(context.Background(), map[string]interface{}{"path": "control.json"}, ExecContext{WorkspacePath: dir})
	require.NoError(t, err)
	result := out.(map[string]interface{})
	assert.Equal(t, false, result["exists"])
}

func TestReadControlFile_ValidJSONParses(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "control.json"), []byte(`{"done":true,"message":"go"}`), 0o644))
	op := &ReadControlFile{}
	out, err := op.Execute(context.Background(), map[string]interface{}{"path": "control.json"}, ExecContext{WorkspacePath: dir})
	require.NoError(t, err)
	result := out.(map[string]interface{})
	assert.Equal(t, true, result["exists"])
	assert.Equal(t, true, result["done"])
}

func TestReadControlFile_NonJSONFailsWithCtrl001(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "control.json"), []byte("not json"), 0o644))
	op := &ReadControlFile{}
	_, err := op.Execute(context.Background(), map[string]interface{}{"path": "control.json"}, ExecContext{WorkspacePath: dir})
	require.Error(t, err)
	assert.True(t, state.IsCode(err, state.CodeControlFileInvalid))
}

func TestCommand_RejectsAbsoluteCwd(t *testing.T) {
	op := NewCommand()
	err := op.ValidateParams(map[string]interface{}{"cmd": "echo hi", "cwd": "/tmp"})
	require.Error(t, err)
	assert.True(t, state.IsCode(err, state.CodeCommandCwdAbsolute))
}

func TestCommand_RunsAndCapturesOutput(t *testing.T) {
	dir := t.TempDir()
	op := NewCommand()
	out, err := op.Execute(context.Background(), map[string]interface{}{"cmd": "echo hello"}, ExecContext{WorkspacePath: dir})
	require.NoError(t, err)
	result := out.(map[string]interface{})
	assert.Equal(t, 0, result["exit_code"])
	assert.Contains(t, result["stdout"], "hello")
}

func TestAgent_InvalidSignalRegexFailsWithAgent004(t *testing.T) {
	op := NewAgent()
	err := op.ValidateParams(map[string]interface{}{
		"engine":  "command",
		"signals": map[string]interface{}{"bad": "(unclosed"},
	})
	require.Error(t, err)
	assert.True(t, state.IsCode(err, state.CodeAgentInvalidSignal))
}

func TestAgent_SignalContainingNewlineFails(t *testing.T) {
	op := NewAgent()
	err := op.ValidateParams(map[string]interface{}{
		"engine":  "command",
		"signals": map[string]interface{}{"bad": "foo\nbar"},
	})
	require.Error(t, err)
	assert.True(t, state.IsCode(err, state.CodeAgentInvalidSignal))
}

func TestAgent_UnknownEngineFails(t *testing.T) {
	op := NewAgent()
	err := op.ValidateParams(map[string]interface{}{"engine": "not-a-real-engine"})
	require.Error(t, err)
}
