package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newton/internal/workflowgraph/state"
)

func TestCompile_ValidExpressionNoError(t *testing.T) {
	e := NewEngine(0)
	err := e.Compile(`1 + 2`)
	require.NoError(t, err)
}

func TestCompile_SyntaxErrorReturnsExprCode(t *testing.T) {
	e := NewEngine(0)
	err := e.Compile(`1 +`)
	require.Error(t, err)
	assert.True(t, state.IsCode(err, state.CodeExprCompile))
}

func TestEvaluate_ContextBindingAccessible(t *testing.T) {
	e := NewEngine(0)
	bindings := Bindings{
		Context: map[string]interface{}{"retries": int64(3)},
	}
	result, err := e.Evaluate(`context["retries"] > 1`, bindings)
	require.NoError(t, err)
	assert.Equal(t, true, result)
}

func TestEvaluate_DottedAttrAccess(t *testing.T) {
	e := NewEngine(0)
	bindings := Bindings{
		Tasks: map[string]interface{}{
			"build": map[string]interface{}{"status": "success"},
		},
	}
	result, err := e.Evaluate(`tasks.build.status`, bindings)
	require.NoError(t, err)
	assert.Equal(t, "success", result)
}

func TestEvaluateBool_TruthyRuleForEmptyContainers(t *testing.T) {
	e := NewEngine(0)
	ok, err := e.EvaluateBool(`[]`, Bindings{})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = e.EvaluateBool(`[1]`, Bindings{})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTruthy_Scalars(t *testing.T) {
	assert.False(t, Truthy(nil))
	assert.False(t, Truthy(false))
	assert.False(t, Truthy(0))
	assert.False(t, Truthy(""))
	assert.False(t, Truthy([]interface{}{}))
	assert.False(t, Truthy(map[string]interface{}{}))
	assert.True(t, Truthy("x"))
	assert.True(t, Truthy(1))
	assert.True(t, Truthy(map[string]interface{}{"a": 1}))
}

func TestInterpolate_ScalarAndObjectPlaceholders(t *testing.T) {
	e := NewEngine(0)
	bindings := Bindings{Context: map[string]interface{}{
		"name":  "demo",
		"count": int64(2),
		"cfg":   map[string]interface{}{"k": "v"},
	}}

	out, err := e.Interpolate("hello ${context[\"name\"]}, count=${context[\"count\"]}, cfg=${context[\"cfg\"]}", bindings)
	require.NoError(t, err)
	assert.Equal(t, "hello demo, count=2, cfg={\"k\":\"v\"}", out)
}

func TestInterpolate_NoPlaceholdersReturnsUnchanged(t *testing.T) {
	e := NewEngine(0)
	out, err := e.Interpolate("plain text", Bindings{})
	require.NoError(t, err)
	assert.Equal(t, "plain text", out)
}

func TestGetSetNestedValue_RoundTrip(t *testing.T) {
	data := map[string]interface{}{}
	SetNestedValue(data, "a.b.c", 42)
	v, ok := GetNestedValue(data, "a.b.c")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = GetNestedValue(data, "a.b.missing")
	assert.False(t, ok)
}
