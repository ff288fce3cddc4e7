package expr

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"newton/internal/workflowgraph/state"
)

// Engine is the sandboxed expression compiler/evaluator required by spec
// §4.1: bounded operation count, no file/network/process access, no host
// callbacks, deterministic JSON-typed results. It is a thin wrapper around
// go.starlark.net restricted to single expressions (ParseExpr, never a
// full module) — that restriction alone rules out function definitions,
// loops, and therefore unbounded call/recursion depth; SetMaxExecutionSteps
// bounds the remaining operation count.
type Engine struct {
	maxSteps uint64
}

// DefaultMaxSteps mirrors the bound the teacher's StarlarkEvaluator uses.
const DefaultMaxSteps = 10000

func NewEngine(maxSteps uint64) *Engine {
	if maxSteps == 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Engine{maxSteps: maxSteps}
}

// Bindings is the fixed three-name context every expression sees.
type Bindings struct {
	Context  map[string]interface{}
	Tasks    map[string]interface{}
	Triggers map[string]interface{}
}

// Compile parses expr as a standalone expression and discards the AST,
// surfacing only syntax errors. It never executes anything.
func (e *Engine) Compile(expression string) error {
	fileOpts := syntax.FileOptions{}
	_, err := fileOpts.ParseExpr("expr", expression, 0)
	if err != nil {
		return state.WrapError(state.CodeExprCompile, state.CategoryValidation,
			fmt.Sprintf("failed to compile expression %q", expression), err)
	}
	return nil
}

// Evaluate compiles and runs expr against bindings, returning a
// JSON-compatible Go value (preserving int vs. float distinction where
// possible; Starlark None maps to nil).
func (e *Engine) Evaluate(expression string, bindings Bindings) (interface{}, error) {
	thread := &starlark.Thread{Name: "workflowgraph-expr"}
	thread.SetMaxExecutionSteps(e.maxSteps)
	thread.Print = func(*starlark.Thread, string) {} // printing/debug output is dropped

	globals := starlark.StringDict{
		"context":  e.goToStarlark(bindings.Context),
		"tasks":    e.goToStarlark(bindings.Tasks),
		"triggers": e.goToStarlark(bindings.Triggers),
	}

	fileOpts := syntax.FileOptions{}
	astExpr, err := fileOpts.ParseExpr("expr", expression, 0)
	if err != nil {
		return nil, state.WrapError(state.CodeExprCompile, state.CategoryValidation,
			fmt.Sprintf("failed to compile expression %q", expression), err)
	}

	result, err := starlark.EvalExprOptions(&fileOpts, thread, astExpr, globals)
	if err != nil {
		return nil, state.WrapError(state.CodeExprCompile, state.CategoryValidation,
			fmt.Sprintf("failed to evaluate expression %q", expression), err)
	}

	return e.convertFromStarlark(result), nil
}

// EvaluateBool evaluates expr and applies workflow-graph truthy semantics:
// false for null/false/0/""/[]/{}, true otherwise. `when`/`include_if`
// guards do not use this — they require a literal bool result and reject
// anything else with WFG-EXPR-BOOL-001 (see engine.evaluateCondition).
func (e *Engine) EvaluateBool(expression string, bindings Bindings) (bool, error) {
	v, err := e.Evaluate(expression, bindings)
	if err != nil {
		return false, err
	}
	return Truthy(v), nil
}

// Truthy implements the spec's boolean-coercion rule for expression
// results: false for nil/false/0/0.0/""/empty array/empty object, true
// otherwise.
func Truthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	case string:
		return val != ""
	case []interface{}:
		return len(val) > 0
	case map[string]interface{}:
		return len(val) > 0
	default:
		return true
	}
}

func (e *Engine) goToStarlark(v interface{}) starlark.Value {
	switch val := v.(type) {
	case nil:
		return starlark.None
	case bool:
		return starlark.Bool(val)
	case int:
		return starlark.MakeInt(val)
	case int64:
		return starlark.MakeInt64(val)
	case float64:
		return starlark.Float(val)
	case string:
		return starlark.String(val)
	case []interface{}:
		elems := make([]starlark.Value, len(val))
		for i, elem := range val {
			elems[i] = e.goToStarlark(elem)
		}
		return starlark.NewList(elems)
	case map[string]interface{}:
		return newAttrDict(e, val)
	default:
		return starlark.String(fmt.Sprintf("%v", val))
	}
}

func (e *Engine) convertFromStarlark(v starlark.Value) interface{} {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil
	case starlark.Bool:
		return bool(val)
	case starlark.Int:
		i, _ := val.Int64()
		return i
	case starlark.Float:
		return float64(val)
	case starlark.String:
		return string(val)
	case *starlark.List:
		result := make([]interface{}, val.Len())
		for i := 0; i < val.Len(); i++ {
			result[i] = e.convertFromStarlark(val.Index(i))
		}
		return result
	case starlark.Tuple:
		result := make([]interface{}, len(val))
		for i, item := range val {
			result[i] = e.convertFromStarlark(item)
		}
		return result
	case *starlark.Dict:
		result := make(map[string]interface{})
		for _, item := range val.Items() {
			key := e.convertFromStarlark(item[0])
			if keyStr, ok := key.(string); ok {
				result[keyStr] = e.convertFromStarlark(item[1])
			}
		}
		return result
	case *AttrDict:
		result := make(map[string]interface{})
		for _, item := range val.Items() {
			key := e.convertFromStarlark(item[0])
			if keyStr, ok := key.(string); ok {
				result[keyStr] = e.convertFromStarlark(item[1])
			}
		}
		return result
	default:
		return val.String()
	}
}
