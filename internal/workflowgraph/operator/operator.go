// Package operator implements the built-in task operators and the
// registry that dispatches a task's `operator` name to one.
package operator

import (
	"context"
	"fmt"

	"newton/internal/workflowgraph/state"
)

// ExecContext carries everything an operator's Execute needs beyond its
// own params: the absolute workspace path, identifying ids, the run
// sequence number, and a read-only snapshot of context/tasks/triggers.
type ExecContext struct {
	WorkspacePath string
	ExecutionID   string
	TaskID        string
	RunSeq        int
	View          state.StateView
}

// Operator is anything exposing a stable name, a pure params check, and an
// execution entry point returning a JSON-shaped value.
type Operator interface {
	Name() string
	ValidateParams(params map[string]interface{}) error
	Execute(ctx context.Context, params map[string]interface{}, ec ExecContext) (interface{}, error)
}

// Registry maps operator names to implementations, dispatched by each
// task's `operator` field.
type Registry struct {
	operators map[string]Operator
}

func NewRegistry() *Registry {
	return &Registry{operators: map[string]Operator{}}
}

func (r *Registry) Register(op Operator) {
	r.operators[op.Name()] = op
}

func (r *Registry) Get(name string) (Operator, error) {
	op, ok := r.operators[name]
	if !ok {
		return nil, state.NewError(state.CodeOperatorNotFound, state.CategoryValidation,
			fmt.Sprintf("operator %q is not registered", name))
	}
	return op, nil
}

// NewDefaultRegistry returns a Registry with the built-in operators that
// take no construction arguments registered under their spec names.
// HumanApproval and HumanDecision are not included; they take an
// Interviewer and an audit directory and are added with Register.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&NoOp{})
	r.Register(&SetContext{})
	r.Register(NewCommand())
	r.Register(&AssertCompleted{})
	r.Register(&ReadControlFile{})
	r.Register(NewAgent())
	return r
}
