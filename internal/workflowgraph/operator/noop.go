package operator

import "context"

// NoOp performs no action and returns a constant status value. It exists
// as a graph-wiring placeholder (branch points, terminal markers) that
// needs no side effect of its own.
type NoOp struct{}

func (o *NoOp) Name() string { return "NoOp" }

func (o *NoOp) ValidateParams(params map[string]interface{}) error {
	return nil
}

func (o *NoOp) Execute(ctx context.Context, params map[string]interface{}, ec ExecContext) (interface{}, error) {
	return map[string]interface{}{"status": "ok"}, nil
}
