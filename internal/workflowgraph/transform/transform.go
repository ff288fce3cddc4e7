// Package transform implements the five-stage pure pipeline that turns a
// freshly loaded workflow document into one ready for the scheduler:
// normalize, macro expansion, include_if pruning, template interpolation,
// expression pre-compile. Each stage is Document -> Document and the
// pipeline runs in this exact order.
package transform

import (
	"newton/internal/workflowgraph/expr"
	"newton/internal/workflowgraph/state"
)

// Stage is a single pure transform step.
type Stage func(doc *state.WorkflowDocument, engine *expr.Engine) (*state.WorkflowDocument, error)

// DefaultPipeline returns the five stages in the order the pipeline always
// runs them.
func DefaultPipeline() []Stage {
	return []Stage{
		Normalize,
		ExpandMacros,
		PruneIncludeIf,
		InterpolateTemplates,
		Precompile,
	}
}

// Apply runs every stage of the default pipeline in order, threading the
// document through each. The input document is never mutated in place;
// each stage returns a fresh copy.
func Apply(doc *state.WorkflowDocument, engine *expr.Engine) (*state.WorkflowDocument, error) {
	current := doc
	var err error
	for _, stage := range DefaultPipeline() {
		current, err = stage(current, engine)
		if err != nil {
			return nil, err
		}
	}
	return current, nil
}
