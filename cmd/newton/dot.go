package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"newton/internal/workflowgraph/document"
	"newton/internal/workflowgraph/dot"
	"newton/internal/workflowgraph/expr"
	"newton/internal/workflowgraph/transform"
)

var dotCmd = &cobra.Command{
	Use:   "dot <workflow-file>",
	Short: "Render a workflow graph document as Graphviz DOT",
	Args:  cobra.ExactArgs(1),
	RunE:  runDot,
}

func runDot(cmd *cobra.Command, args []string) error {
	path := args[0]
	loaded, err := document.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	exprEngine := expr.NewEngine(0)
	if result := document.Validate(loaded.Doc, exprEngine); !result.OK() {
		return fmt.Errorf("%s failed validation (%d error(s)); run \"newton validate\" for detail", path, len(result.Errors))
	}

	transformed, err := transform.Apply(loaded.Doc, exprEngine)
	if err != nil {
		return fmt.Errorf("failed to apply transform pipeline to %s: %w", path, err)
	}

	fmt.Println(dot.Render(transformed))
	for _, w := range dot.ReachabilityWarnings(transformed) {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: task %q is unreachable from entry_task\n", w)
	}
	return nil
}
