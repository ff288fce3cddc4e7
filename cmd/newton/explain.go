package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"newton/internal/workflowgraph/document"
	"newton/internal/workflowgraph/explain"
	"newton/internal/workflowgraph/expr"
	"newton/internal/workflowgraph/transform"
)

var explainCmd = &cobra.Command{
	Use:   "explain <workflow-file>",
	Short: "Print a human-readable tree of a workflow graph's tasks and transitions",
	Args:  cobra.ExactArgs(1),
	RunE:  runExplain,
}

func runExplain(cmd *cobra.Command, args []string) error {
	path := args[0]
	contextArg, _ := cmd.Flags().GetString("context")

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

	overrides, err := readTriggerPayload(contextArg)
	if err != nil {
		return err
	}

	doc := explain.Build(transformed, exprEngine, overrides)
	fmt.Print(explain.Render(doc))
	return nil
}
