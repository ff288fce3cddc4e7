package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"newton/internal/workflowgraph/document"
	"newton/internal/workflowgraph/expr"
	"newton/internal/workflowgraph/lint"
	"newton/internal/workflowgraph/transform"
)

var validateCmd = &cobra.Command{
	Use:   "validate <workflow-file>",
	Short: "Validate a workflow graph document",
	Long:  "Runs static validation (version/mode/structure/expression compilation) and reports every failure found rather than stopping at the first.",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

var lintCmd = &cobra.Command{
	Use:   "lint <workflow-file>",
	Short: "Run static lint rules against a workflow graph document",
	Args:  cobra.ExactArgs(1),
	RunE:  runLint,
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := args[0]
	loaded, err := document.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	exprEngine := expr.NewEngine(0)
	result := document.Validate(loaded.Doc, exprEngine)
	if result.OK() {
		fmt.Printf("%s is valid\n", path)
		return nil
	}

	for _, e := range result.Errors {
		fmt.Printf("[%s] %s: %s\n", e.Category, e.Code, e.Message)
	}
	return fmt.Errorf("%s failed validation with %d error(s)", path, len(result.Errors))
}

func runLint(cmd *cobra.Command, args []string) error {
	path := args[0]
	loaded, err := document.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	exprEngine := expr.NewEngine(0)
	if result := document.Validate(loaded.Doc, exprEngine); !result.OK() {
		for _, e := range result.Errors {
			fmt.Printf("[%s] %s: %s\n", e.Category, e.Code, e.Message)
		}
		return fmt.Errorf("%s failed validation; fix validation errors before linting", path)
	}

	transformed, err := transform.Apply(loaded.Doc, exprEngine)
	if err != nil {
		return fmt.Errorf("failed to apply transform pipeline to %s: %w", path, err)
	}

	report := lint.Lint(transformed)
	if len(report.Findings) == 0 {
		fmt.Printf("%s: no lint findings\n", path)
		return nil
	}
	for _, f := range report.Findings {
		loc := f.TaskID
		if loc == "" {
			loc = "(document)"
		}
		fmt.Printf("[%s] %s %s: %s\n", f.Severity, f.Code, loc, f.Message)
		if f.Hint != "" {
			fmt.Printf("    hint: %s\n", f.Hint)
		}
	}
	if report.HasErrors() {
		return fmt.Errorf("%s has lint errors", path)
	}
	return nil
}
