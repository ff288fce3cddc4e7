package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"newton/internal/workflowgraph/engine"
	"newton/internal/workflowgraph/lint"
	"newton/internal/workflowgraph/state"
)

var runCmd = &cobra.Command{
	Use:   "run <workflow-file>",
	Short: "Run a workflow graph document to completion",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkflowRun,
}

func runWorkflowRun(cmd *cobra.Command, args []string) error {
	path := args[0]
	triggerArg, _ := cmd.Flags().GetString("trigger")
	allowShell, _ := cmd.Flags().GetBool("allow-shell")

	p, err := loadAndPrepare(path)
	if err != nil {
		return err
	}
	defer p.Close()

	if allowShell {
		p.doc.Workflow.Settings.CommandOperator.AllowShell = true
	}
	if report := lint.Lint(p.doc); report.HasErrors() {
		for _, f := range report.Findings {
			fmt.Printf("[%s] %s: %s\n", f.Severity, f.Code, f.Message)
		}
		return fmt.Errorf("workflow graph %s failed lint checks; pass --allow-shell to opt in where applicable", path)
	}

	trigger, err := readTriggerPayload(triggerArg)
	if err != nil {
		return err
	}

	executionID := newExecutionID()
	e := engine.New(executionID, path, p.loaded.Hash, p.cfg.Workspace, p.doc, p.registry, p.exprEngine, p.artifacts, p.checkpoints, trigger)

	result, err := e.Run(context.Background())
	if err != nil {
		return fmt.Errorf("execution %s failed to run: %w", executionID, err)
	}

	fmt.Printf("execution_id: %s\nstatus: %s\n", executionID, result.Status)
	if result.ErrorCode != "" {
		fmt.Printf("error_code: %s\nmessage: %s\n", result.ErrorCode, result.Message)
	}
	for _, w := range result.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	if result.Status != state.StatusCompleted {
		return fmt.Errorf("execution %s finished with status %s", executionID, result.Status)
	}
	return nil
}
