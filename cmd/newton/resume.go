package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"newton/internal/workflowgraph/engine"
	"newton/internal/workflowgraph/state"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <execution-id>",
	Short: "Resume a workflow execution from its last checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkflowResume,
}

func runWorkflowResume(cmd *cobra.Command, args []string) error {
	executionID := args[0]
	workflowPath, _ := cmd.Flags().GetString("workflow")
	allowWorkflowChange, _ := cmd.Flags().GetBool("allow-workflow-change")

	if workflowPath == "" {
		return fmt.Errorf("--workflow is required to re-load and re-validate the document before resuming")
	}

	p, err := loadAndPrepare(workflowPath)
	if err != nil {
		return err
	}
	defer p.Close()

	e, err := engine.Resume(executionID, workflowPath, p.loaded.Hash, p.cfg.Workspace, p.doc, p.registry, p.exprEngine, p.artifacts, p.checkpoints, allowWorkflowChange)
	if err != nil {
		return fmt.Errorf("failed to resume execution %s: %w", executionID, err)
	}

	result, err := e.Run(context.Background())
	if err != nil {
		return fmt.Errorf("execution %s failed to resume: %w", executionID, err)
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
