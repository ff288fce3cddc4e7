package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"newton/internal/config"
	"newton/internal/workflowgraph/checkpoint"
	"newton/internal/workflowgraph/state"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor <execution-id>",
	Short: "Tail execution.json and print tick summaries until the run finishes",
	Args:  cobra.ExactArgs(1),
	RunE:  runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	executionID := args[0]
	interval, _ := cmd.Flags().GetDuration("interval")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	store := checkpoint.NewStore(cfg.Workspace, nil, false)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	seen := 0
	for {
		exec, err := store.LoadExecution(executionID)
		if err != nil {
			return fmt.Errorf("failed to read execution %s: %w", executionID, err)
		}
		for _, run := range exec.TaskRuns[seen:] {
			fmt.Printf("[%s] %-20s %-10s %5dms\n", run.CompletedAt.Format(time.RFC3339), run.TaskID, run.Status, run.DurationMs)
		}
		seen = len(exec.TaskRuns)

		if exec.Status != state.StatusRunning {
			fmt.Printf("execution %s finished: %s\n", executionID, exec.Status)
			if exec.ErrorCode != "" {
				fmt.Printf("error_code: %s\n", exec.ErrorCode)
			}
			return nil
		}

		<-ticker.C
	}
}
