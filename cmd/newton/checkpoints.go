package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"newton/internal/config"
	"newton/internal/workflowgraph/checkpoint"
)

var checkpointsCmd = &cobra.Command{
	Use:   "checkpoints",
	Short: "Inspect and manage execution checkpoints",
}

var checkpointsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every execution found under the workspace's state root",
	RunE:  runCheckpointsList,
}

var checkpointsCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete checkpoint history files older than --older-than",
	RunE:  runCheckpointsClean,
}

func runCheckpointsList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store := checkpoint.NewStore(cfg.Workspace, nil, false)
	summaries, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list checkpoints: %w", err)
	}
	if len(summaries) == 0 {
		fmt.Println("no executions found")
		return nil
	}

	for _, s := range summaries {
		fmt.Printf("%s\tstatus=%s\tstarted=%s\tcheckpoint_age=%s\tcheckpoint_size=%d\n",
			s.ExecutionID, s.Status, s.StartedAt.Format("2006-01-02T15:04:05Z07:00"), s.CheckpointAge.Round(1e9), s.CheckpointSize)
	}
	return nil
}

func runCheckpointsClean(cmd *cobra.Command, args []string) error {
	olderThan, _ := cmd.Flags().GetDuration("older-than")
	if olderThan <= 0 {
		return fmt.Errorf("--older-than must be a positive duration, e.g. 168h")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store := checkpoint.NewStore(cfg.Workspace, nil, false)
	if err := store.Clean(olderThan); err != nil {
		return fmt.Errorf("failed to clean checkpoint history: %w", err)
	}
	fmt.Printf("cleaned checkpoint history older than %s\n", olderThan)
	return nil
}
