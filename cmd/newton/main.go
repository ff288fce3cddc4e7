// Command newton runs, resumes, validates, lints, and explains workflow
// graph documents.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"newton/internal/config"
)

var (
	cfgFile string
	debug   bool

	rootCmd = &cobra.Command{
		Use:   "newton",
		Short: "newton runs workflow graph documents",
		Long:  "newton schedules, checkpoints, and resumes workflow graph executions described by .workflow_graph.yaml documents.",
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/newton/newton.yaml or ./newton.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(dotCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkpointsCmd)
	rootCmd.AddCommand(monitorCmd)

	checkpointsCmd.AddCommand(checkpointsListCmd)
	checkpointsCmd.AddCommand(checkpointsCleanCmd)

	runCmd.Flags().String("trigger", "", "JSON trigger payload, or @file to read it from a file")
	runCmd.Flags().Bool("allow-shell", false, "override command_operator.allow_shell for this run")

	resumeCmd.Flags().String("workflow", "", "workflow graph file to re-validate and resume against (required)")
	resumeCmd.Flags().Bool("allow-workflow-change", false, "allow resuming after the workflow document's hash has changed")

	explainCmd.Flags().String("context", "", "JSON context overrides to merge over the document's own context")

	serveCmd.Flags().Int("port", 8099, "port to listen on")
	serveCmd.Flags().String("secret", "", "HMAC-SHA256 webhook secret (falls back to NEWTON_WEBHOOK_SECRET)")

	checkpointsCleanCmd.Flags().Duration("older-than", 0, "delete checkpoint history files older than this duration")

	monitorCmd.Flags().Duration("interval", 2*time.Second, "polling interval")
}

func initConfig() {
	if err := config.InitViper(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "newton: failed to initialize configuration: %v\n", err)
	}
}

func initLogging() {
	cfg, err := config.Load()
	level := slog.LevelInfo
	if debug || (err == nil && cfg.Debug) {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
