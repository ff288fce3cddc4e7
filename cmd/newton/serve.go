package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"newton/internal/workflowgraph/engine"
	"newton/internal/workflowgraph/webhook"
)

var serveCmd = &cobra.Command{
	Use:   "serve <workflow-file>",
	Short: "Listen for webhook triggers and start executions of a workflow graph document",
	Args:  cobra.ExactArgs(1),
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	path := args[0]
	port, _ := cmd.Flags().GetInt("port")
	secret, _ := cmd.Flags().GetString("secret")
	if secret == "" {
		secret = os.Getenv("NEWTON_WEBHOOK_SECRET")
	}

	trigger := func(payload json.RawMessage) (string, error) {
		p, err := loadAndPrepare(path)
		if err != nil {
			return "", err
		}

		var triggerPayload map[string]interface{}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &triggerPayload); err != nil {
				p.Close()
				return "", fmt.Errorf("failed to parse webhook payload: %w", err)
			}
		}

		executionID := newExecutionID()
		e := engine.New(executionID, path, p.loaded.Hash, p.cfg.Workspace, p.doc, p.registry, p.exprEngine, p.artifacts, p.checkpoints, triggerPayload)

		go func() {
			defer p.Close()
			if _, err := e.Run(context.Background()); err != nil {
				slog.Error("webhook-triggered execution failed", "execution_id", executionID, "error", err)
			}
		}()

		return executionID, nil
	}

	handler := webhook.NewHandler(trigger, secret)
	addr := fmt.Sprintf(":%d", port)
	slog.Info("newton serve listening", "addr", addr, "workflow", path)
	return http.ListenAndServe(addr, handler.Mux())
}
