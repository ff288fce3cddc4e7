package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"newton/internal/config"
	"newton/internal/workflowgraph/artifact"
	"newton/internal/workflowgraph/audit"
	"newton/internal/workflowgraph/checkpoint"
	"newton/internal/workflowgraph/document"
	"newton/internal/workflowgraph/expr"
	"newton/internal/workflowgraph/operator"
	"newton/internal/workflowgraph/state"
	"newton/internal/workflowgraph/transform"
)

// prepared bundles everything a run/resume command needs to build an
// engine.Engine: the parsed-and-transformed document, its stable hash,
// and the collaborator packages wired from cfg.
type prepared struct {
	loaded      *document.LoadedDocument
	doc         *state.WorkflowDocument
	exprEngine  *expr.Engine
	registry    *operator.Registry
	artifacts   *artifact.Store
	checkpoints *checkpoint.Store
	auditStore  *audit.Store
	cfg         *config.Config
}

// loadAndPrepare loads path, runs static validation, applies the
// transform pipeline, and wires the operator registry, artifact store,
// checkpoint store and SQLite audit index from cfg. Callers must Close
// the returned prepared.auditStore when done.
func loadAndPrepare(path string) (*prepared, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	loaded, err := document.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow graph %s: %w", path, err)
	}

	exprEngine := expr.NewEngine(uint64(cfg.DefaultMaxExprSteps))

	if result := document.Validate(loaded.Doc, exprEngine); !result.OK() {
		return nil, fmt.Errorf("workflow graph %s failed validation: %w", path, firstEngineError(result.Errors))
	}

	transformed, err := transform.Apply(loaded.Doc, exprEngine)
	if err != nil {
		return nil, fmt.Errorf("failed to apply transform pipeline to %s: %w", path, err)
	}

	auditStore, err := audit.Open(filepath.Join(cfg.AuditDir, "index.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open audit index: %w", err)
	}

	registry := operator.NewDefaultRegistry()
	interviewer := &operator.ConsoleInterviewer{}
	registry.Register(operator.NewHumanApproval(interviewer, cfg.AuditDir, transformed.Workflow.Settings.Redaction.RedactKeys).WithAuditIndex(auditStore))
	registry.Register(operator.NewHumanDecision(interviewer, cfg.AuditDir, transformed.Workflow.Settings.Redaction.RedactKeys).WithAuditIndex(auditStore))

	artifacts := artifact.NewStore(cfg.Workspace, transformed.Workflow.Settings.ArtifactStorage)
	checkpoints := checkpoint.NewStore(cfg.Workspace, transformed.Workflow.Settings.Redaction.RedactKeys, transformed.Workflow.Settings.Checkpoint.KeepHistory)

	return &prepared{
		loaded:      loaded,
		doc:         transformed,
		exprEngine:  exprEngine,
		registry:    registry,
		artifacts:   artifacts,
		checkpoints: checkpoints,
		auditStore:  auditStore,
		cfg:         cfg,
	}, nil
}

func (p *prepared) Close() {
	if p.auditStore != nil {
		_ = p.auditStore.Close()
	}
}

func firstEngineError(errs []*state.EngineError) error {
	if len(errs) == 0 {
		return fmt.Errorf("unknown validation failure")
	}
	if len(errs) == 1 {
		return errs[0]
	}
	msg := fmt.Sprintf("%s (and %d more)", errs[0].Error(), len(errs)-1)
	return fmt.Errorf("%s", msg)
}

func newExecutionID() string {
	return uuid.New().String()
}

func readTriggerPayload(raw string) (map[string]interface{}, error) {
	if raw == "" {
		return map[string]interface{}{}, nil
	}
	return parseJSONObjectArg(raw)
}

func parseJSONObjectArg(raw string) (map[string]interface{}, error) {
	content := []byte(raw)
	if len(raw) > 0 && raw[0] == '@' {
		data, err := os.ReadFile(raw[1:])
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", raw[1:], err)
		}
		content = data
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(content, &obj); err != nil {
		return nil, fmt.Errorf("failed to parse JSON object: %w", err)
	}
	return obj, nil
}
