package operator

import (
	"context"
	"os/exec"
)

// EngineDriver builds the subprocess command for one agent engine
// backend. Agent itself owns streaming, signal scanning, and the kill/loop
// semantics; a driver only knows how to construct argv for its engine.
type EngineDriver interface {
	Name() string
	BuildCommand(ctx context.Context, workDir string, params map[string]interface{}) (*exec.Cmd, error)
}

// OpenCodeDriver launches the `opencode` CLI in non-interactive run mode.
type OpenCodeDriver struct{}

func (d *OpenCodeDriver) Name() string { return "opencode" }

func (d *OpenCodeDriver) BuildCommand(ctx context.Context, workDir string, params map[string]interface{}) (*exec.Cmd, error) {
	prompt, _ := params["prompt"].(string)
	args := []string{"run", "--print-logs", prompt}
	c := exec.CommandContext(ctx, "opencode", args...)
	c.Dir = workDir
	return c, nil
}

// ClaudeCodeDriver launches the `claude` CLI in non-interactive print mode.
type ClaudeCodeDriver struct{}

func (d *ClaudeCodeDriver) Name() string { return "claude-code" }

func (d *ClaudeCodeDriver) BuildCommand(ctx context.Context, workDir string, params map[string]interface{}) (*exec.Cmd, error) {
	prompt, _ := params["prompt"].(string)
	args := []string{"-p", prompt, "--output-format", "stream-json"}
	c := exec.CommandContext(ctx, "claude", args...)
	c.Dir = workDir
	return c, nil
}

// PassthroughDriver runs an arbitrary command verbatim, for engines that
// are just a shell command rather than a known coding-agent CLI.
type PassthroughDriver struct{}

func (d *PassthroughDriver) Name() string { return "command" }

func (d *PassthroughDriver) BuildCommand(ctx context.Context, workDir string, params map[string]interface{}) (*exec.Cmd, error) {
	cmdStr, _ := params["cmd"].(string)
	c := exec.CommandContext(ctx, "/bin/sh", "-c", cmdStr)
	c.Dir = workDir
	return c, nil
}
