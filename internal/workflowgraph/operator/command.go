package operator

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"newton/internal/workflowgraph/state"
)

// maxCapturedOutputBytes truncates captured stdout/stderr, matching the
// Agent operator's per-stream cap (§4.4).
const maxCapturedOutputBytes = 1 << 20

// Command runs a subprocess via os/exec. cwd must be a workspace-relative
// path (WFG-CMD-001); shell=true without
// settings.command_operator.allow_shell is reported as a WFG-LINT-008 lint
// error — lint enforcement lives in the lint package, not here, so the
// operator itself never refuses to run.
type Command struct{}

func NewCommand() *Command { return &Command{} }

func (o *Command) Name() string { return "Command" }

func (o *Command) ValidateParams(params map[string]interface{}) error {
	cmd, ok := params["cmd"].(string)
	if !ok || cmd == "" {
		return state.NewError(state.CodeDocumentParse, state.CategoryValidation,
			"Command requires a non-empty \"cmd\" string param")
	}
	if cwd, ok := params["cwd"].(string); ok && cwd != "" {
		if filepath.IsAbs(cwd) {
			return state.NewError(state.CodeCommandCwdAbsolute, state.CategoryValidation,
				fmt.Sprintf("Command \"cwd\" must be relative to the workspace, got %q", cwd))
		}
	}
	return nil
}

func (o *Command) Execute(ctx context.Context, params map[string]interface{}, ec ExecContext) (interface{}, error) {
	if err := o.ValidateParams(params); err != nil {
		return nil, err
	}

	cmdStr := params["cmd"].(string)
	useShell, _ := params["shell"].(bool)
	captureStdout := true
	if v, ok := params["capture_stdout"].(bool); ok {
		captureStdout = v
	}
	captureStderr := true
	if v, ok := params["capture_stderr"].(bool); ok {
		captureStderr = v
	}

	var c *exec.Cmd
	if useShell {
		c = exec.CommandContext(ctx, "/bin/sh", "-c", cmdStr)
	} else {
		fields := strings.Fields(cmdStr)
		if len(fields) == 0 {
			return nil, state.NewError(state.CodeDocumentParse, state.CategoryValidation,
				"Command \"cmd\" has no tokens to execute")
		}
		c = exec.CommandContext(ctx, fields[0], fields[1:]...)
	}

	workDir := ec.WorkspacePath
	if cwd, ok := params["cwd"].(string); ok && cwd != "" {
		workDir = filepath.Join(ec.WorkspacePath, cwd)
	}
	c.Dir = workDir

	if env, ok := params["env"].(map[string]interface{}); ok {
		c.Env = append(c.Env, c.Environ()...)
		for k, v := range env {
			c.Env = append(c.Env, fmt.Sprintf("%s=%v", k, v))
		}
	}

	var stdoutBuf, stderrBuf truncatingBuffer
	if captureStdout {
		c.Stdout = &stdoutBuf
	}
	if captureStderr {
		c.Stderr = &stderrBuf
	}

	start := time.Now()
	runErr := c.Run()
	duration := time.Since(start)

	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, state.WrapError(state.CodeDocumentParse, state.CategoryToolExecution,
				fmt.Sprintf("Command failed to start %q", cmdStr), runErr)
		}
	}

	return map[string]interface{}{
		"exit_code":   exitCode,
		"stdout":      stdoutBuf.String(),
		"stderr":      stderrBuf.String(),
		"duration_ms": duration.Milliseconds(),
	}, nil
}

// truncatingBuffer caps captured output at maxCapturedOutputBytes, the
// same behavior the Agent operator's stream scanner uses.
type truncatingBuffer struct {
	buf       bytes.Buffer
	truncated bool
}

func (b *truncatingBuffer) Write(p []byte) (int, error) {
	remaining := maxCapturedOutputBytes - b.buf.Len()
	if remaining <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > remaining {
		b.buf.Write(p[:remaining])
		b.truncated = true
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *truncatingBuffer) String() string {
	return b.buf.String()
}
