package operator

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"newton/internal/workflowgraph/state"
)

// maxSignalLineBytes caps a single scanned line, matching the spec's 1 MiB
// per-stream cap.
const maxSignalLineBytes = 1 << 20

// Agent launches a coding-agent subprocess via an engine driver, streaming
// stdout line-by-line (or the "content" field of each newline-delimited
// JSON record) through an ordered, first-match-wins scan of named signal
// regexes. On first match the subprocess is killed and the signal's
// captured groups are returned. loop:true reruns the driver until a
// signal matches, the exit code is non-zero, or max_iterations is
// exhausted.
type Agent struct {
	drivers      map[string]EngineDriver
	artifactRoot string
}

func NewAgent() *Agent {
	a := &Agent{drivers: map[string]EngineDriver{}, artifactRoot: ""}
	for _, d := range []EngineDriver{&OpenCodeDriver{}, &ClaudeCodeDriver{}, &PassthroughDriver{}} {
		a.drivers[d.Name()] = d
	}
	return a
}

// WithArtifactRoot returns a copy of a configured to write stdout/stderr
// artifacts under root instead of the workspace root.
func (a *Agent) WithArtifactRoot(root string) *Agent {
	return &Agent{drivers: a.drivers, artifactRoot: root}
}

func (a *Agent) Name() string { return "Agent" }

type compiledSignal struct {
	name string
	re   *regexp.Regexp
}

func (a *Agent) ValidateParams(params map[string]interface{}) error {
	engineName, _ := params["engine"].(string)
	if engineName == "" {
		return state.NewError(state.CodeDocumentParse, state.CategoryValidation,
			"Agent requires an \"engine\" param")
	}
	if _, ok := a.drivers[engineName]; !ok {
		return state.NewError(state.CodeDocumentParse, state.CategoryValidation,
			fmt.Sprintf("Agent engine %q is not one of opencode, claude-code, command", engineName))
	}
	if _, err := a.compileSignals(params); err != nil {
		return err
	}
	return nil
}

func (a *Agent) compileSignals(params map[string]interface{}) ([]compiledSignal, error) {
	raw, _ := params["signals"].(map[string]interface{})
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]compiledSignal, 0, len(names))
	for _, name := range names {
		pattern, _ := raw[name].(string)
		for _, r := range pattern {
			if r == '\n' {
				return nil, state.NewError(state.CodeAgentInvalidSignal, state.CategoryValidation,
					fmt.Sprintf("Agent signal %q pattern must not contain a newline", name))
			}
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, state.WrapError(state.CodeAgentInvalidSignal, state.CategoryValidation,
				fmt.Sprintf("Agent signal %q has an invalid regex", name), err)
		}
		out = append(out, compiledSignal{name: name, re: re})
	}
	return out, nil
}

func (a *Agent) Execute(ctx context.Context, params map[string]interface{}, ec ExecContext) (interface{}, error) {
	if err := a.ValidateParams(params); err != nil {
		return nil, err
	}

	signals, _ := a.compileSignals(params)
	driver := a.drivers[params["engine"].(string)]

	loop, _ := params["loop"].(bool)
	maxIterations := 1
	if loop {
		maxIterations = 20
		if v, ok := params["max_iterations"].(float64); ok && v > 0 {
			maxIterations = int(v)
		}
	}

	var lastResult map[string]interface{}
	for iteration := 1; iteration <= maxIterations; iteration++ {
		result, matched, err := a.runOnce(ctx, driver, params, ec, signals, iteration)
		if err != nil {
			return nil, err
		}
		if loop {
			result["iteration"] = iteration
		}
		lastResult = result
		if matched || result["exit_code"].(int) != 0 {
			return result, nil
		}
		if !loop {
			return result, nil
		}
	}
	return lastResult, nil
}

func (a *Agent) runOnce(ctx context.Context, driver EngineDriver, params map[string]interface{}, ec ExecContext, signals []compiledSignal, iteration int) (map[string]interface{}, bool, error) {
	root := a.artifactRoot
	if root == "" {
		root = ec.WorkspacePath
	}

	c, err := driver.BuildCommand(ctx, ec.WorkspacePath, params)
	if err != nil {
		return nil, false, err
	}

	stdoutPipe, err := c.StdoutPipe()
	if err != nil {
		return nil, false, state.WrapError(state.CodeAgentInvalidSignal, state.CategoryToolExecution,
			"failed to attach stdout pipe", err)
	}
	stderrPipe, err := c.StderrPipe()
	if err != nil {
		return nil, false, state.WrapError(state.CodeAgentInvalidSignal, state.CategoryToolExecution,
			"failed to attach stderr pipe", err)
	}

	if err := c.Start(); err != nil {
		return nil, false, state.WrapError(state.CodeAgentInvalidSignal, state.CategoryToolExecution,
			fmt.Sprintf("failed to start engine %q", driver.Name()), err)
	}

	var stdoutBuf, stderrBuf truncatingBuffer
	var matchedSignal string
	var matchedGroups map[string]string

	scanner := bufio.NewScanner(stdoutPipe)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSignalLineBytes)
	for scanner.Scan() {
		line := scanner.Text()
		stdoutBuf.Write([]byte(line + "\n"))

		content := extractContent(line)
		if matchedSignal == "" {
			for _, sig := range signals {
				if loc := sig.re.FindStringSubmatchIndex(content); loc != nil {
					matchedSignal = sig.name
					matchedGroups = namedGroups(sig.re, content, loc)
					_ = c.Process.Kill()
					break
				}
			}
		}
	}

	stderrDone := make(chan struct{})
	go func() {
		io.Copy(&stderrBuf, stderrPipe)
		close(stderrDone)
	}()
	<-stderrDone

	waitErr := c.Wait()
	exitCode := 0
	if waitErr != nil {
		if exitErr, ok := waitErr.(interface{ ExitCode() int }); ok {
			exitCode = exitErr.ExitCode()
		} else if matchedSignal == "" {
			exitCode = -1
		}
	}

	stdoutArtifact, err := writeStreamArtifact(root, ec.ExecutionID, ec.TaskID, iteration, "stdout", stdoutBuf.String())
	if err != nil {
		return nil, false, err
	}
	var stderrArtifact interface{}
	if stderrBuf.String() != "" {
		path, err := writeStreamArtifact(root, ec.ExecutionID, ec.TaskID, iteration, "stderr", stderrBuf.String())
		if err != nil {
			return nil, false, err
		}
		stderrArtifact = path
	}

	return map[string]interface{}{
		"signal":          matchedSignal,
		"signal_data":     matchedGroups,
		"exit_code":       exitCode,
		"stdout_artifact": stdoutArtifact,
		"stderr_artifact": stderrArtifact,
	}, matchedSignal != "", nil
}

// extractContent pulls the "content" field out of a newline-delimited JSON
// record, falling back to the raw line when it does not parse as such an
// object.
func extractContent(line string) string {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(line), &obj); err == nil {
		if content, ok := obj["content"].(string); ok {
			return content
		}
	}
	return line
}

func namedGroups(re *regexp.Regexp, text string, loc []int) map[string]string {
	groups := map[string]string{}
	names := re.SubexpNames()
	for i, name := range names {
		if i == 0 || name == "" {
			continue
		}
		start, end := loc[2*i], loc[2*i+1]
		if start < 0 || end < 0 {
			continue
		}
		groups[name] = text[start:end]
	}
	return groups
}

func writeStreamArtifact(root, executionID, taskID string, iteration int, stream, content string) (string, error) {
	dir := filepath.Join(root, ".newton", "artifacts", executionID, taskID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", state.WrapError(state.CodeArtPathEscape, state.CategoryIO,
			"failed to create agent artifact directory", err)
	}

	sum := sha256.Sum256([]byte(content))
	name := fmt.Sprintf("%s-%d-%s.log", stream, iteration, hex.EncodeToString(sum[:8]))
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", state.WrapError(state.CodeArtPathEscape, state.CategoryIO,
			"failed to write agent stream artifact", err)
	}
	return path, nil
}
