package tooling

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bugx/internal/llm"
	"bugx/internal/runner"
	"bugx/internal/sandbox"
)

type runShellArgs struct {
	Command string `json:"command" jsonschema_description:"Shell command to run in the working directory."`
}

// RunShellTool runs one shell command with the shell time limit.
type RunShellTool struct {
	runner *runner.Runner
}

func NewRunShellTool(r *runner.Runner) *RunShellTool {
	return &RunShellTool{runner: r}
}

func (t *RunShellTool) Definition() llm.ToolDefinition {
	return definition("run_shell",
		fmt.Sprintf("Run a shell command in the working directory and return its output. Commands are killed after %d seconds; destructive commands are refused.",
			int(t.runner.Limits().Shell.Seconds())),
		&runShellArgs{})
}

func (t *RunShellTool) Call(ctx context.Context, args map[string]any) (string, error) {
	var in runShellArgs
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	res, err := t.runner.Shell(ctx, in.Command)
	if err != nil {
		return "", withPartial(err, res)
	}
	return res.Format(), nil
}

type runPythonArgs struct {
	Path string `json:"path" jsonschema_description:"Path of a .py file relative to the working directory."`
}

// RunPythonTool executes a Python script with the script time limit.
type RunPythonTool struct {
	runner *runner.Runner
}

func NewRunPythonTool(r *runner.Runner) *RunPythonTool {
	return &RunPythonTool{runner: r}
}

func (t *RunPythonTool) Definition() llm.ToolDefinition {
	return definition("run_python",
		fmt.Sprintf("Execute a Python script inside the working directory and return its output. Scripts are killed after %d seconds.",
			int(t.runner.Limits().Script.Seconds())),
		&runPythonArgs{})
}

func (t *RunPythonTool) Call(ctx context.Context, args map[string]any) (string, error) {
	var in runPythonArgs
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	res, err := t.runner.Script(ctx, in.Path)
	if err != nil {
		return "", withPartial(err, res)
	}
	return res.Format(), nil
}

type runTestsArgs struct {
	Command string `json:"command,omitempty" jsonschema_description:"Test command to run. When omitted it is detected from project files such as pyproject.toml, package.json or go.mod."`
}

// RunTestsTool runs the project's test suite.
type RunTestsTool struct {
	runner *runner.Runner
}

func NewRunTestsTool(r *runner.Runner) *RunTestsTool {
	return &RunTestsTool{runner: r}
}

func (t *RunTestsTool) Definition() llm.ToolDefinition {
	return definition("run_tests",
		"Run the project's tests and report the command, its output and whether the tests passed.",
		&runTestsArgs{})
}

func (t *RunTestsTool) Call(ctx context.Context, args map[string]any) (string, error) {
	var in runTestsArgs
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	res, err := t.runner.Tests(ctx, in.Command)
	if err != nil {
		return "", withPartial(err, res)
	}
	return res.FormatTest(), nil
}

type partialError struct {
	err     error
	partial string
}

func (e *partialError) Error() string {
	return e.err.Error() + "\n" + strings.TrimRight(e.partial, "\n")
}

func (e *partialError) Unwrap() error { return e.err }

// withPartial attaches captured output to a timeout.
func withPartial(err error, res runner.Result) error {
	if !errors.Is(err, sandbox.KindTimeout) {
		return err
	}
	partial := res.Partial()
	if partial == "" {
		return err
	}
	return &partialError{err: err, partial: partial}
}
