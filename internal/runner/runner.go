// Package runner executes shell commands, Python scripts and test commands
// inside a sandboxed working root with hard wall-clock limits.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"

	"bugx/internal/logging"
	"bugx/internal/sandbox"
)

// Limits bounds each kind of execution.
type Limits struct {
	Shell  time.Duration
	Script time.Duration
	Tests  time.Duration
}

// DefaultLimits returns the stock bounds: two minutes for shell commands,
// thirty seconds for scripts and three minutes for test runs.
func DefaultLimits() Limits {
	return Limits{
		Shell:  120 * time.Second,
		Script: 30 * time.Second,
		Tests:  180 * time.Second,
	}
}

func (l Limits) withDefaults() Limits {
	def := DefaultLimits()
	if l.Shell <= 0 {
		l.Shell = def.Shell
	}
	if l.Script <= 0 {
		l.Script = def.Script
	}
	if l.Tests <= 0 {
		l.Tests = def.Tests
	}
	return l
}

// DefaultInterpreter runs Python scripts.
const DefaultInterpreter = "python3"

// ScriptExt is the only extension Script accepts.
const ScriptExt = ".py"

type Options struct {
	Limits Limits
	// Interpreter is parsed with shell-word rules, so "uv run python" works.
	Interpreter string
	// Env is appended to the inherited environment of every child.
	Env []string
}

// Runner launches one external process per call and blocks until it exits
// or its limit expires.
type Runner struct {
	guard       sandbox.Guard
	limits      Limits
	interpreter []string
	env         []string
}

func New(guard sandbox.Guard, opts Options) (*Runner, error) {
	raw := strings.TrimSpace(opts.Interpreter)
	if raw == "" {
		raw = DefaultInterpreter
	}
	argv, err := shellwords.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse interpreter %q: %w", raw, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("interpreter %q is empty", raw)
	}
	return &Runner{
		guard:       guard,
		limits:      opts.Limits.withDefaults(),
		interpreter: argv,
		env:         append([]string(nil), opts.Env...),
	}, nil
}

// Limits returns the effective bounds.
func (r *Runner) Limits() Limits {
	return r.limits
}

// Shell runs command through the system shell in the working root. Commands
// matching the deny-list are rejected before any process is started.
func (r *Runner) Shell(ctx context.Context, command string) (Result, error) {
	if strings.TrimSpace(command) == "" {
		return Result{}, sandbox.Errorf(sandbox.KindInvalidArgument, command, "command is required")
	}
	if err := CheckCommand(command); err != nil {
		logging.ErrorLog("runner: blocked shell command %q", command)
		return Result{}, err
	}
	return r.run(ctx, command, r.limits.Shell, func(ctx context.Context) *exec.Cmd {
		return shellCommand(ctx, command)
	})
}

// Script runs a single Python file with the configured interpreter. The file
// must sit inside the root, exist as a regular file and end in ".py".
func (r *Runner) Script(ctx context.Context, path string) (Result, error) {
	abs, err := r.guard.Resolve(path)
	if err != nil {
		return Result{}, err
	}
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return Result{}, sandbox.Errorf(sandbox.KindNotAFile, path, "%q is not a file", path)
	}
	if !strings.HasSuffix(path, ScriptExt) {
		return Result{}, sandbox.Errorf(sandbox.KindInvalidArgument, path, "%q is not a Python file", path)
	}
	argv := append(append([]string(nil), r.interpreter...), abs)
	label := strings.Join(append(append([]string(nil), r.interpreter...), path), " ")
	return r.run(ctx, label, r.limits.Script, func(ctx context.Context) *exec.Cmd {
		return exec.CommandContext(ctx, argv[0], argv[1:]...)
	})
}

// Tests runs command, or the command detected from project markers in the
// root when command is blank.
func (r *Runner) Tests(ctx context.Context, command string) (Result, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		detected, err := DetectTestCommand(r.guard.Root())
		if err != nil {
			return Result{}, err
		}
		logging.DevLog("runner: detected test command %q", detected)
		command = detected
	}
	if err := CheckCommand(command); err != nil {
		logging.ErrorLog("runner: blocked test command %q", command)
		return Result{}, err
	}
	return r.run(ctx, command, r.limits.Tests, func(ctx context.Context) *exec.Cmd {
		return shellCommand(ctx, command)
	})
}

func (r *Runner) run(ctx context.Context, label string, limit time.Duration, build func(context.Context) *exec.Cmd) (Result, error) {
	runCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	cmd := build(runCtx)
	cmd.Dir = r.guard.Root()
	cmd.Env = append(os.Environ(), r.env...)
	cmd.Stdin = nil
	configureProcess(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logging.DevLog("runner: executing %q (limit %s)", label, limit)
	start := time.Now()
	runErr := cmd.Run()
	res := Result{
		Command:  label,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: -1,
		Duration: time.Since(start),
	}
	if ps := cmd.ProcessState; ps != nil {
		res.ExitCode = ps.ExitCode()
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		logging.ErrorLog("runner: %q timed out after %s", label, limit)
		return res, sandbox.Errorf(sandbox.KindTimeout, label, "command timed out after %d seconds: %q", int(limit.Seconds()), label)
	}
	if err := ctx.Err(); err != nil {
		return res, sandbox.Wrap(sandbox.KindExecution, label, err, "execution of %q was interrupted", label)
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			logging.ErrorLog("runner: %q failed to run: %v", label, runErr)
			return res, sandbox.Wrap(sandbox.KindExecution, label, runErr, "failed to execute %q", label)
		}
	}
	logging.DevLog("runner: %q finished in %dms with exit code %d", label, res.Duration.Milliseconds(), res.ExitCode)
	return res, nil
}
