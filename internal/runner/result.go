package runner

import (
	"fmt"
	"strings"
	"time"
)

// Result is the captured outcome of one process. A non-zero ExitCode is a
// normal completion; timeouts and launch failures are reported as errors.
type Result struct {
	Command  string        `json:"command"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exit_code"`
	TimedOut bool          `json:"timed_out"`
	Duration time.Duration `json:"duration"`
}

func (r Result) blank() bool {
	return strings.TrimSpace(r.Stdout) == "" && strings.TrimSpace(r.Stderr) == ""
}

// Format renders a shell or script result.
func (r Result) Format() string {
	var b strings.Builder
	if r.blank() {
		b.WriteString("No output produced.\n")
	} else {
		fmt.Fprintf(&b, "STDOUT:\n%s\nSTDERR:\n%s\n", r.Stdout, r.Stderr)
	}
	if r.ExitCode != 0 {
		fmt.Fprintf(&b, "Process exited with code %d\n", r.ExitCode)
	}
	return b.String()
}

// FormatTest renders a test run: the command, both streams and a verdict.
func (r Result) FormatTest() string {
	var b strings.Builder
	fmt.Fprintf(&b, "COMMAND:\n%s\n\nSTDOUT:\n%s\nSTDERR:\n%s\n", r.Command, r.Stdout, r.Stderr)
	if r.blank() {
		b.WriteString("No output produced by test command.\n")
	}
	if r.ExitCode == 0 {
		b.WriteString("\nResult: Tests completed successfully (exit code 0)\n")
	} else {
		fmt.Fprintf(&b, "\nResult: Tests failed (exit code %d)\n", r.ExitCode)
	}
	return b.String()
}

// Partial renders whatever was captured before a timeout, or "" if nothing was.
func (r Result) Partial() string {
	if r.blank() {
		return ""
	}
	return fmt.Sprintf("Partial output before termination:\nSTDOUT:\n%s\nSTDERR:\n%s\n", r.Stdout, r.Stderr)
}
