//go:build !windows

package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"bugx/internal/llm"
	"bugx/internal/llm/mockclient"
	"bugx/internal/tooling"
)

func TestInterruptCancelsRunningToolButKeepsSession(t *testing.T) {
	root := t.TempDir()
	reg, err := tooling.New(tooling.Options{Root: root})
	if err != nil {
		t.Fatalf("tooling.New: %v", err)
	}
	client := mockclient.NewScripted(
		mockclient.Call("call_1", "run_shell", `{"command":"touch started; sleep 2; touch survived"}`),
	)
	ag := newTestAgent(client, reg, 5)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := ag.watchInterrupts(ctx, cancel, newInterruptTracker(2*time.Second))
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		_, err := ag.Respond(ctx, "run it")
		errCh <- err
	}()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(filepath.Join(root, "started")); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("shell command never started")
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err := syscall.Kill(os.Getpid(), syscall.SIGINT); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Respond error = %v, want context.Canceled", err)
		}
	case <-time.After(1500 * time.Millisecond):
		t.Fatal("turn was not cancelled by Ctrl+C")
	}
	if ctx.Err() != nil {
		t.Fatal("a single Ctrl+C should not end the session")
	}

	msgs := ag.Messages()
	last := msgs[len(msgs)-1]
	if last.Role != llm.RoleTool || last.ToolCallID != "call_1" || !strings.Contains(last.Content, "interrupted") {
		t.Fatalf("last message = %+v", last)
	}

	time.Sleep(1500 * time.Millisecond)
	if _, err := os.Stat(filepath.Join(root, "survived")); err == nil {
		t.Fatal("shell command outlived the interrupt")
	}
}

func TestCancelRequestAnswersPendingCalls(t *testing.T) {
	ag := newTestAgent(mockclient.NewScripted(), &stubTools{}, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := []llm.ToolCall{
		{ID: "a", Function: llm.FunctionCall{Name: "echo"}},
		{ID: "b", Function: llm.FunctionCall{Name: "echo"}},
	}
	if err := ag.processToolCalls(ctx, calls); !errors.Is(err, context.Canceled) {
		t.Fatalf("processToolCalls = %v", err)
	}
	msgs := ag.Messages()
	if len(msgs) < 2 || msgs[len(msgs)-2].ToolCallID != "a" || msgs[len(msgs)-1].ToolCallID != "b" {
		t.Fatalf("pending calls not answered: %+v", msgs)
	}
}
