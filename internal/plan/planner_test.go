package plan

import (
	"context"
	"errors"
	"strings"
	"testing"

	"bugx/internal/llm"
	"bugx/internal/llm/mockclient"
)

func TestPlannerGenerate(t *testing.T) {
	client := mockclient.NewScripted(mockclient.Text("Plan:\nStep 1: read main.py\nStep 2: fix import\nSummary: small fix"))
	res, err := NewPlanner(client, "test-model", 0.1).Generate(context.Background(), "module not found: pandas")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Document.Steps.Len() != 2 || res.Document.Summary != "small fix" {
		t.Fatalf("unexpected plan %s", res.Document)
	}

	reqs := client.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	msgs := reqs[0].Messages
	if reqs[0].Model != "test-model" || msgs[0].Role != llm.RoleSystem || !strings.Contains(msgs[0].Content, "Plan:") {
		t.Fatalf("planner prompt not sent: %+v", reqs[0])
	}
	if msgs[1].Content != "Request: module not found: pandas" {
		t.Fatalf("unexpected user message %q", msgs[1].Content)
	}
}

func TestPlannerErrors(t *testing.T) {
	boom := errors.New("boom")
	if _, err := NewPlanner(mockclient.NewScripted(mockclient.Fail(boom)), "m", 0).Generate(context.Background(), "x"); !errors.Is(err, boom) {
		t.Fatalf("expected provider error, got %v", err)
	}

	res, err := NewPlanner(mockclient.NewScripted(mockclient.Text("I cannot help")), "m", 0).Generate(context.Background(), "x")
	if err == nil || res.Raw != "I cannot help" {
		t.Fatalf("expected no-plan error with raw text, got %v %+v", err, res)
	}

	if _, err := NewPlanner(mockclient.New(), "m", 0).Generate(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for empty request")
	}
}
