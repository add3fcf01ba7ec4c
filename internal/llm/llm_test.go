package llm

import (
	"context"
	"errors"
	"testing"
)

type captureClient struct {
	req  ChatRequest
	resp ChatResponse
	err  error
}

func (c *captureClient) Chat(_ context.Context, req ChatRequest) (ChatResponse, error) {
	c.req = req
	return c.resp, c.err
}

func TestCompleteBuildsMessages(t *testing.T) {
	client := &captureClient{resp: ChatResponse{Choices: []ChatChoice{{Message: Message{Role: RoleAssistant, Content: "Plan: ..."}}}}}
	got, err := Complete(context.Background(), client, Completion{Model: "m", System: "be brief", Prompt: "fix it", Temperature: 0.1})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "Plan: ..." {
		t.Fatalf("unexpected text %q", got)
	}
	if len(client.req.Messages) != 2 || client.req.Messages[0].Role != RoleSystem || client.req.Messages[1].Content != "fix it" {
		t.Fatalf("unexpected request %+v", client.req)
	}
	if client.req.Tools != nil {
		t.Fatalf("plain completions must not send tools")
	}
}

func TestCompleteWithoutSystemAndEmptyResponse(t *testing.T) {
	client := &captureClient{}
	if _, err := Complete(context.Background(), client, Completion{Prompt: "hi"}); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
	if len(client.req.Messages) != 1 || client.req.Messages[0].Role != RoleUser {
		t.Fatalf("system message should be omitted, got %+v", client.req.Messages)
	}
}
