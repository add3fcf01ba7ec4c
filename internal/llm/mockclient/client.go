package mockclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"bugx/internal/llm"
)

// Client is a deterministic llm.Client used for tests and CI.
type Client struct {
	prefix string
}

// New returns a mock client that echoes the last user message.
func New() *Client {
	return &Client{prefix: "MOCK"}
}

// Chat satisfies the llm.Client interface.
func (c *Client) Chat(_ context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	response := llm.Message{Role: llm.RoleAssistant}

	last := ""
	if n := len(req.Messages); n > 0 {
		last = strings.TrimSpace(req.Messages[n-1].Content)
	}
	if last == "" {
		response.Content = fmt.Sprintf("%s RESPONSE", c.prefix)
	} else {
		response.Content = fmt.Sprintf("%s RESPONSE: %s", c.prefix, last)
	}
	return reply(response), nil
}

// ErrExhausted is returned once a Scripted client has no replies left.
var ErrExhausted = errors.New("mockclient: script exhausted")

// Step is one scripted reply: either a message or an error.
type Step struct {
	Message llm.Message
	Err     error
}

// Scripted replays a fixed sequence of replies and records every request.
type Scripted struct {
	mu       sync.Mutex
	steps    []Step
	requests []llm.ChatRequest
}

func NewScripted(steps ...Step) *Scripted {
	return &Scripted{steps: steps}
}

// Text is a plain assistant reply.
func Text(content string) Step {
	return Step{Message: llm.Message{Role: llm.RoleAssistant, Content: content}}
}

// Call is an assistant reply requesting a single tool call.
func Call(id, name, arguments string) Step {
	return Step{Message: llm.Message{
		Role: llm.RoleAssistant,
		ToolCalls: []llm.ToolCall{{
			ID:       id,
			Type:     "function",
			Function: llm.FunctionCall{Name: name, Arguments: arguments},
		}},
	}}
}

// Fail is a reply that fails with err.
func Fail(err error) Step {
	return Step{Err: err}
}

func (s *Scripted) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return llm.ChatResponse{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if len(s.steps) == 0 {
		return llm.ChatResponse{}, ErrExhausted
	}
	next := s.steps[0]
	s.steps = s.steps[1:]
	if next.Err != nil {
		return llm.ChatResponse{}, next.Err
	}
	return reply(next.Message), nil
}

// Requests returns a copy of every request received so far.
func (s *Scripted) Requests() []llm.ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]llm.ChatRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

func reply(msg llm.Message) llm.ChatResponse {
	finish := "stop"
	if len(msg.ToolCalls) > 0 {
		finish = "tool_calls"
	}
	return llm.ChatResponse{
		Choices: []llm.ChatChoice{{Index: 0, Message: msg, FinishReason: finish}},
		Usage: &llm.Usage{
			PromptTokens:     42,
			CompletionTokens: 7,
			TotalTokens:      49,
		},
	}
}
