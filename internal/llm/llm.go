package llm

import (
	"context"
	"errors"
	"strings"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	Name       string     `json:"name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall represents a function call request emitted by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall is embedded inside ToolCall for OpenAI-compatible schemas.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDefinition advertises a callable tool to the model.
type ToolDefinition struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

type ToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ChatRequest is the provider-agnostic message payload for chat completions.
type ChatRequest struct {
	Model       string           `json:"model"`
	Messages    []Message        `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	Temperature float64          `json:"temperature,omitempty"`
}

// ChatChoice captures one response alternative from a completion API.
type ChatChoice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage contains token consumption metrics from the LLM API.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the shared representation of provider responses.
type ChatResponse struct {
	Choices []ChatChoice `json:"choices"`
	Usage   *Usage       `json:"usage,omitempty"`
}

// Client represents an LLM provider capable of servicing chat completions.
type Client interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// ErrEmptyResponse is returned when a provider answers with no choices.
var ErrEmptyResponse = errors.New("llm: provider returned no choices")

// Completion is a single system + user exchange without tools.
type Completion struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
}

// Complete runs a plain text completion and returns the first choice's text.
func Complete(ctx context.Context, client Client, c Completion) (string, error) {
	msgs := make([]Message, 0, 2)
	if strings.TrimSpace(c.System) != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: c.System})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: c.Prompt})
	resp, err := client.Chat(ctx, ChatRequest{
		Model:       c.Model,
		Messages:    msgs,
		Temperature: c.Temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
