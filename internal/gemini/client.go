// Package gemini adapts Google's Gemini API to llm.Client.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"bugx/internal/llm"
	"bugx/internal/logging"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

const providerName = "gemini"

// Client wraps a genai.Client. Each Chat call builds a fresh model so
// requests never share tool or system settings.
type Client struct {
	api    *genai.Client
	logger *log.Logger
}

// NewClient connects with an API key. Extra options are passed to genai,
// which tests use to point at a local endpoint.
func NewClient(ctx context.Context, apiKey string, logger *log.Logger, opts ...option.ClientOption) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing GEMINI_API_KEY or GOOGLE_API_KEY")
	}
	if logger == nil {
		logger = logging.Logger
	}
	api, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	return &Client{api: api, logger: logger}, nil
}

// Close releases the underlying connections.
func (c *Client) Close() error {
	return c.api.Close()
}

// Chat sends the conversation as chat history plus a final turn.
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	name := req.Model
	if name == "" {
		name = DefaultModel
	}
	model := c.api.GenerativeModel(name)
	model.SetTemperature(float32(req.Temperature))
	if len(req.Tools) > 0 {
		model.Tools = []*genai.Tool{{FunctionDeclarations: toDeclarations(req.Tools)}}
	}

	system, contents := toContents(req.Messages)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if len(contents) == 0 {
		return llm.ChatResponse{}, errors.New("gemini: no messages to send")
	}

	session := model.StartChat()
	last := contents[len(contents)-1]
	session.History = contents[:len(contents)-1]

	c.logger.Printf("sending %d messages to model %s", len(req.Messages), name)
	logging.DevLog("gemini: sending request to %s with %d contents and %d tools", name, len(contents), len(req.Tools))

	resp, err := session.SendMessage(ctx, last.Parts...)
	if err != nil {
		logging.ErrorLog("gemini API error: %v", err)
		return llm.ChatResponse{}, classify(err)
	}
	return fromResponse(resp), nil
}

// toContents folds the system message out and maps the rest onto Gemini
// roles, merging consecutive turns of the same role.
func toContents(msgs []llm.Message) (string, []*genai.Content) {
	var system []string
	var out []*genai.Content
	push := func(role string, parts ...genai.Part) {
		if len(parts) == 0 {
			return
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Parts = append(out[n-1].Parts, parts...)
			return
		}
		out = append(out, &genai.Content{Role: role, Parts: parts})
	}

	for _, m := range msgs {
		switch m.Role {
		case llm.RoleSystem:
			if s := strings.TrimSpace(m.Content); s != "" {
				system = append(system, s)
			}
		case llm.RoleAssistant:
			var parts []genai.Part
			if m.Content != "" {
				parts = append(parts, genai.Text(m.Content))
			}
			for _, call := range m.ToolCalls {
				parts = append(parts, genai.FunctionCall{Name: call.Function.Name, Args: decodeArgs(call.Function.Arguments)})
			}
			push("model", parts...)
		case llm.RoleTool:
			push("user", genai.FunctionResponse{
				Name:     m.Name,
				Response: map[string]any{"result": m.Content},
			})
		default:
			if m.Content != "" {
				push("user", genai.Text(m.Content))
			}
		}
	}
	return strings.Join(system, "\n\n"), out
}

func decodeArgs(raw string) map[string]any {
	args := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		logging.DevLog("gemini: dropping undecodable tool arguments: %v", err)
		return map[string]any{}
	}
	return args
}

func fromResponse(resp *genai.GenerateContentResponse) llm.ChatResponse {
	out := llm.ChatResponse{}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = &llm.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	calls := 0
	for i, cand := range resp.Candidates {
		msg := llm.Message{Role: llm.RoleAssistant}
		var text []string
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				switch p := part.(type) {
				case genai.Text:
					text = append(text, string(p))
				case genai.FunctionCall:
					args, _ := json.Marshal(p.Args)
					msg.ToolCalls = append(msg.ToolCalls, llm.ToolCall{
						ID:       fmt.Sprintf("call_%d", calls),
						Type:     "function",
						Function: llm.FunctionCall{Name: p.Name, Arguments: string(args)},
					})
					calls++
				}
			}
		}
		msg.Content = strings.Join(text, "")
		finish := "stop"
		if len(msg.ToolCalls) > 0 {
			finish = "tool_calls"
		}
		out.Choices = append(out.Choices, llm.ChatChoice{Index: i, Message: msg, FinishReason: finish})
	}
	return out
}

func classify(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		pe := llm.ClassifyStatus(providerName, gerr.Code, gerr.Message)
		pe.Err = err
		return pe
	}
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		pe := llm.NewProviderError(providerName, llm.ErrorTypeModeration, "blocked", blocked.Error())
		pe.Err = err
		return pe
	}
	return fmt.Errorf("gemini generate: %w", err)
}
