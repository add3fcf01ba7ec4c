// Package openrouter talks to OpenAI-compatible chat completion APIs
// (OpenRouter, OpenAI and self-hosted gateways).
package openrouter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"bugx/internal/llm"
	"bugx/internal/logging"
)

// DefaultBaseURL is OpenRouter's API root.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Client adapts go-openai to llm.Client.
type Client struct {
	api      *openai.Client
	provider string
	logger   *log.Logger
}

// headerDoer adds the attribution headers OpenRouter uses for app rankings.
type headerDoer struct {
	client *http.Client
}

func (h headerDoer) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("HTTP-Referer", "https://github.com/bugx/bugx")
	req.Header.Set("X-Title", "BugX")
	return h.client.Do(req)
}

// NewClient wires together the dependencies for API access. provider names
// the backend in errors and logs.
func NewClient(provider, baseURL, apiKey string, timeout time.Duration, logger *log.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = logging.Logger
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	cfg.HTTPClient = headerDoer{client: &http.Client{Timeout: timeout}}
	return &Client{api: openai.NewClientWithConfig(cfg), provider: provider, logger: logger}
}

// Chat executes a single completion request.
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	payload := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    toOpenAIMessages(req.Messages),
		Tools:       toOpenAITools(req.Tools),
		Temperature: requestTemperature(req.Temperature),
	}

	c.logger.Printf("sending %d messages to model %s", len(req.Messages), req.Model)
	logging.DevLog("%s: sending request to %s with %d messages and %d tools", c.provider, req.Model, len(req.Messages), len(req.Tools))

	resp, err := c.api.CreateChatCompletion(ctx, payload)
	if err != nil {
		logging.ErrorLog("%s API error: %v", c.provider, err)
		return llm.ChatResponse{}, c.classify(err)
	}
	logging.DevLog("%s: received response with %d choices", c.provider, len(resp.Choices))
	return fromOpenAIResponse(resp), nil
}

// requestTemperature keeps an explicit 0 on the wire; go-openai omits a zero
// temperature and providers then fall back to their own default.
func requestTemperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

func (c *Client) classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		pe := llm.ClassifyStatus(c.provider, apiErr.HTTPStatusCode, apiErr.Message)
		pe.Err = err
		return pe
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		pe := llm.ClassifyStatus(c.provider, reqErr.HTTPStatusCode, "")
		pe.Err = err
		return pe
	}
	return fmt.Errorf("%s: request failed: %w", c.provider, err)
}

func toOpenAIMessages(msgs []llm.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		msg := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
		for _, call := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   call.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      call.Function.Name,
					Arguments: call.Function.Arguments,
				},
			})
		}
		out = append(out, msg)
	}
	return out
}

func toOpenAITools(defs []llm.ToolDefinition) []openai.Tool {
	if len(defs) == 0 {
		return nil
	}
	out := make([]openai.Tool, 0, len(defs))
	for _, def := range defs {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Function.Name,
				Description: def.Function.Description,
				Parameters:  def.Function.Parameters,
			},
		})
	}
	return out
}

func fromOpenAIResponse(resp openai.ChatCompletionResponse) llm.ChatResponse {
	out := llm.ChatResponse{
		Choices: make([]llm.ChatChoice, 0, len(resp.Choices)),
		Usage: &llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	for _, choice := range resp.Choices {
		msg := llm.Message{
			Role:    choice.Message.Role,
			Content: choice.Message.Content,
		}
		for _, call := range choice.Message.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, llm.ToolCall{
				ID:   call.ID,
				Type: string(call.Type),
				Function: llm.FunctionCall{
					Name:      call.Function.Name,
					Arguments: call.Function.Arguments,
				},
			})
		}
		out.Choices = append(out.Choices, llm.ChatChoice{
			Index:        choice.Index,
			Message:      msg,
			FinishReason: string(choice.FinishReason),
		})
	}
	return out
}
