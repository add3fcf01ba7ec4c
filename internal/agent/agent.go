// Package agent runs the conversation loop: it sends the conversation and
// tool definitions to the model, dispatches requested tool calls through the
// registry and feeds the observations back until the model answers.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/glamour"

	"bugx/internal/llm"
	"bugx/internal/logging"
	"bugx/internal/prompts"
	"bugx/internal/tooling"
)

// MaxObservationChars caps a single tool observation before it enters the
// conversation.
const MaxObservationChars = 50000

// DefaultMaxSteps bounds tool rounds per user turn.
const DefaultMaxSteps = 30

// ErrStepLimit is returned when the model keeps calling tools past MaxSteps.
var ErrStepLimit = errors.New("agent: tool step limit reached")

// Dispatcher executes one tool call and always returns observation text.
type Dispatcher interface {
	Definitions() []llm.ToolDefinition
	Names() []string
	Dispatch(ctx context.Context, name, rawArgs string) string
}

var _ Dispatcher = (*tooling.Registry)(nil)

type Options struct {
	Model        string
	Temperature  float64
	MaxSteps     int
	SystemPrompt string
	Workspace    string
	HistoryPath  string

	// RetryDelay is the first backoff delay for retryable provider errors.
	RetryDelay time.Duration
	MaxRetries int

	// Markdown renders final answers with glamour when output is a terminal.
	Markdown bool
	In       io.Reader
	Out      io.Writer
	Logger   *log.Logger
}

// Reply is the outcome of one user turn.
type Reply struct {
	Content      string
	FinishReason string
	Steps        int
	Usage        llm.Usage
}

type Agent struct {
	client llm.Client
	tools  Dispatcher
	opts   Options
	log    *logging.StructuredLogger
	render *glamour.TermRenderer
	isTTY  bool

	mu       sync.Mutex
	messages []llm.Message
	total    int

	inflightMu sync.Mutex
	inflight   context.CancelFunc
}

func New(client llm.Client, tools Dispatcher, opts Options) *Agent {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	a := &Agent{
		client: client,
		tools:  tools,
		opts:   opts,
		log:    logging.NewStructuredLogger(opts.Logger, "agent", false).WithRoot(opts.Workspace),
		isTTY:  isTerminal(opts.In) && isTerminal(opts.Out),
	}
	if opts.Markdown && a.isTTY {
		if r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100)); err == nil {
			a.render = r
		}
	}
	a.Reset()
	return a
}

// Reset drops the conversation and starts over from the system prompt.
func (a *Agent) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = []llm.Message{{Role: llm.RoleSystem, Content: prompts.Combine(a.opts.SystemPrompt)}}
}

// Messages returns a copy of the conversation so far.
func (a *Agent) Messages() []llm.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]llm.Message, len(a.messages))
	copy(out, a.messages)
	return out
}

func (a *Agent) append(msgs ...llm.Message) {
	a.mu.Lock()
	a.messages = append(a.messages, msgs...)
	a.mu.Unlock()
}

// TotalTokens reports the tokens consumed since the agent was created.
func (a *Agent) TotalTokens() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}

// Respond adds input to the conversation and runs tool rounds until the model
// replies without tool calls. CancelRequest aborts the whole turn, including
// a tool that is still running.
func (a *Agent) Respond(ctx context.Context, input string) (Reply, error) {
	ctx, cancel := context.WithCancel(ctx)
	a.setInFlightCancel(cancel)
	defer func() {
		a.clearInFlightCancel()
		cancel()
	}()
	a.append(llm.Message{Role: llm.RoleUser, Content: input})

	var reply Reply
	for {
		messages := a.Messages()
		a.log.Debug("invoking provider", logging.Fields{"messages": len(messages), "chars": conversationCharCount(messages)})
		req := llm.ChatRequest{
			Model:       a.opts.Model,
			Messages:    messages,
			Tools:       a.tools.Definitions(),
			Temperature: a.opts.Temperature,
		}

		resp, err := a.callProviderWithRetry(ctx, req)
		if err != nil {
			return reply, fmt.Errorf("chat completion: %w", err)
		}
		if resp.Usage != nil {
			reply.Usage.PromptTokens += resp.Usage.PromptTokens
			reply.Usage.CompletionTokens += resp.Usage.CompletionTokens
			reply.Usage.TotalTokens += resp.Usage.TotalTokens
			a.mu.Lock()
			a.total += resp.Usage.TotalTokens
			a.mu.Unlock()
		}
		if len(resp.Choices) == 0 {
			return reply, llm.ErrEmptyResponse
		}

		choice := resp.Choices[0]
		a.append(choice.Message)
		if len(choice.Message.ToolCalls) == 0 {
			reply.Content = choice.Message.Content
			reply.FinishReason = choice.FinishReason
			return reply, nil
		}
		if reply.Steps >= a.opts.MaxSteps {
			a.log.Warn("step limit reached", logging.Fields{"max_steps": a.opts.MaxSteps})
			a.answerPending(choice.Message.ToolCalls, "Error: tool step limit reached; answer with what you have.")
			return reply, fmt.Errorf("%w (%d)", ErrStepLimit, a.opts.MaxSteps)
		}
		reply.Steps++
		if err := a.processToolCalls(ctx, choice.Message.ToolCalls); err != nil {
			return reply, err
		}
	}
}

func (a *Agent) processToolCalls(ctx context.Context, calls []llm.ToolCall) error {
	for i, call := range calls {
		if err := ctx.Err(); err != nil {
			a.answerPending(calls[i:], "Error: cancelled by the user.")
			return err
		}
		start := time.Now()
		logging.UserLog("Executing tool: %s", call.Function.Name)
		result := a.tools.Dispatch(ctx, call.Function.Name, call.Function.Arguments)
		originalLen := utf8.RuneCountInString(result)
		if originalLen > MaxObservationChars {
			result = truncateObservation(result, originalLen)
			a.log.Debug("tool result truncated", logging.Fields{"tool": call.Function.Name, "chars": originalLen})
		}
		a.log.Info("tool round", logging.Fields{
			"tool":        call.Function.Name,
			"duration_ms": time.Since(start).Round(time.Millisecond).Milliseconds(),
			"chars":       originalLen,
		})
		a.append(llm.Message{Role: llm.RoleTool, Name: call.Function.Name, Content: result, ToolCallID: call.ID})
	}
	return nil
}

// answerPending closes out tool calls that will not be executed so the
// conversation stays well-formed for the next turn.
func (a *Agent) answerPending(calls []llm.ToolCall, text string) {
	for _, call := range calls {
		a.append(llm.Message{Role: llm.RoleTool, Name: call.Function.Name, Content: text, ToolCallID: call.ID})
	}
}

func truncateObservation(result string, chars int) string {
	cut := 0
	for i := range result {
		if cut == MaxObservationChars {
			result = result[:i]
			break
		}
		cut++
	}
	return result + fmt.Sprintf("\n\n[TRUNCATED: Tool result too large (%d chars). Showing first %d chars. Narrow the request to see the rest.]", chars, MaxObservationChars)
}

func (a *Agent) callProviderWithRetry(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	const maxDelay = 16 * time.Second
	maxRetries := a.opts.MaxRetries
	delay := a.opts.RetryDelay
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		start := time.Now()
		resp, err := a.client.Chat(ctx, req)
		elapsed := time.Since(start).Round(time.Millisecond)
		logging.DevLog("provider call finished: err=%v (attempt %d/%d, duration=%s)", err, attempt, maxRetries, elapsed)
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return llm.ChatResponse{}, context.Canceled
		}
		pe, ok := llm.IsProviderError(err)
		if !ok || !pe.Retryable {
			a.log.Error("provider error (non-retryable)", logging.Fields{"error": err.Error()})
			return llm.ChatResponse{}, err
		}
		// Use provider-specified retry delay if available and longer than current
		if pe.RetryAfter != nil && *pe.RetryAfter > delay {
			delay = *pe.RetryAfter
		}

		lastErr = err
		if attempt == maxRetries {
			break
		}
		a.log.Warn("retrying provider call", logging.Fields{"attempt": attempt + 1, "max_attempts": maxRetries, "delay_ms": delay.Milliseconds(), "error": err.Error()})

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return llm.ChatResponse{}, context.Canceled
		case <-timer.C:
		}
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
	return llm.ChatResponse{}, lastErr
}

func (a *Agent) setInFlightCancel(cancel context.CancelFunc) {
	a.inflightMu.Lock()
	a.inflight = cancel
	a.inflightMu.Unlock()
}

func (a *Agent) clearInFlightCancel() {
	a.inflightMu.Lock()
	a.inflight = nil
	a.inflightMu.Unlock()
}

// CancelRequest aborts the turn in flight, if any.
func (a *Agent) CancelRequest() bool {
	a.inflightMu.Lock()
	defer a.inflightMu.Unlock()
	if a.inflight == nil {
		return false
	}
	a.inflight()
	a.inflight = nil
	return true
}

func conversationCharCount(messages []llm.Message) int {
	total := 0
	for _, m := range messages {
		total += len(m.Content)
		for _, call := range m.ToolCalls {
			total += len(call.Function.Name) + len(call.Function.Arguments)
		}
	}
	return total
}
