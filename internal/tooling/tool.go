// Package tooling exposes the sandboxed operations to the model as named
// tools and turns every outcome into observation text.
package tooling

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"bugx/internal/llm"
	"bugx/internal/logging"
	"bugx/internal/plan"
	"bugx/internal/runner"
	"bugx/internal/sandbox"
	"bugx/internal/search"
)

type Tool interface {
	Definition() llm.ToolDefinition
	Call(ctx context.Context, args map[string]any) (string, error)
}

// errorRenderer lets a tool control how its failures read to the model.
type errorRenderer interface {
	RenderError(err error) string
}

type Registry struct {
	tools       map[string]Tool
	definitions []llm.ToolDefinition
	log         *logging.StructuredLogger
}

func NewRegistry(tools ...Tool) *Registry {
	bucket := make(map[string]Tool, len(tools))
	defs := make([]llm.ToolDefinition, 0, len(tools))
	for _, tool := range tools {
		def := tool.Definition()
		bucket[def.Function.Name] = tool
		defs = append(defs, def)
	}
	return &Registry{
		tools:       bucket,
		definitions: defs,
		log:         logging.NewStructuredLogger(nil, "tooling", false),
	}
}

func (r *Registry) Definitions() []llm.ToolDefinition {
	out := make([]llm.ToolDefinition, len(r.definitions))
	copy(out, r.definitions)
	return out
}

func (r *Registry) Lookup(name string) (Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs the named tool with JSON-encoded arguments and always
// returns text: unknown tools, malformed arguments and tool failures are
// rendered as error text instead of being returned as Go errors.
func (r *Registry) Dispatch(ctx context.Context, name, rawArgs string) string {
	tool, ok := r.Lookup(name)
	if !ok {
		r.log.Warn("unknown tool requested", logging.Fields{"tool": name})
		return fmt.Sprintf("Error: unknown tool %q. Available tools: %s", name, strings.Join(r.Names(), ", "))
	}
	args := map[string]any{}
	if strings.TrimSpace(rawArgs) != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return render(tool, sandbox.Wrap(sandbox.KindInvalidArgument, "", err, "arguments for %s are not a JSON object", name))
		}
	}
	return r.Invoke(ctx, name, args)
}

// Invoke is Dispatch for already-decoded arguments.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) string {
	tool, ok := r.Lookup(name)
	if !ok {
		return fmt.Sprintf("Error: unknown tool %q", name)
	}
	start := time.Now()
	out, err := tool.Call(ctx, args)
	fields := logging.Fields{"tool": name, "duration_ms": time.Since(start).Milliseconds()}
	if err != nil {
		fields["kind"] = string(sandbox.KindOf(err))
		r.log.Error(err.Error(), fields)
		return render(tool, err)
	}
	fields["bytes"] = len(out)
	r.log.Info("tool finished", fields)
	return out
}

func render(tool Tool, err error) string {
	if rr, ok := tool.(errorRenderer); ok {
		return rr.RenderError(err)
	}
	return ErrorText(err)
}

// ErrorText is the default rendering of a tool failure.
func ErrorText(err error) string {
	return "Error: " + err.Error()
}

// Options configures the default tool set. The working root is fixed here;
// the model never supplies it.
type Options struct {
	Root         string
	MaxReadChars int
	Limits       runner.Limits
	Interpreter  string

	// Client enables the model-backed tools (generate_plan, generate_code).
	Client      llm.Client
	Model       string
	Temperature float64

	// Search defaults to DuckDuckGo.
	Search           search.Provider
	SearchMaxResults int
}

// DefaultTools builds every tool bound to opts.Root.
func DefaultTools(opts Options) ([]Tool, error) {
	guard, err := sandbox.NewGuard(opts.Root)
	if err != nil {
		return nil, err
	}
	exec, err := runner.New(guard, runner.Options{Limits: opts.Limits, Interpreter: opts.Interpreter})
	if err != nil {
		return nil, err
	}
	store := sandbox.NewFileStore(guard, opts.MaxReadChars)
	provider := opts.Search
	if provider == nil {
		provider = search.NewDuckDuckGo("", 0)
	}

	tools := []Tool{
		NewWriteFileTool(store),
		NewCreateFileTool(store),
		NewReadFileTool(store),
		NewScanDirectoryTool(sandbox.NewScanner(guard)),
		NewDeleteOrMoveTool(sandbox.NewRefactorer(guard)),
		NewRunShellTool(exec),
		NewRunPythonTool(exec),
		NewRunTestsTool(exec),
		ParsePlanTool{},
		NewWebSearchTool(provider, opts.SearchMaxResults),
	}
	if opts.Client != nil {
		tools = append(tools,
			NewGeneratePlanTool(plan.NewPlanner(opts.Client, opts.Model, opts.Temperature)),
			NewGenerateCodeTool(opts.Client, opts.Model, opts.Temperature),
		)
	}
	return tools, nil
}

// New builds a Registry holding DefaultTools(opts).
func New(opts Options) (*Registry, error) {
	tools, err := DefaultTools(opts)
	if err != nil {
		return nil, err
	}
	return NewRegistry(tools...), nil
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
