package tooling

import (
	"context"
	"strings"

	"bugx/internal/llm"
	"bugx/internal/prompts"
	"bugx/internal/sandbox"
)

type generateCodeArgs struct {
	Request string `json:"request" jsonschema_description:"Description of the code to write or change."`
	Context string `json:"context,omitempty" jsonschema_description:"Existing code the change applies to."`
}

// GenerateCodeTool asks a model for source code only.
type GenerateCodeTool struct {
	client      llm.Client
	model       string
	temperature float64
}

func NewGenerateCodeTool(client llm.Client, model string, temperature float64) *GenerateCodeTool {
	return &GenerateCodeTool{client: client, model: model, temperature: temperature}
}

func (t *GenerateCodeTool) Definition() llm.ToolDefinition {
	return definition("generate_code",
		"Generate source code for a request, optionally given existing code. Returns code only.",
		&generateCodeArgs{})
}

func (t *GenerateCodeTool) Call(ctx context.Context, args map[string]any) (string, error) {
	var in generateCodeArgs
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	if strings.TrimSpace(in.Request) == "" {
		return "", sandbox.Errorf(sandbox.KindInvalidArgument, "", "request is required")
	}
	out, err := llm.Complete(ctx, t.client, llm.Completion{
		Model:       t.model,
		System:      prompts.Codegen(),
		Prompt:      prompts.CodeRequest(in.Request, in.Context),
		Temperature: t.temperature,
	})
	if err != nil {
		return "", err
	}
	return stripFences(out), nil
}

// stripFences removes a surrounding markdown code fence, language tag included.
func stripFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	if i := strings.IndexByte(t, '\n'); i >= 0 {
		t = t[i+1:]
	} else {
		return ""
	}
	t = strings.TrimRight(t, " \t\n")
	t = strings.TrimSuffix(t, "```")
	return strings.TrimRight(t, " \t\n") + "\n"
}
