package tooling

import (
	"context"
	"encoding/json"
	"strings"

	"bugx/internal/llm"
	"bugx/internal/plan"
	"bugx/internal/sandbox"
)

type parsePlanArgs struct {
	Text string `json:"text" jsonschema_description:"Plan text with Step N: lines and an optional Summary: section."`
}

// ParsePlanTool turns free-form plan text into structured JSON.
type ParsePlanTool struct{}

func (ParsePlanTool) Definition() llm.ToolDefinition {
	return definition("parse_plan",
		"Parse a plan written as 'Step N:' lines plus a 'Summary:' section into JSON with ordered steps.",
		&parsePlanArgs{})
}

func (ParsePlanTool) Call(ctx context.Context, args map[string]any) (string, error) {
	if err := checkContext(ctx); err != nil {
		return "", err
	}
	var in parsePlanArgs
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	data, err := json.Marshal(plan.Parse(in.Text))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type generatePlanArgs struct {
	Request string `json:"request" jsonschema_description:"What the plan should accomplish."`
}

// GeneratePlanTool asks the planner model for a step-by-step plan.
type GeneratePlanTool struct {
	planner *plan.Planner
}

func NewGeneratePlanTool(planner *plan.Planner) *GeneratePlanTool {
	return &GeneratePlanTool{planner: planner}
}

func (t *GeneratePlanTool) Definition() llm.ToolDefinition {
	return definition("generate_plan",
		"Draft a numbered step-by-step plan for a request and return it as JSON.",
		&generatePlanArgs{})
}

func (t *GeneratePlanTool) Call(ctx context.Context, args map[string]any) (string, error) {
	var in generatePlanArgs
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	if strings.TrimSpace(in.Request) == "" {
		return "", sandbox.Errorf(sandbox.KindInvalidArgument, "", "request is required")
	}
	res, err := t.planner.Generate(ctx, in.Request)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(res.Document)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
