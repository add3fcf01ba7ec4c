package plan

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bugx/internal/llm"
	"bugx/internal/logging"
	"bugx/internal/prompts"
)

// Result pairs a parsed plan with the raw model text it came from.
type Result struct {
	Document *Document `json:"plan"`
	Raw      string    `json:"raw"`
}

// Planner asks a model for a plan and parses the answer.
type Planner struct {
	client      llm.Client
	model       string
	temperature float64
}

func NewPlanner(client llm.Client, model string, temperature float64) *Planner {
	return &Planner{client: client, model: model, temperature: temperature}
}

// Generate requests a plan for request. A reply that yields no steps and no
// summary is still returned, together with an error describing it.
func (p *Planner) Generate(ctx context.Context, request string) (Result, error) {
	if strings.TrimSpace(request) == "" {
		return Result{}, errors.New("plan request is empty")
	}
	raw, err := llm.Complete(ctx, p.client, llm.Completion{
		Model:       p.model,
		System:      prompts.Planner(),
		Prompt:      prompts.PlanRequest(request),
		Temperature: p.temperature,
	})
	if err != nil {
		return Result{}, fmt.Errorf("generate plan: %w", err)
	}
	doc := Parse(raw)
	logging.DevLog("planner: %d steps parsed from %d chars", doc.Steps.Len(), len(raw))
	res := Result{Document: doc, Raw: raw}
	if doc.Steps.Len() == 0 && doc.Summary == "" {
		return res, errors.New("model reply did not contain a plan")
	}
	return res, nil
}
