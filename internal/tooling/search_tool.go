package tooling

import (
	"context"
	"encoding/json"
	"strings"

	"bugx/internal/llm"
	"bugx/internal/sandbox"
	"bugx/internal/search"
)

type webSearchArgs struct {
	Query      string `json:"query" jsonschema_description:"Search query."`
	MaxResults int    `json:"max_results,omitempty" jsonschema_description:"Maximum number of results to return."`
}

// WebSearchTool queries a search provider and returns title, snippet and
// url for each hit as JSON.
type WebSearchTool struct {
	provider   search.Provider
	maxResults int
}

func NewWebSearchTool(provider search.Provider, maxResults int) *WebSearchTool {
	if maxResults <= 0 {
		maxResults = search.DefaultMaxResults
	}
	return &WebSearchTool{provider: provider, maxResults: maxResults}
}

func (t *WebSearchTool) Definition() llm.ToolDefinition {
	return definition("web_search",
		"Search the web and return the top results with title, snippet and url.",
		&webSearchArgs{})
}

func (t *WebSearchTool) Call(ctx context.Context, args map[string]any) (string, error) {
	var in webSearchArgs
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	if strings.TrimSpace(in.Query) == "" {
		return "", sandbox.Errorf(sandbox.KindInvalidArgument, "", "query is required")
	}
	max := in.MaxResults
	if max <= 0 || max > t.maxResults {
		max = t.maxResults
	}
	results, err := t.provider.Search(ctx, in.Query, max)
	if err != nil {
		return "", err
	}
	if results == nil {
		results = []search.Result{}
	}
	data, err := json.Marshal(results)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
