// Package search runs web searches for the agent.
package search

import (
	"context"
	"strings"
	"unicode"
)

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// Provider answers a query with at most max results.
type Provider interface {
	Search(ctx context.Context, query string, max int) ([]Result, error)
}

// DefaultMaxResults is used when callers pass a non-positive limit.
const DefaultMaxResults = 5

func normalizeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
