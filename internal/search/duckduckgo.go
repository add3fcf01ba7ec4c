package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"bugx/internal/logging"
)

// DefaultEndpoint is DuckDuckGo's script-free results page.
const DefaultEndpoint = "https://html.duckduckgo.com/html/"

const userAgent = "BugX/1.0 (+https://duckduckgo.com/html)"

// DuckDuckGo scrapes the HTML results page.
type DuckDuckGo struct {
	client   *http.Client
	endpoint string
	maxBytes int64
}

// NewDuckDuckGo returns a provider posting to endpoint (DefaultEndpoint when empty).
func NewDuckDuckGo(endpoint string, timeout time.Duration) *DuckDuckGo {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &DuckDuckGo{
		client:   &http.Client{Timeout: timeout},
		endpoint: endpoint,
		maxBytes: 2 << 20, // 2MB
	}
}

func (d *DuckDuckGo) Search(ctx context.Context, query string, max int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query is required")
	}
	if max <= 0 {
		max = DefaultMaxResults
	}

	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request: unexpected status %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, d.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	results := make([]Result, 0, max)
	doc.Find(".result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if len(results) >= max {
			return false
		}
		if sel.HasClass("result--ad") {
			return true
		}
		link := sel.Find("a.result__a").First()
		title := normalizeWhitespace(link.Text())
		if title == "" {
			return true
		}
		results = append(results, Result{
			Title:   title,
			Snippet: normalizeWhitespace(sel.Find(".result__snippet").First().Text()),
			URL:     resolveLink(link.AttrOr("href", "")),
		})
		return true
	})
	logging.DevLog("search: %q returned %d results", query, len(results))
	return results, nil
}

// resolveLink unwraps DuckDuckGo's redirect links ("//duckduckgo.com/l/?uddg=...").
func resolveLink(href string) string {
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" && strings.HasPrefix(href, "//") {
		u.Scheme = "https"
	}
	return u.String()
}
