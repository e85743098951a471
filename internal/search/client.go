// Package search wraps an external web-search HTTP API. The call can block
// or fail; callers are expected to wrap it with the retry executor.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Result is one search hit in rank order.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Options tune a single query.
type Options struct {
	Locale     string // e.g. "en-US"
	MaxResults int
	SafeSearch string // "off", "moderate", "strict"
}

// Client performs searches. Implemented by HTTPClient; tests substitute
// fakes.
type Client interface {
	Search(ctx context.Context, query string, opts Options) ([]Result, error)
}

// HTTPClient queries a SearxNG-style JSON endpoint.
type HTTPClient struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// NewHTTPClient creates a client for the given endpoint. apiKey may be
// empty for open instances.
func NewHTTPClient(endpoint, apiKey string) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

type apiResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search runs one query and returns results in rank order.
func (c *HTTPClient) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	if opts.Locale != "" {
		q.Set("language", opts.Locale)
	}
	if opts.SafeSearch != "" {
		q.Set("safesearch", safeSearchLevel(opts.SafeSearch))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search endpoint returned %d", resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	max := opts.MaxResults
	if max <= 0 || max > len(body.Results) {
		max = len(body.Results)
	}

	results := make([]Result, 0, max)
	for _, r := range body.Results[:max] {
		results = append(results, Result{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
		})
	}
	return results, nil
}

func safeSearchLevel(s string) string {
	switch s {
	case "strict":
		return "2"
	case "off":
		return "0"
	default:
		return "1" // moderate
	}
}
