package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchParsesResults(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "go concurrency" {
			t.Errorf("expected query 'go concurrency', got %q", got)
		}
		if got := r.URL.Query().Get("language"); got != "en-US" {
			t.Errorf("expected language en-US, got %q", got)
		}
		if got := r.URL.Query().Get("safesearch"); got != "1" {
			t.Errorf("expected safesearch 1, got %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]string{
				{"title": "First", "url": "https://a.example", "content": "alpha"},
				{"title": "Second", "url": "https://b.example", "content": "beta"},
				{"title": "Third", "url": "https://c.example", "content": "gamma"},
			},
		})
	})

	c := NewHTTPClient(srv.URL, "")
	results, err := c.Search(context.Background(), "go concurrency", Options{
		Locale:     "en-US",
		MaxResults: 2,
		SafeSearch: "moderate",
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results (max), got %d", len(results))
	}
	if results[0].Title != "First" || results[0].URL != "https://a.example" || results[0].Snippet != "alpha" {
		t.Errorf("unexpected first result: %+v", results[0])
	}
}

func TestSearchSendsAPIKey(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("expected bearer header, got %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
	})

	c := NewHTTPClient(srv.URL, "sk-test")
	if _, err := c.Search(context.Background(), "anything", Options{}); err != nil {
		t.Fatalf("search: %v", err)
	}
}

func TestSearchNonOKStatus(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	c := NewHTTPClient(srv.URL, "")
	if _, err := c.Search(context.Background(), "anything", Options{}); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestSafeSearchLevels(t *testing.T) {
	cases := map[string]string{
		"off":      "0",
		"moderate": "1",
		"strict":   "2",
		"":         "1",
	}
	for in, want := range cases {
		if got := safeSearchLevel(in); got != want {
			t.Errorf("safeSearchLevel(%q) = %q, want %q", in, got, want)
		}
	}
}
