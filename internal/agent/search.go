package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/mantohq/manto/internal/cache"
	"github.com/mantohq/manto/internal/config"
	"github.com/mantohq/manto/internal/mission"
	"github.com/mantohq/manto/internal/retry"
	"github.com/mantohq/manto/internal/search"
)

// queryPrefixes are directive phrases stripped from a task description to
// obtain the bare search query. Longer phrases first so "search for" wins
// over "search".
var queryPrefixes = []string{
	"search the web for",
	"search for",
	"search",
	"research",
	"look up",
	"find out",
	"find",
	"what is",
	"who was",
	"who is",
}

// SearchAgent answers research tasks against a web search backend. Results
// are cached per query, and transport failures are retried with backoff.
type SearchAgent struct {
	*base
	client  search.Client
	cache   *cache.Cache
	retrier *retry.Executor
	opts    search.Options
}

func NewSearchAgent(client search.Client, c *cache.Cache, r *retry.Executor, searchCfg config.SearchConfig, def config.AgentDefinition) *SearchAgent {
	b := newBase("search", "Search", "web research",
		[]string{"search", "research", "find", "look up", "what is", "who was"}, 0.9, 1.0)
	b.applyDefinition(def)
	return &SearchAgent{
		base:    b,
		client:  client,
		cache:   c,
		retrier: r,
		opts: search.Options{
			Locale:     searchCfg.Locale,
			MaxResults: searchCfg.MaxResults,
			SafeSearch: searchCfg.SafeSearch,
		},
	}
}

func (a *SearchAgent) Propose(task mission.Task) (mission.Bid, bool) {
	bid, ok := a.base.Propose(task)
	if !ok {
		return mission.Bid{}, false
	}
	// A matching task with no extractable query is not actionable.
	if extractQuery(task.Description) == "" {
		return mission.Bid{}, false
	}
	return bid, true
}

func (a *SearchAgent) Execute(ctx context.Context, task mission.Task) mission.TaskResult {
	return a.run(ctx, task, func(ctx context.Context) (string, error) {
		query := extractQuery(task.Description)

		// Cache hits bypass the network and the retry machinery entirely.
		if v, ok := a.cache.Get(query); ok {
			return v.(string), nil
		}

		out := a.retrier.Execute(ctx, func(ctx context.Context) (any, error) {
			return a.client.Search(ctx, query, a.opts)
		})
		if !out.Succeeded {
			return "", fmt.Errorf("search for %q failed after %d attempts: %v", query, out.Attempts, out.Err)
		}

		payload := formatResults(query, out.Value.([]search.Result))
		a.cache.Set(query, payload)
		return payload, nil
	})
}

// Maintain implements the agent's background routines.
func (a *SearchAgent) Maintain(_ context.Context, routine string) error {
	switch routine {
	case "cache-sweep":
		// Size walks the cache and evicts expired entries as a side effect.
		a.cache.Size()
		return nil
	case "cache-clear":
		a.cache.Clear()
		return nil
	default:
		return fmt.Errorf("unknown routine: %s", routine)
	}
}

// extractQuery strips directive phrases and punctuation from a task
// description, leaving the bare search term.
func extractQuery(description string) string {
	q := strings.TrimSpace(description)
	lower := strings.ToLower(q)
	for _, p := range queryPrefixes {
		if strings.HasPrefix(lower, p) {
			q = strings.TrimSpace(q[len(p):])
			break
		}
	}
	q = strings.Trim(q, "?.!\"' ")
	return strings.TrimSpace(q)
}

func formatResults(query string, results []search.Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for %q.", query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d result(s) for %q:\n", len(results), query)
	for i, r := range results {
		fmt.Fprintf(&b, "\n%d. %s\n   %s\n", i+1, r.Title, r.URL)
		if r.Snippet != "" {
			snippet := r.Snippet
			if len(snippet) > 200 {
				snippet = snippet[:200] + "..."
			}
			fmt.Fprintf(&b, "   %s\n", snippet)
		}
	}
	return b.String()
}
