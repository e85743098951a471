package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mantohq/manto/internal/cache"
	"github.com/mantohq/manto/internal/config"
	"github.com/mantohq/manto/internal/mission"
	"github.com/mantohq/manto/internal/retry"
	"github.com/mantohq/manto/internal/search"
)

type fakeSearchClient struct {
	calls   int
	results []search.Result
	err     error
	panics  bool
}

func (f *fakeSearchClient) Search(_ context.Context, query string, _ search.Options) ([]search.Result, error) {
	f.calls++
	if f.panics {
		panic("backend exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func newTestSearchAgent(client search.Client) *SearchAgent {
	return NewSearchAgent(client,
		cache.New(10, time.Hour),
		retry.New(2, time.Millisecond, 100*time.Millisecond),
		config.SearchConfig{Locale: "en-US", MaxResults: 3, SafeSearch: "moderate"},
		config.AgentDefinition{})
}

func TestProposeMatching(t *testing.T) {
	a := newTestSearchAgent(&fakeSearchClient{})

	bid, ok := a.Propose(mission.Task{ID: "T1", Description: "search for golang generics"})
	if !ok {
		t.Fatal("expected a bid for a search task")
	}
	if bid.AgentID != "search" || bid.Confidence != 0.9 || bid.EstimatedCost != 1.0 {
		t.Errorf("unexpected bid: %+v", bid)
	}

	if _, ok := a.Propose(mission.Task{ID: "T2", Description: "write a report"}); ok {
		t.Error("expected no bid for an unrelated task")
	}

	// A matching keyword with no query left over is not actionable.
	if _, ok := a.Propose(mission.Task{ID: "T3", Description: "search"}); ok {
		t.Error("expected no bid for a bare directive")
	}
}

func TestProposeConfigOverrides(t *testing.T) {
	a := NewSearchAgent(&fakeSearchClient{}, cache.New(10, time.Hour),
		retry.New(1, time.Millisecond, time.Second),
		config.SearchConfig{},
		config.AgentDefinition{Confidence: 0.5, EstimatedCost: 3})

	bid, ok := a.Propose(mission.Task{ID: "T1", Description: "search for x"})
	if !ok {
		t.Fatal("expected a bid")
	}
	if bid.Confidence != 0.5 || bid.EstimatedCost != 3 {
		t.Errorf("expected config overrides to apply, got %+v", bid)
	}
}

func TestExtractQuery(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"search for golang generics", "golang generics"},
		{"Search the web for NATS jetstream", "NATS jetstream"},
		{"what is a bloom filter?", "a bloom filter"},
		{"who was Alan Turing", "Alan Turing"},
		{"look up zstd compression levels", "zstd compression levels"},
		{"research quantum computing", "quantum computing"},
		{"plain query", "plain query"},
		{"find", ""},
	}
	for _, tt := range tests {
		if got := extractQuery(tt.in); got != tt.want {
			t.Errorf("extractQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSearchExecute(t *testing.T) {
	client := &fakeSearchClient{results: []search.Result{
		{Title: "Go Blog", URL: "https://go.dev/blog", Snippet: "the go blog"},
	}}
	a := newTestSearchAgent(client)

	res := a.Execute(context.Background(), mission.Task{ID: "T1", Description: "search for golang"})
	if !res.Succeeded {
		t.Fatalf("expected success, got error: %s", res.Error)
	}
	if !strings.Contains(res.Payload, "Go Blog") {
		t.Errorf("expected payload to contain result title, got: %s", res.Payload)
	}
	if a.Status() != StatusIdle {
		t.Errorf("expected idle after success, got %s", a.Status())
	}
}

func TestSearchExecuteCacheHit(t *testing.T) {
	client := &fakeSearchClient{results: []search.Result{{Title: "A", URL: "u"}}}
	a := newTestSearchAgent(client)

	first := a.Execute(context.Background(), mission.Task{ID: "T1", Description: "search for golang"})
	second := a.Execute(context.Background(), mission.Task{ID: "T2", Description: "search for golang"})

	if client.calls != 1 {
		t.Errorf("expected 1 backend call, got %d", client.calls)
	}
	if first.Payload != second.Payload {
		t.Error("expected identical payloads from cache")
	}
}

func TestSearchExecuteRetriesThenFails(t *testing.T) {
	client := &fakeSearchClient{err: errors.New("connection refused")}
	a := newTestSearchAgent(client)

	res := a.Execute(context.Background(), mission.Task{ID: "T1", Description: "search for golang"})
	if res.Succeeded {
		t.Fatal("expected failure")
	}
	if client.calls != 2 {
		t.Errorf("expected 2 attempts, got %d", client.calls)
	}
	if !strings.Contains(res.Error, "after 2 attempts") {
		t.Errorf("expected attempt count in error, got: %s", res.Error)
	}
	if a.Status() != StatusError {
		t.Errorf("expected error status after failure, got %s", a.Status())
	}
}

func TestExecutePanicIsolation(t *testing.T) {
	a := newTestSearchAgent(&fakeSearchClient{panics: true})

	res := a.Execute(context.Background(), mission.Task{ID: "T1", Description: "search for golang"})
	if res.Succeeded {
		t.Fatal("expected failure from panicking backend")
	}
	if !strings.Contains(res.Error, "panic") {
		t.Errorf("expected panic in error, got: %s", res.Error)
	}
	if a.Status() != StatusError {
		t.Errorf("expected error status, got %s", a.Status())
	}
}

func TestSearchMaintain(t *testing.T) {
	a := newTestSearchAgent(&fakeSearchClient{results: []search.Result{{Title: "A"}}})
	_ = a.Execute(context.Background(), mission.Task{ID: "T1", Description: "search for golang"})

	if err := a.Maintain(context.Background(), "cache-sweep"); err != nil {
		t.Fatalf("cache-sweep: %v", err)
	}
	if err := a.Maintain(context.Background(), "cache-clear"); err != nil {
		t.Fatalf("cache-clear: %v", err)
	}
	if a.cache.Size() != 0 {
		t.Errorf("expected empty cache after clear, got %d", a.cache.Size())
	}
	if err := a.Maintain(context.Background(), "defrag"); err == nil {
		t.Error("expected error for unknown routine")
	}
}

func TestCodeAgent(t *testing.T) {
	a := NewCodeAgent(config.AgentDefinition{})

	if _, ok := a.Propose(mission.Task{Description: "analyze the framework code"}); !ok {
		t.Fatal("expected bid on code task")
	}
	if _, ok := a.Propose(mission.Task{Description: "search for cats"}); ok {
		t.Error("expected no bid on search task")
	}

	res := a.Execute(context.Background(), mission.Task{ID: "T1", Description: "analyze and review the parser"})
	if !res.Succeeded {
		t.Fatalf("unexpected failure: %s", res.Error)
	}
	if !strings.Contains(res.Payload, "reviewed error paths") || !strings.Contains(res.Payload, "static analysis") {
		t.Errorf("expected both findings, got: %s", res.Payload)
	}

	// Deterministic
	again := a.Execute(context.Background(), mission.Task{ID: "T1", Description: "analyze and review the parser"})
	if res.Payload != again.Payload {
		t.Error("expected deterministic output")
	}
}

func TestStrategistPlanCaching(t *testing.T) {
	a := NewStrategistAgent(config.AgentDefinition{})

	task := mission.Task{ID: "T1", Description: "plan the Q3 roadmap"}
	first := a.Execute(context.Background(), task)
	if !first.Succeeded {
		t.Fatalf("unexpected failure: %s", first.Error)
	}
	if !strings.Contains(first.Payload, "Action plan") {
		t.Errorf("unexpected payload: %s", first.Payload)
	}

	second := a.Execute(context.Background(), task)
	if first.Payload != second.Payload {
		t.Error("expected cached plan on second execution")
	}
	if a.plans.Size() != 1 {
		t.Errorf("expected 1 cached plan, got %d", a.plans.Size())
	}
}

func TestKaizenRPNOrdering(t *testing.T) {
	a := NewKaizenAgent(config.AgentDefinition{})

	if _, ok := a.Propose(mission.Task{Description: "assess the risk of the rollout"}); !ok {
		t.Fatal("expected bid on risk task")
	}

	res := a.Execute(context.Background(), mission.Task{ID: "T1", Description: "risk analysis of the deploy and data pipeline"})
	if !res.Succeeded {
		t.Fatalf("unexpected failure: %s", res.Error)
	}

	// data (10*3*10=300) outranks deploy (10*5*5=250) outranks the
	// default manual-step mode (125).
	di := strings.Index(res.Payload, "silent data corruption")
	pi := strings.Index(res.Payload, "partial rollout")
	mi := strings.Index(res.Payload, "human error")
	if di == -1 || pi == -1 || mi == -1 {
		t.Fatalf("missing failure modes in: %s", res.Payload)
	}
	if !(di < pi && pi < mi) {
		t.Errorf("expected RPN-descending order, got: %s", res.Payload)
	}
}
