package registry

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mantohq/manto/internal/agent"
	"github.com/mantohq/manto/internal/mission"
	"github.com/mantohq/manto/internal/store"
)

type stubAgent struct {
	id         string
	capability string
	bids       bool
	confidence float64
	cost       float64
	executed   int
}

func (s *stubAgent) ID() string         { return s.id }
func (s *stubAgent) Name() string       { return strings.ToUpper(s.id) }
func (s *stubAgent) Capability() string { return s.capability }

func (s *stubAgent) Propose(task mission.Task) (mission.Bid, bool) {
	if !s.bids {
		return mission.Bid{}, false
	}
	return mission.Bid{AgentID: s.id, Capability: s.capability, Confidence: s.confidence, EstimatedCost: s.cost}, true
}

func (s *stubAgent) Execute(_ context.Context, task mission.Task) mission.TaskResult {
	s.executed++
	return mission.TaskResult{TaskID: task.ID, AgentID: s.id, Succeeded: true, Payload: "done by " + s.id}
}

type maintainerAgent struct {
	stubAgent
	routines []string
}

func (m *maintainerAgent) Maintain(_ context.Context, routine string) error {
	m.routines = append(m.routines, routine)
	return nil
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s)
}

func TestRegisterDuplicate(t *testing.T) {
	r := newTestRegistry(t)

	if err := r.Register(&stubAgent{id: "a"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(&stubAgent{id: "a"}); err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestBroadcastRegistrationOrder(t *testing.T) {
	r := newTestRegistry(t)
	_ = r.Register(&stubAgent{id: "first", bids: true, confidence: 0.5})
	_ = r.Register(&stubAgent{id: "silent", bids: false})
	_ = r.Register(&stubAgent{id: "second", bids: true, confidence: 0.9})

	bids := r.Broadcast(context.Background(), mission.Task{ID: "T1", Description: "x"})
	if len(bids) != 2 {
		t.Fatalf("expected 2 bids, got %d", len(bids))
	}
	if bids[0].AgentID != "first" || bids[1].AgentID != "second" {
		t.Errorf("expected registration order, got %s then %s", bids[0].AgentID, bids[1].AgentID)
	}
}

func TestDispatch(t *testing.T) {
	r := newTestRegistry(t)
	a := &stubAgent{id: "worker", bids: true}
	_ = r.Register(a)

	res, err := r.Dispatch(context.Background(), "worker", mission.Task{ID: "T1"})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !res.Succeeded || a.executed != 1 {
		t.Errorf("expected one successful execution, got %+v (executed=%d)", res, a.executed)
	}
}

func TestDispatchUnknownAgent(t *testing.T) {
	r := newTestRegistry(t)

	res, err := r.Dispatch(context.Background(), "ghost", mission.Task{ID: "T1"})
	if !errors.Is(err, ErrUnknownAgent) {
		t.Fatalf("expected ErrUnknownAgent, got %v", err)
	}
	if res.Succeeded {
		t.Error("expected failed result for routing failure")
	}
	if res.TaskID != "T1" || res.AgentID != "ghost" {
		t.Errorf("expected result to identify the failed routing, got %+v", res)
	}
}

func TestMaintainerLookup(t *testing.T) {
	r := newTestRegistry(t)
	m := &maintainerAgent{stubAgent: stubAgent{id: "sweeper"}}
	_ = r.Register(m)
	_ = r.Register(&stubAgent{id: "plain"})

	if _, ok := r.Maintainer("sweeper"); !ok {
		t.Error("expected maintainer for sweeper")
	}
	if _, ok := r.Maintainer("plain"); ok {
		t.Error("expected no maintainer for plain agent")
	}
	if _, ok := r.Maintainer("ghost"); ok {
		t.Error("expected no maintainer for unknown id")
	}
}

func TestSync(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	// A stale row from a previous configuration.
	_ = s.SaveAgent(&store.Agent{ID: "legacy", Name: "Legacy", Capability: "obsolete"})

	r := New(s)
	_ = r.Register(&stubAgent{id: "search", capability: "web research"})
	_ = r.Register(&stubAgent{id: "code", capability: "code analysis"})

	if err := r.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}

	agents, err := s.ListAgents()
	if err != nil {
		t.Fatalf("list agents: %v", err)
	}
	if len(agents) != 2 {
		t.Fatalf("expected 2 agents after sync, got %d", len(agents))
	}
	for _, a := range agents {
		if a.ID == "legacy" {
			t.Error("expected legacy agent to be pruned")
		}
	}
}

var _ agent.Agent = (*stubAgent)(nil)
