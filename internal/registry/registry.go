// Package registry tracks the agent pool and mediates every interaction
// between the coordinator and individual agents.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mantohq/manto/internal/agent"
	"github.com/mantohq/manto/internal/mission"
	"github.com/mantohq/manto/internal/store"
)

// ErrUnknownAgent is returned by Dispatch when the id does not belong to a
// registered agent. The coordinator treats it as a routing failure for the
// current task only.
var ErrUnknownAgent = errors.New("unknown agent")

// Registry holds the agent pool in registration order. Registration happens
// once at startup; reads afterwards are not synchronized.
type Registry struct {
	agents []agent.Agent
	byID   map[string]agent.Agent
	store  *store.Store
}

func New(s *store.Store) *Registry {
	return &Registry{
		byID:  make(map[string]agent.Agent),
		store: s,
	}
}

// Register adds an agent to the pool. Registration order is significant: it
// is the final tiebreaker during bid selection. Re-registering an id is a
// programming error.
func (r *Registry) Register(a agent.Agent) error {
	if _, exists := r.byID[a.ID()]; exists {
		return fmt.Errorf("agent %s already registered", a.ID())
	}
	r.agents = append(r.agents, a)
	r.byID[a.ID()] = a
	slog.Info("agent registered", "agent", a.ID(), "capability", a.Capability())
	return nil
}

// Agents returns the pool in registration order.
func (r *Registry) Agents() []agent.Agent {
	return r.agents
}

func (r *Registry) Get(id string) (agent.Agent, bool) {
	a, ok := r.byID[id]
	return a, ok
}

// Maintainer returns the agent's maintenance hook, if it has one.
func (r *Registry) Maintainer(id string) (agent.Maintainer, bool) {
	a, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	m, ok := a.(agent.Maintainer)
	return m, ok
}

// Broadcast offers a task to every agent and collects the returned bids in
// registration order. Agents that decline simply do not appear.
func (r *Registry) Broadcast(ctx context.Context, task mission.Task) []mission.Bid {
	var bids []mission.Bid
	for _, a := range r.agents {
		if ctx.Err() != nil {
			break
		}
		bid, ok := a.Propose(task)
		if !ok {
			continue
		}
		slog.Debug("bid received", "task", task.ID, "agent", a.ID(),
			"confidence", bid.Confidence, "cost", bid.EstimatedCost)
		bids = append(bids, bid)
	}
	return bids
}

// Dispatch hands a task to the named agent. A missing agent is a routing
// failure: the returned TaskResult carries the failure for the record and
// the error wraps ErrUnknownAgent.
func (r *Registry) Dispatch(ctx context.Context, agentID string, task mission.Task) (mission.TaskResult, error) {
	a, ok := r.byID[agentID]
	if !ok {
		err := fmt.Errorf("dispatch task %s: %w: %s", task.ID, ErrUnknownAgent, agentID)
		return mission.TaskResult{
			TaskID:  task.ID,
			AgentID: agentID,
			Error:   err.Error(),
		}, err
	}
	return a.Execute(ctx, task), nil
}

// Sync persists the current pool to the store and prunes agents that are no
// longer registered.
func (r *Registry) Sync() error {
	ids := make([]string, 0, len(r.agents))
	for _, a := range r.agents {
		ids = append(ids, a.ID())
		err := r.store.SaveAgent(&store.Agent{
			ID:         a.ID(),
			Name:       a.Name(),
			Capability: a.Capability(),
		})
		if err != nil {
			return err
		}
	}
	return r.store.DeleteAgentsNotIn(ids)
}
