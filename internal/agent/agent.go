// Package agent holds the specialist pool: each agent self-assesses tasks
// during a broadcast round and only executes work it bid on.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mantohq/manto/internal/config"
	"github.com/mantohq/manto/internal/mission"
)

type Status string

const (
	StatusIdle  Status = "idle"
	StatusBusy  Status = "busy"
	StatusError Status = "error"
)

// Agent is one specialist. Propose must be side-effect free and cheap; it
// runs for every task of every mission. Execute is only called on the agent
// whose bid won the round.
type Agent interface {
	ID() string
	Name() string
	Capability() string
	Propose(task mission.Task) (mission.Bid, bool)
	Execute(ctx context.Context, task mission.Task) mission.TaskResult
}

// Maintainer is implemented by agents with periodic background routines
// (cache sweeps and the like), driven by the scheduler.
type Maintainer interface {
	Maintain(ctx context.Context, routine string) error
}

// StatusReporter exposes the agent's current execution state for the web API.
type StatusReporter interface {
	Status() Status
}

// base carries the identity, bid parameters and status machine shared by all
// specialists.
type base struct {
	id         string
	name       string
	capability string
	keywords   []string
	confidence float64
	cost       float64

	mu     sync.Mutex
	status Status
}

func newBase(id, name, capability string, keywords []string, confidence, cost float64) *base {
	return &base{
		id:         id,
		name:       name,
		capability: capability,
		keywords:   keywords,
		confidence: confidence,
		cost:       cost,
		status:     StatusIdle,
	}
}

// applyDefinition overrides the built-in bid parameters with values from the
// config file, where set.
func (b *base) applyDefinition(def config.AgentDefinition) {
	if def.Capability != "" {
		b.capability = def.Capability
	}
	if len(def.Keywords) > 0 {
		b.keywords = def.Keywords
	}
	if def.Confidence > 0 {
		b.confidence = def.Confidence
	}
	if def.EstimatedCost > 0 {
		b.cost = def.EstimatedCost
	}
}

func (b *base) ID() string         { return b.id }
func (b *base) Name() string       { return b.name }
func (b *base) Capability() string { return b.capability }

func (b *base) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

func (b *base) setStatus(s Status) {
	b.mu.Lock()
	b.status = s
	b.mu.Unlock()
}

// matches reports whether any of the agent's keywords appears in the task
// description. Matching is case-insensitive substring containment.
func (b *base) matches(description string) bool {
	lower := strings.ToLower(description)
	for _, kw := range b.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Propose returns the agent's bid when the task matches its keywords.
func (b *base) Propose(task mission.Task) (mission.Bid, bool) {
	if !b.matches(task.Description) {
		return mission.Bid{}, false
	}
	return mission.Bid{
		AgentID:       b.id,
		Capability:    b.capability,
		Confidence:    b.confidence,
		EstimatedCost: b.cost,
	}, true
}

// run executes fn under the status machine with panic isolation: a panicking
// specialist produces a failed TaskResult, never a crashed process.
func (b *base) run(ctx context.Context, task mission.Task, fn func(context.Context) (string, error)) (res mission.TaskResult) {
	b.setStatus(StatusBusy)
	res = mission.TaskResult{TaskID: task.ID, AgentID: b.id}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("agent panicked", "agent", b.id, "task", task.ID, "panic", r)
			res.Succeeded = false
			res.Payload = ""
			res.Error = fmt.Sprintf("panic: %v", r)
			b.setStatus(StatusError)
		}
	}()

	payload, err := fn(ctx)
	if err != nil {
		res.Error = err.Error()
		b.setStatus(StatusError)
		return res
	}

	res.Succeeded = true
	res.Payload = payload
	b.setStatus(StatusIdle)
	return res
}
