// Package manto implements the central coordinator: it decomposes a goal
// into tasks, auctions each task to the agent pool, dispatches the winning
// bidder and synthesizes the results into one report. The coordinator never
// executes tasks itself.
package manto

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/mantohq/manto/internal/config"
	"github.com/mantohq/manto/internal/mission"
	"github.com/mantohq/manto/internal/natsbus"
	"github.com/mantohq/manto/internal/registry"
	"github.com/mantohq/manto/internal/store"
	"github.com/mantohq/manto/internal/thinker"
)

const (
	// NoBidSkip records an unclaimed task as skipped and moves on.
	NoBidSkip = "skip"
	// NoBidAbort stops the remaining plan when a task draws no bids.
	NoBidAbort = "abort"
)

type Coordinator struct {
	cfg      config.CoordinatorConfig
	thinker  thinker.Thinker
	registry *registry.Registry
	store    *store.Store
	sink     natsbus.Sink
}

func NewCoordinator(cfg config.CoordinatorConfig, th thinker.Thinker, reg *registry.Registry, s *store.Store, sink natsbus.Sink) *Coordinator {
	if sink == nil {
		sink = natsbus.NopSink{}
	}
	return &Coordinator{
		cfg:      cfg,
		thinker:  th,
		registry: reg,
		store:    s,
		sink:     sink,
	}
}

// Submit starts a mission in the background and returns the persisted run
// immediately. The mission outlives the caller's context.
func (c *Coordinator) Submit(_ context.Context, goal string) (*store.MissionRun, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return nil, errors.New("goal is required")
	}

	run := &store.MissionRun{
		ID:     uuid.NewString(),
		Goal:   goal,
		Status: "running",
	}
	if err := c.store.SaveMissionRun(run); err != nil {
		return nil, fmt.Errorf("save mission run: %w", err)
	}

	go c.execute(context.Background(), run)
	return run, nil
}

// Process runs a mission synchronously and returns its final state. Used by
// the CLI run path.
func (c *Coordinator) Process(ctx context.Context, goal string) (*store.MissionRun, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return nil, errors.New("goal is required")
	}

	run := &store.MissionRun{
		ID:     uuid.NewString(),
		Goal:   goal,
		Status: "running",
	}
	if err := c.store.SaveMissionRun(run); err != nil {
		return nil, fmt.Errorf("save mission run: %w", err)
	}

	c.execute(ctx, run)
	return c.store.GetMissionRun(run.ID)
}

func (c *Coordinator) execute(ctx context.Context, run *store.MissionRun) {
	slog.Info("mission received", "mission", run.ID, "goal", run.Goal)
	c.publish(run.ID, "mission_received", map[string]any{"goal": run.Goal})

	tasks, err := c.thinker.Decompose(ctx, run.Goal)
	if err != nil {
		// Nothing has been dispatched yet; the whole mission aborts.
		slog.Error("decomposition failed", "mission", run.ID, "error", err)
		c.finish(run.ID, "aborted", nil, "", fmt.Sprintf("decomposition failed: %v", err))
		c.publish(run.ID, "mission_aborted", map[string]any{"error": err.Error()})
		return
	}

	planJSON, _ := json.Marshal(tasks)
	if err := c.store.UpdateMissionPlan(run.ID, planJSON); err != nil {
		slog.Warn("plan not persisted", "mission", run.ID, "error", err)
	}
	slog.Info("mission decomposed", "mission", run.ID, "tasks", len(tasks))
	c.publish(run.ID, "mission_decomposed", map[string]any{"tasks": len(tasks)})

	records := c.runPlan(ctx, run.ID, tasks)

	status := "synthesized"
	for _, rec := range records {
		if rec.Outcome == mission.OutcomeSkipped && rec.Reason == reasonAborted {
			status = "aborted"
			break
		}
	}

	report := Synthesize(run.Goal, records)
	resultsJSON, _ := json.Marshal(records)
	c.finish(run.ID, status, resultsJSON, report, "")
	c.writeReport(run.ID, report)

	kind := "mission_synthesized"
	if status == "aborted" {
		kind = "mission_aborted"
	}
	c.publish(run.ID, kind, map[string]any{"tasks": len(records)})
	slog.Info("mission finished", "mission", run.ID, "status", status)
}

const (
	reasonNoBids  = "no agent bid on the task"
	reasonAborted = "plan aborted before execution"
)

// runPlan executes the decomposed tasks in order, one bid round per task.
func (c *Coordinator) runPlan(ctx context.Context, missionID string, tasks []mission.Task) []mission.Record {
	records := make([]mission.Record, 0, len(tasks))
	outcomes := make(map[string]mission.Outcome, len(tasks))

	record := func(rec mission.Record) {
		records = append(records, rec)
		outcomes[rec.Task.ID] = rec.Outcome
	}

	aborted := false
	for _, task := range tasks {
		if aborted {
			record(mission.Record{Task: task, Outcome: mission.OutcomeSkipped, Reason: reasonAborted})
			continue
		}

		// Tasks whose dependencies did not complete are skipped without
		// a broadcast round.
		if dep, ok := unmetDependency(task, outcomes); ok {
			reason := fmt.Sprintf("dependency %s did not complete", dep)
			slog.Warn("task skipped", "mission", missionID, "task", task.ID, "reason", reason)
			c.publish(missionID, "task_skipped", map[string]any{"task": task.ID, "reason": reason})
			record(mission.Record{Task: task, Outcome: mission.OutcomeSkipped, Reason: reason})
			continue
		}

		c.publish(missionID, "task_broadcasting", map[string]any{"task": task.ID, "description": task.Description})
		bids := c.registry.Broadcast(ctx, task)

		if len(bids) == 0 {
			slog.Warn("no bids", "mission", missionID, "task", task.ID, "policy", c.cfg.NoBidPolicy)
			c.publish(missionID, "task_skipped", map[string]any{"task": task.ID, "reason": reasonNoBids})
			record(mission.Record{Task: task, Outcome: mission.OutcomeSkipped, Reason: reasonNoBids})
			if c.cfg.NoBidPolicy == NoBidAbort {
				aborted = true
			}
			continue
		}

		best, _ := mission.SelectBid(bids)
		slog.Info("bid selected", "mission", missionID, "task", task.ID,
			"agent", best.AgentID, "confidence", best.Confidence, "cost", best.EstimatedCost, "bids", len(bids))
		c.publish(missionID, "task_selected", map[string]any{
			"task": task.ID, "agent": best.AgentID, "confidence": best.Confidence, "bids": len(bids),
		})

		res, err := c.registry.Dispatch(ctx, best.AgentID, task)
		if errors.Is(err, registry.ErrUnknownAgent) {
			// Routing failure: fatal for this task only.
			slog.Error("routing failed", "mission", missionID, "task", task.ID, "agent", best.AgentID)
			c.publish(missionID, "task_routing_failed", map[string]any{"task": task.ID, "agent": best.AgentID})
			record(mission.Record{Task: task, Outcome: mission.OutcomeFailed, Reason: err.Error(), Result: &res})
			continue
		}

		if err := c.store.RecordExecution(best.AgentID, res.Succeeded); err != nil {
			slog.Warn("metrics not recorded", "agent", best.AgentID, "error", err)
		}

		if res.Succeeded {
			c.publish(missionID, "task_completed", map[string]any{"task": task.ID, "agent": best.AgentID})
			record(mission.Record{Task: task, Outcome: mission.OutcomeCompleted, Result: &res})
		} else {
			// An agent failure never fails the mission.
			slog.Warn("task failed", "mission", missionID, "task", task.ID, "agent", best.AgentID, "error", res.Error)
			c.publish(missionID, "task_failed", map[string]any{"task": task.ID, "agent": best.AgentID, "error": res.Error})
			record(mission.Record{Task: task, Outcome: mission.OutcomeFailed, Reason: res.Error, Result: &res})
		}
	}

	return records
}

func unmetDependency(task mission.Task, outcomes map[string]mission.Outcome) (string, bool) {
	for _, dep := range task.DependsOn {
		if outcomes[dep] != mission.OutcomeCompleted {
			return dep, true
		}
	}
	return "", false
}

// Synthesize renders the mission records into the final report. Synthesis
// never fails: tasks that failed or were skipped appear with explicit
// markers instead of payloads.
func Synthesize(goal string, records []mission.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Mission report\n\nGoal: %s\n\n", goal)

	completed := 0
	for _, rec := range records {
		if rec.Outcome == mission.OutcomeCompleted {
			completed++
		}
	}
	fmt.Fprintf(&b, "%d/%d task(s) completed.\n", completed, len(records))

	for _, rec := range records {
		fmt.Fprintf(&b, "\n## %s: %s\n\n", rec.Task.ID, rec.Task.Description)
		switch rec.Outcome {
		case mission.OutcomeCompleted:
			b.WriteString(truncate(rec.Result.Payload, 1000))
			b.WriteString("\n")
		case mission.OutcomeFailed:
			fmt.Fprintf(&b, "[failed: %s]\n", rec.Reason)
		case mission.OutcomeSkipped:
			fmt.Fprintf(&b, "[skipped: %s]\n", rec.Reason)
		}
	}
	return b.String()
}

func (c *Coordinator) finish(id, status string, results json.RawMessage, report, errMsg string) {
	if err := c.store.CompleteMissionRun(id, status, results, report, errMsg); err != nil {
		slog.Error("mission run not finalized", "mission", id, "error", err)
	}
}

// writeReport saves the synthesized report to the reports directory. A write
// failure is logged; the report stays available in the store.
func (c *Coordinator) writeReport(missionID, report string) {
	if c.cfg.ReportsDir == "" {
		return
	}
	if err := os.MkdirAll(c.cfg.ReportsDir, 0o755); err != nil {
		slog.Warn("reports dir not created", "dir", c.cfg.ReportsDir, "error", err)
		return
	}
	path := filepath.Join(c.cfg.ReportsDir, "mission-"+missionID+".md")
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		slog.Warn("report not written", "path", path, "error", err)
	}
}

func (c *Coordinator) publish(missionID, kind string, payload map[string]any) {
	c.sink.Notify(natsbus.TopicMissionEvents(missionID), natsbus.Event{
		Kind:    kind,
		Source:  "coordinator",
		Payload: payload,
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
