// Package scheduler runs agent maintenance routines on their configured
// schedules: a poll loop picks due tasks from the store and hands each to
// the owning agent's Maintain hook.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mantohq/manto/internal/config"
	"github.com/mantohq/manto/internal/natsbus"
	"github.com/mantohq/manto/internal/registry"
	"github.com/mantohq/manto/internal/schedule"
	"github.com/mantohq/manto/internal/store"
)

type Scheduler struct {
	store    *store.Store
	registry *registry.Registry
	sink     natsbus.Sink
	reloadCh chan struct{}

	mu           sync.Mutex // guards pollInterval; reloads race the run loop
	pollInterval time.Duration
}

func New(s *store.Store, reg *registry.Registry, sink natsbus.Sink, cfg config.SchedulerConfig) *Scheduler {
	if sink == nil {
		sink = natsbus.NopSink{}
	}
	return &Scheduler{
		store:        s,
		registry:     reg,
		sink:         sink,
		pollInterval: cfg.PollInterval,
		reloadCh:     make(chan struct{}, 1),
	}
}

// Seed registers the maintenance routines declared in the agent config,
// keyed by agent and routine so restarts do not duplicate them.
func (s *Scheduler) Seed(agents map[string]config.AgentDefinition) error {
	for id, def := range agents {
		if def.Disabled || def.Maintenance.Routine == "" || def.Maintenance.Schedule == "" {
			continue
		}

		normalized, err := schedule.NormalizeSchedule(def.Maintenance.Schedule)
		if err != nil {
			return fmt.Errorf("agent %s maintenance schedule: %w", id, err)
		}

		task := &store.MaintenanceTask{
			ID:        id + ":" + def.Maintenance.Routine,
			AgentID:   id,
			Name:      def.Maintenance.Routine,
			Schedule:  normalized,
			Routine:   def.Maintenance.Routine,
			Status:    "active",
			NextRunAt: schedule.CalculateNextRun(normalized),
		}
		if err := s.store.SaveMaintenanceTask(task); err != nil {
			return err
		}
		slog.Info("maintenance task seeded", "agent", id, "routine", def.Maintenance.Routine)
	}
	return nil
}

// UpdateConfig changes the poll interval and signals the run loop to reset
// its ticker. Called from the gateway's SIGHUP config-reload path.
func (s *Scheduler) UpdateConfig(pollInterval time.Duration) {
	s.mu.Lock()
	s.pollInterval = pollInterval
	s.mu.Unlock()
	select {
	case s.reloadCh <- struct{}{}:
	default:
	}
}

func (s *Scheduler) interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pollInterval == 0 {
		s.pollInterval = 30 * time.Second
	}
	return s.pollInterval
}

func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval())
	defer ticker.Stop()

	slog.Info("scheduler started", "poll_interval", s.interval())

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return
		case <-s.reloadCh:
			ticker.Reset(s.interval())
			slog.Info("scheduler config reloaded", "poll_interval", s.interval())
		case <-ticker.C:
			s.Poll(ctx)
		}
	}
}

// Poll runs every due maintenance task once.
func (s *Scheduler) Poll(ctx context.Context) {
	tasks, err := s.store.GetDueMaintenanceTasks(time.Now())
	if err != nil {
		slog.Error("failed to get due maintenance tasks", "error", err)
		return
	}

	for _, task := range tasks {
		s.execute(ctx, task)
	}
}

func (s *Scheduler) execute(ctx context.Context, task store.MaintenanceTask) {
	slog.Info("running maintenance", "id", task.ID, "agent", task.AgentID, "routine", task.Routine)

	var lastStatus, lastError string
	m, ok := s.registry.Maintainer(task.AgentID)
	if !ok {
		lastStatus = "error"
		lastError = fmt.Sprintf("agent %s has no maintenance hook", task.AgentID)
		slog.Error("maintenance skipped", "id", task.ID, "error", lastError)
	} else if err := m.Maintain(ctx, task.Routine); err != nil {
		lastStatus = "error"
		lastError = err.Error()
		slog.Error("maintenance failed", "id", task.ID, "error", err)
	} else {
		lastStatus = "success"
	}

	nextRun := schedule.CalculateNextRun(task.Schedule)

	if err := s.store.UpdateMaintenanceRun(task.ID, lastStatus, lastError, nextRun); err != nil {
		slog.Error("failed to update maintenance run", "id", task.ID, "error", err)
	}

	s.sink.Notify(natsbus.TopicEventsMaintenance, natsbus.Event{
		Kind:   "maintenance_executed",
		Source: "scheduler",
		Payload: map[string]any{
			"id":      task.ID,
			"agent":   task.AgentID,
			"routine": task.Routine,
			"status":  lastStatus,
		},
	})

	// One-off tasks with no next run are done for good.
	if nextRun == nil {
		slog.Info("no next run, completing maintenance task", "id", task.ID)
		if err := s.store.UpdateMaintenanceStatus(task.ID, "completed"); err != nil {
			slog.Error("failed to complete maintenance task", "id", task.ID, "error", err)
		}
	}
}

// Add registers an ad-hoc maintenance task outside the config seed path.
func (s *Scheduler) Add(agentID, routine, rawSchedule string) (*store.MaintenanceTask, error) {
	normalized, err := schedule.NormalizeSchedule(rawSchedule)
	if err != nil {
		return nil, err
	}
	task := &store.MaintenanceTask{
		ID:        uuid.NewString(),
		AgentID:   agentID,
		Name:      routine,
		Schedule:  normalized,
		Routine:   routine,
		Status:    "active",
		NextRunAt: schedule.CalculateNextRun(normalized),
	}
	if err := s.store.SaveMaintenanceTask(task); err != nil {
		return nil, err
	}
	return task, nil
}
