package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type Agent struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Capability  string    `json:"capability"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Metrics is an agent's execution history: the raw material for
// historical-success-rate confidence.
type Metrics struct {
	AgentID    string    `json:"agent_id"`
	Executions int64     `json:"executions"`
	Successes  int64     `json:"successes"`
	Failures   int64     `json:"failures"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SuccessRate returns successes/executions, or 0 with no history.
func (m Metrics) SuccessRate() float64 {
	if m.Executions == 0 {
		return 0
	}
	return float64(m.Successes) / float64(m.Executions)
}

func (s *Store) SaveAgent(a *Agent) error {
	_, err := s.db.Exec(`
		INSERT INTO agents (id, name, capability, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			capability = excluded.capability,
			description = excluded.description,
			updated_at = CURRENT_TIMESTAMP`,
		a.ID, a.Name, a.Capability, a.Description)
	if err != nil {
		return fmt.Errorf("save agent: %w", err)
	}
	return nil
}

func (s *Store) GetAgent(id string) (*Agent, error) {
	a := &Agent{}
	var description sql.NullString
	err := s.db.QueryRow(`SELECT id, name, capability, description, created_at, updated_at FROM agents WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &a.Capability, &description, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get agent: %w", err)
	}
	a.Description = description.String
	return a, nil
}

func (s *Store) ListAgents() ([]Agent, error) {
	rows, err := s.db.Query(`SELECT id, name, capability, description, created_at, updated_at FROM agents ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []Agent
	for rows.Next() {
		var a Agent
		var description sql.NullString
		if err := rows.Scan(&a.ID, &a.Name, &a.Capability, &description, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		a.Description = description.String
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// DeleteAgentsNotIn removes agent rows whose ids no longer appear in the
// registered set.
func (s *Store) DeleteAgentsNotIn(ids []string) error {
	if len(ids) == 0 {
		_, err := s.db.Exec(`DELETE FROM agents`)
		return err
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	_, err := s.db.Exec(`DELETE FROM agents WHERE id NOT IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("delete stale agents: %w", err)
	}
	return nil
}

// RecordExecution bumps an agent's execution counters after a dispatch.
func (s *Store) RecordExecution(agentID string, succeeded bool) error {
	success, failure := 0, 1
	if succeeded {
		success, failure = 1, 0
	}
	_, err := s.db.Exec(`
		INSERT INTO agent_metrics (agent_id, executions, successes, failures)
		VALUES (?, 1, ?, ?)
		ON CONFLICT(agent_id) DO UPDATE SET
			executions = executions + 1,
			successes = successes + excluded.successes,
			failures = failures + excluded.failures,
			updated_at = CURRENT_TIMESTAMP`,
		agentID, success, failure)
	if err != nil {
		return fmt.Errorf("record execution: %w", err)
	}
	return nil
}

func (s *Store) GetMetrics(agentID string) (*Metrics, error) {
	m := &Metrics{}
	err := s.db.QueryRow(`SELECT agent_id, executions, successes, failures, updated_at FROM agent_metrics WHERE agent_id = ?`, agentID).
		Scan(&m.AgentID, &m.Executions, &m.Successes, &m.Failures, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get metrics: %w", err)
	}
	return m, nil
}

func (s *Store) ListMetrics() ([]Metrics, error) {
	rows, err := s.db.Query(`SELECT agent_id, executions, successes, failures, updated_at FROM agent_metrics ORDER BY agent_id`)
	if err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	defer rows.Close()

	var all []Metrics
	for rows.Next() {
		var m Metrics
		if err := rows.Scan(&m.AgentID, &m.Executions, &m.Successes, &m.Failures, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan metrics: %w", err)
		}
		all = append(all, m)
	}
	return all, rows.Err()
}
