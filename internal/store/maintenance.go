package store

import (
	"database/sql"
	"fmt"
	"time"
)

// MaintenanceTask is a periodic background routine owned by one agent,
// polled and executed by the scheduler.
type MaintenanceTask struct {
	ID         string     `json:"id"`
	AgentID    string     `json:"agent_id"`
	Name       string     `json:"name"`
	Schedule   string     `json:"schedule"`
	Routine    string     `json:"routine"`
	Status     string     `json:"status"`
	NextRunAt  *time.Time `json:"next_run_at,omitempty"`
	LastRunAt  *time.Time `json:"last_run_at,omitempty"`
	LastStatus string     `json:"last_status,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func scanMaintenanceTask(scanner interface{ Scan(dest ...any) error }) (*MaintenanceTask, error) {
	t := &MaintenanceTask{}
	var lastStatus, lastError sql.NullString
	err := scanner.Scan(&t.ID, &t.AgentID, &t.Name, &t.Schedule, &t.Routine, &t.Status,
		&t.NextRunAt, &t.LastRunAt, &lastStatus, &lastError, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.LastStatus = lastStatus.String
	t.LastError = lastError.String
	return t, nil
}

func (s *Store) SaveMaintenanceTask(t *MaintenanceTask) error {
	_, err := s.db.Exec(`
		INSERT INTO maintenance_tasks (id, agent_id, name, schedule, routine, status, next_run_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			agent_id = excluded.agent_id,
			name = excluded.name,
			schedule = excluded.schedule,
			routine = excluded.routine,
			status = excluded.status,
			next_run_at = excluded.next_run_at`,
		t.ID, t.AgentID, t.Name, t.Schedule, t.Routine, t.Status, t.NextRunAt)
	if err != nil {
		return fmt.Errorf("save maintenance task: %w", err)
	}
	return nil
}

func (s *Store) ListMaintenanceTasks() ([]MaintenanceTask, error) {
	rows, err := s.db.Query(`
		SELECT id, agent_id, name, schedule, routine, status,
		       next_run_at, last_run_at, last_status, last_error, created_at
		FROM maintenance_tasks ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list maintenance tasks: %w", err)
	}
	defer rows.Close()

	var tasks []MaintenanceTask
	for rows.Next() {
		t, err := scanMaintenanceTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan maintenance task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *Store) GetDueMaintenanceTasks(now time.Time) ([]MaintenanceTask, error) {
	rows, err := s.db.Query(`
		SELECT id, agent_id, name, schedule, routine, status,
		       next_run_at, last_run_at, last_status, last_error, created_at
		FROM maintenance_tasks
		WHERE status = 'active' AND next_run_at <= ?
		ORDER BY next_run_at`, now)
	if err != nil {
		return nil, fmt.Errorf("get due maintenance tasks: %w", err)
	}
	defer rows.Close()

	var tasks []MaintenanceTask
	for rows.Next() {
		t, err := scanMaintenanceTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan maintenance task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *Store) UpdateMaintenanceRun(id, lastStatus, lastError string, nextRunAt *time.Time) error {
	_, err := s.db.Exec(`
		UPDATE maintenance_tasks
		SET last_run_at = CURRENT_TIMESTAMP, last_status = ?, last_error = ?, next_run_at = ?
		WHERE id = ?`, lastStatus, lastError, nextRunAt, id)
	return err
}

func (s *Store) UpdateMaintenanceStatus(id, status string) error {
	_, err := s.db.Exec(`UPDATE maintenance_tasks SET status = ? WHERE id = ?`, status, id)
	return err
}

func (s *Store) DeleteMaintenanceTask(id string) error {
	_, err := s.db.Exec(`DELETE FROM maintenance_tasks WHERE id = ?`, id)
	return err
}
