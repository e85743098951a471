package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// MissionRun is the persisted lifecycle of one goal.
type MissionRun struct {
	ID          string          `json:"id"`
	Goal        string          `json:"goal"`
	Status      string          `json:"status"` // running, synthesized, aborted
	Plan        json.RawMessage `json:"plan,omitempty"`
	Results     json.RawMessage `json:"results,omitempty"`
	Report      string          `json:"report,omitempty"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

func (s *Store) SaveMissionRun(run *MissionRun) error {
	_, err := s.db.Exec(`
		INSERT INTO mission_runs (id, goal, status, plan)
		VALUES (?, ?, ?, ?)`,
		run.ID, run.Goal, run.Status, nullableJSON(run.Plan))
	if err != nil {
		return fmt.Errorf("save mission run: %w", err)
	}
	return nil
}

// UpdateMissionPlan attaches the decomposed plan to a running mission.
func (s *Store) UpdateMissionPlan(id string, plan json.RawMessage) error {
	_, err := s.db.Exec(`UPDATE mission_runs SET plan = ? WHERE id = ?`, nullableJSON(plan), id)
	if err != nil {
		return fmt.Errorf("update mission plan: %w", err)
	}
	return nil
}

// CompleteMissionRun records the terminal state of a run.
func (s *Store) CompleteMissionRun(id, status string, results json.RawMessage, report, errMsg string) error {
	_, err := s.db.Exec(`
		UPDATE mission_runs
		SET status = ?, results = ?, report = ?, error = ?, completed_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		status, nullableJSON(results), report, errMsg, id)
	if err != nil {
		return fmt.Errorf("complete mission run: %w", err)
	}
	return nil
}

func (s *Store) GetMissionRun(id string) (*MissionRun, error) {
	row := s.db.QueryRow(`
		SELECT id, goal, status, plan, results, report, error, started_at, completed_at
		FROM mission_runs WHERE id = ?`, id)
	run, err := scanMissionRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mission run: %w", err)
	}
	return run, nil
}

func (s *Store) ListMissionRuns(limit int) ([]MissionRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, goal, status, plan, results, report, error, started_at, completed_at
		FROM mission_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list mission runs: %w", err)
	}
	defer rows.Close()

	var runs []MissionRun
	for rows.Next() {
		run, err := scanMissionRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mission run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func scanMissionRun(scanner interface{ Scan(dest ...any) error }) (*MissionRun, error) {
	run := &MissionRun{}
	var plan, results, report, errMsg sql.NullString
	err := scanner.Scan(&run.ID, &run.Goal, &run.Status, &plan, &results, &report, &errMsg,
		&run.StartedAt, &run.CompletedAt)
	if err != nil {
		return nil, err
	}
	if plan.Valid {
		run.Plan = json.RawMessage(plan.String)
	}
	if results.Valid {
		run.Results = json.RawMessage(results.String)
	}
	run.Report = report.String
	run.Error = errMsg.String
	return run, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
