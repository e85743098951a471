package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mantohq/manto/internal/agent"
	"github.com/mantohq/manto/internal/schedule"
)

func (s *Server) registerAPI(mux *http.ServeMux) {
	// Missions
	mux.HandleFunc("POST /api/missions", s.createMission)
	mux.HandleFunc("GET /api/missions", s.listMissions)
	mux.HandleFunc("GET /api/missions/{id}", s.getMission)
	mux.HandleFunc("GET /api/missions/{id}/report", s.getMissionReport)

	// Agents
	mux.HandleFunc("GET /api/agents", s.listAgents)

	// Maintenance
	mux.HandleFunc("GET /api/maintenance", s.listMaintenance)
	mux.HandleFunc("POST /api/maintenance", s.createMaintenance)
	mux.HandleFunc("DELETE /api/maintenance/{id}", s.deleteMaintenance)

	// System
	mux.HandleFunc("GET /api/health", s.getHealth)
	mux.HandleFunc("GET /api/status", s.getStatus)
}

func (s *Server) createMission(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Goal string `json:"goal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	run, err := s.coord.Submit(r.Context(), body.Goal)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusAccepted)
	jsonResponse(w, run)
}

func (s *Server) listMissions(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListMissionRuns(50)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, runs)
}

func (s *Server) getMission(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetMissionRun(r.PathValue("id"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if run == nil {
		jsonError(w, "mission not found", http.StatusNotFound)
		return
	}
	jsonResponse(w, run)
}

func (s *Server) getMissionReport(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetMissionRun(r.PathValue("id"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if run == nil {
		jsonError(w, "mission not found", http.StatusNotFound)
		return
	}
	if run.Report == "" {
		jsonError(w, "report not ready", http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	fmt.Fprint(w, run.Report)
}

func (s *Server) listAgents(w http.ResponseWriter, r *http.Request) {
	metrics, _ := s.store.ListMetrics()
	byAgent := make(map[string]struct {
		executions int64
		rate       float64
	}, len(metrics))
	for _, m := range metrics {
		byAgent[m.AgentID] = struct {
			executions int64
			rate       float64
		}{m.Executions, m.SuccessRate()}
	}

	agents := s.registry.Agents()
	out := make([]map[string]any, 0, len(agents))
	for _, a := range agents {
		status := string(agent.StatusIdle)
		if sr, ok := a.(agent.StatusReporter); ok {
			status = string(sr.Status())
		}
		entry := map[string]any{
			"id":         a.ID(),
			"name":       a.Name(),
			"capability": a.Capability(),
			"status":     status,
		}
		if m, ok := byAgent[a.ID()]; ok {
			entry["executions"] = m.executions
			entry["success_rate"] = m.rate
		}
		out = append(out, entry)
	}
	jsonResponse(w, out)
}

func (s *Server) listMaintenance(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.store.ListMaintenanceTasks()
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]map[string]any, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, map[string]any{
			"id":          t.ID,
			"agent_id":    t.AgentID,
			"routine":     t.Routine,
			"schedule":    schedule.Describe(t.Schedule),
			"status":      t.Status,
			"next_run_at": t.NextRunAt,
			"last_status": t.LastStatus,
			"last_error":  t.LastError,
		})
	}
	jsonResponse(w, out)
}

func (s *Server) createMaintenance(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AgentID  string `json:"agent_id"`
		Routine  string `json:"routine"`
		Schedule string `json:"schedule"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if body.AgentID == "" || body.Routine == "" || body.Schedule == "" {
		jsonError(w, "agent_id, routine and schedule are required", http.StatusBadRequest)
		return
	}
	if _, ok := s.registry.Maintainer(body.AgentID); !ok {
		jsonError(w, "agent has no maintenance hook: "+body.AgentID, http.StatusBadRequest)
		return
	}

	task, err := s.scheduler.Add(body.AgentID, body.Routine, body.Schedule)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	jsonResponse(w, task)
}

func (s *Server) deleteMaintenance(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteMaintenanceTask(r.PathValue("id")); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]string{"status": "ok"})
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]string{"status": "ok", "version": s.version})
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	runs, _ := s.store.ListMissionRuns(10)

	running := 0
	for _, run := range runs {
		if run.Status == "running" {
			running++
		}
	}

	jsonResponse(w, map[string]any{
		"version":         s.version,
		"uptime":          time.Since(s.startedAt).Round(time.Second).String(),
		"agents":          len(s.registry.Agents()),
		"recent_missions": runs,
		"running":         running,
	})
}

func jsonResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
