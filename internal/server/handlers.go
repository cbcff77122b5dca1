package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	coreagent "github.com/agisilaos/asana-planner/internal/agent"
	"github.com/agisilaos/asana-planner/internal/api"
	appagent "github.com/agisilaos/asana-planner/internal/app/agent"
	appprojects "github.com/agisilaos/asana-planner/internal/app/projects"
	"github.com/agisilaos/asana-planner/internal/app/reports"
	apptasks "github.com/agisilaos/asana-planner/internal/app/tasks"
	"github.com/agisilaos/asana-planner/internal/audit"
)

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type executeResponse struct {
	Success bool                    `json:"success"`
	Results []appagent.ActionResult `json:"results"`
	Summary appagent.BatchSummary   `json:"summary"`
	AuditID string                  `json:"audit_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	body := errorBody{Error: msg}
	if err != nil {
		body.Details = err.Error()
	}
	writeJSON(w, status, body)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCredentialStatus(w http.ResponseWriter, r *http.Request) {
	creds := credentialsFromRequest(r)
	writeJSON(w, http.StatusOK, map[string]bool{
		"configured":   creds.Token != "",
		"hasWorkspace": creds.WorkspaceGID != "",
		"hasProject":   creds.ProjectGID != "",
		"hasUser":      creds.UserGID != "",
	})
}

func (s *Server) handleWorkspaces(w http.ResponseWriter, r *http.Request) {
	creds := credentialsFromRequest(r)
	if creds.Token == "" {
		writeError(w, http.StatusBadRequest, "Please configure token first", nil)
		return
	}
	items, err := api.ListAll[api.Workspace](r.Context(), s.client(creds), appprojects.WorkspacesPath, appprojects.BuildWorkspacesQuery())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "list workspaces failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch workspaces", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "workspaces": items})
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	creds := credentialsFromRequest(r)
	path, err := appprojects.ListPath(creds.WorkspaceGID)
	if creds.Token == "" || err != nil {
		writeError(w, http.StatusBadRequest, "Please configure token and workspace first", nil)
		return
	}
	archived, _ := strconv.ParseBool(r.URL.Query().Get("archived"))
	items, err := api.ListAll[api.Project](r.Context(), s.client(creds), path, appprojects.BuildListQuery(archived))
	if err != nil {
		s.logger.ErrorContext(r.Context(), "list projects failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch projects", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "projects": items})
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	tasks, ok := s.fetchTasks(w, r, apptasks.ListFieldsFull, "Failed to fetch tasks")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "tasks": tasks, "count": len(tasks)})
}

func (s *Server) handleWeeklyPlan(w http.ResponseWriter, r *http.Request) {
	tasks, ok := s.fetchTasks(w, r, apptasks.ListFieldsReport, "Failed to generate plan")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "plan": reports.BuildWeeklyPlan(tasks, s.opts.Now())})
}

func (s *Server) handleBrainstorm(w http.ResponseWriter, r *http.Request) {
	tasks, ok := s.fetchTasks(w, r, apptasks.ListFieldsReport, "Failed to generate insights")
	if !ok {
		return
	}
	insights := reports.BuildInsights(tasks, s.opts.Now())
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"analysis":       insights.Analysis,
		"suggestions":    insights.Suggestions,
		"taskIdeas":      insights.TaskIdeas,
		"completionRate": insights.CompletionRate,
	})
}

// fetchTasks writes the error response itself and reports whether the
// handler should continue. Credentials without any task scope yield an
// empty list.
func (s *Server) fetchTasks(w http.ResponseWriter, r *http.Request, fields, failure string) ([]api.Task, bool) {
	creds := credentialsFromRequest(r)
	if creds.Token == "" {
		writeError(w, http.StatusBadRequest, "Please configure credentials first", nil)
		return nil, false
	}
	tasks, err := apptasks.Fetch(r.Context(), s.client(creds), apptasks.ListInput{
		WorkspaceGID: creds.WorkspaceGID,
		ProjectGID:   creds.ProjectGID,
		UserGID:      creds.UserGID,
		Fields:       fields,
	})
	if errors.Is(err, apptasks.ErrNoTaskScope) {
		return []api.Task{}, true
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "list tasks failed", "error", err)
		writeError(w, http.StatusInternalServerError, failure, err)
		return nil, false
	}
	if tasks == nil {
		tasks = []api.Task{}
	}
	return tasks, true
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	creds := credentialsFromRequest(r)
	if creds.Token == "" {
		writeError(w, http.StatusBadRequest, "Please configure credentials first", nil)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Could not read request body", err)
		return
	}
	batch, err := coreagent.ParseBatch(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid action batch", err)
		return
	}
	results, err := s.executor().ExecuteBatch(r.Context(), batch, creds)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid action batch", err)
		return
	}
	resp := executeResponse{Success: true, Results: results, Summary: appagent.Summarize(results)}
	if s.opts.Audit != nil {
		resp.AuditID = s.record(r, creds, body, resp)
	}
	writeJSON(w, http.StatusOK, resp)
}

// record logs its own failures and returns "" instead of failing the request.
func (s *Server) record(r *http.Request, creds coreagent.Credentials, request []byte, resp executeResponse) string {
	results, err := json.Marshal(resp.Results)
	if err != nil {
		s.logger.WarnContext(r.Context(), "encode results for audit failed", "error", err)
		return ""
	}
	entry, err := s.opts.Audit.Record(r.Context(), audit.Entry{
		Source:       audit.SourceServer,
		WorkspaceGID: creds.WorkspaceGID,
		ProjectGID:   creds.ProjectGID,
		Request:      json.RawMessage(request),
		Results:      results,
		Total:        resp.Summary.Total,
		Failed:       resp.Summary.Failed,
	})
	if err != nil {
		s.logger.WarnContext(r.Context(), "audit record failed", "error", err)
		return ""
	}
	return entry.ID
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.opts.Audit == nil {
		writeError(w, http.StatusNotFound, "Audit log is not configured", nil)
		return
	}
	limit := audit.DefaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", nil)
			return
		}
		limit = n
	}
	entries, err := s.opts.Audit.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read audit log", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "entries": entries})
}
