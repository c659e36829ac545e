package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rankpilot/internal/apperr"
)

type submitRunRequest struct {
	ClientID string `json:"clientId"`
}

// submitRunResponse acknowledges submission. Status "started" reflects
// acceptance, not execution state; callers poll the status endpoint for
// real progress.
type submitRunResponse struct {
	Success bool   `json:"success"`
	RunID   string `json:"runId"`
	AgentID string `json:"agentId"`
	Status  string `json:"status"`
}

func (s *Server) handleSubmitRun(w http.ResponseWriter, r *http.Request) {
	if !s.allowSubmission(w, r) {
		return
	}
	var req submitRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAppError(w, apperr.Invalid("invalid json body"))
		return
	}
	agentID := chi.URLParam(r, "agentID")

	run, err := s.dispatch.SubmitAgentRun(r.Context(), agentID, req.ClientID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submitRunResponse{
		Success: true,
		RunID:   run.ID,
		AgentID: run.AgentID,
		Status:  "started",
	})
}

func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	runID := r.URL.Query().Get("runId")

	run, err := s.dispatch.GetAgentRunStatus(r.Context(), agentID, runID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeData(w, http.StatusOK, run)
}

type submitAuditRequest struct {
	ClientID string `json:"clientId"`
	Depth    string `json:"depth"`
}

type submitAuditResponse struct {
	Success  bool   `json:"success"`
	AuditID  string `json:"auditId"`
	ClientID string `json:"clientId"`
	Depth    string `json:"depth"`
	Status   string `json:"status"`
}

func (s *Server) handleSubmitAudit(w http.ResponseWriter, r *http.Request) {
	if !s.allowSubmission(w, r) {
		return
	}
	var req submitAuditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAppError(w, apperr.Invalid("invalid json body"))
		return
	}

	audit, err := s.dispatch.SubmitAudit(r.Context(), req.ClientID, req.Depth)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submitAuditResponse{
		Success:  true,
		AuditID:  audit.ID,
		ClientID: audit.ClientID,
		Depth:    req.Depth,
		Status:   audit.Status,
	})
}

func (s *Server) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	audit, err := s.dispatch.GetAudit(r.Context(), chi.URLParam(r, "auditID"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeData(w, http.StatusOK, audit)
}

func (s *Server) handleDLQ(w http.ResponseWriter, r *http.Request) {
	if s.dlq == nil {
		writeData(w, http.StatusOK, map[string]any{"items": []string{}})
		return
	}
	items, err := s.dlq.DLQPeek(r.Context(), 100)
	if err != nil {
		writeAppError(w, apperr.Upstream(err))
		return
	}
	if items == nil {
		items = []string{}
	}
	writeData(w, http.StatusOK, map[string]any{"items": items})
}
