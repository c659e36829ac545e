package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"rankpilot/internal/models"
	"rankpilot/internal/telemetry"
)

type approveBriefResponse struct {
	Success    bool                `json:"success"`
	Data       models.ContentBrief `json:"data"`
	ApprovedAt time.Time           `json:"approved_at"`
}

func (s *Server) handleApproveBrief(w http.ResponseWriter, r *http.Request) {
	brief, approvedAt, err := s.approvals.ApproveBrief(r.Context(), chi.URLParam(r, "briefID"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	telemetry.BriefsApproved.Inc()
	writeJSON(w, http.StatusOK, approveBriefResponse{
		Success:    true,
		Data:       brief,
		ApprovedAt: approvedAt,
	})
}
