package api

import (
	"encoding/json"
	"net/http"

	"rankpilot/internal/apperr"
	"rankpilot/internal/insights"
	"rankpilot/internal/models"
)

type listUsersResponse struct {
	Success bool                           `json:"success"`
	Data    []models.UserWithBusinessCount `json:"data"`
	Meta    listMeta                       `json:"meta"`
}

type listMeta struct {
	Total int `json:"total"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.insights.ListUsersWithBusinessCounts(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	if users == nil {
		users = []models.UserWithBusinessCount{}
	}
	writeJSON(w, http.StatusOK, listUsersResponse{
		Success: true,
		Data:    users,
		Meta:    listMeta{Total: len(users)},
	})
}

func (s *Server) handleSearchPerformance(w http.ResponseWriter, r *http.Request) {
	var req insights.SearchPerformanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAppError(w, apperr.Invalid("invalid json body"))
		return
	}
	resp, err := s.insights.FetchSearchPerformance(r.Context(), req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeData(w, http.StatusOK, resp)
}

func (s *Server) handleCampaigns(w http.ResponseWriter, r *http.Request) {
	summary, err := s.insights.FetchCampaignSummary(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeData(w, http.StatusOK, summary)
}
