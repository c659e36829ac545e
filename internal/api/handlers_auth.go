package api

import (
	"encoding/json"
	"net/http"
	"time"

	"rankpilot/internal/apperr"
	"rankpilot/internal/auth"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, IdentityFromContext(r.Context()))
}

type issueTokenRequest struct {
	Subject string `json:"subject"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

type issueTokenData struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleIssueToken mints a token for local development. The route is only
// mounted when APP_ENV is dev.
func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req issueTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAppError(w, apperr.Invalid("invalid json body"))
		return
	}
	if req.Subject == "" {
		writeAppError(w, apperr.Invalid("subject is required"))
		return
	}
	token, expiresAt, err := s.auth.Issue(auth.Identity{
		Subject: req.Subject,
		Email:   req.Email,
		IsAdmin: req.IsAdmin,
	})
	if err != nil {
		writeAppError(w, apperr.Upstream(err))
		return
	}
	writeData(w, http.StatusOK, issueTokenData{Token: token, ExpiresAt: expiresAt})
}
