// Package api wires the HTTP control plane: submission, status tracking,
// brief approval, aggregation, and the auth gate.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"rankpilot/internal/auth"
	"rankpilot/internal/config"
	"rankpilot/internal/insights"
	"rankpilot/internal/marketing"
	"rankpilot/internal/models"
	"rankpilot/internal/telemetry"
)

// Dispatcher is the job submission gateway and status tracker.
type Dispatcher interface {
	SubmitAgentRun(ctx context.Context, agentID, clientID string) (models.AgentRun, error)
	SubmitAudit(ctx context.Context, clientID, depth string) (models.SiteAudit, error)
	GetAgentRunStatus(ctx context.Context, agentID, runID string) (models.AgentRun, error)
	GetAudit(ctx context.Context, auditID string) (models.SiteAudit, error)
}

// Approver is the content brief approval state machine.
type Approver interface {
	ApproveBrief(ctx context.Context, briefID string) (models.ContentBrief, time.Time, error)
}

// Aggregator serves the derived views.
type Aggregator interface {
	ListUsersWithBusinessCounts(ctx context.Context) ([]models.UserWithBusinessCount, error)
	FetchSearchPerformance(ctx context.Context, req insights.SearchPerformanceRequest) (marketing.SearchAnalyticsResponse, error)
	FetchCampaignSummary(ctx context.Context) (insights.CampaignSummary, error)
}

// DLQReader peeks at dead-lettered work items.
type DLQReader interface {
	DLQPeek(ctx context.Context, count int64) ([]string, error)
}

// Limiter throttles submissions per caller subject.
type Limiter interface {
	AllowSubject(ctx context.Context, subject string) (bool, float64, error)
}

// Server wires HTTP handlers for the control plane.
type Server struct {
	cfg       config.Config
	logger    *slog.Logger
	auth      *auth.Manager
	dispatch  Dispatcher
	approvals Approver
	insights  Aggregator
	dlq       DLQReader
	limiter   Limiter
}

// Deps holds all dependencies for constructing a Server. Limiter and DLQ
// are nil-safe.
type Deps struct {
	Config    config.Config
	Logger    *slog.Logger
	Auth      *auth.Manager
	Dispatch  Dispatcher
	Approvals Approver
	Insights  Aggregator
	DLQ       DLQReader
	Limiter   Limiter
}

// New constructs the API server.
func New(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:       d.Config,
		logger:    logger,
		auth:      d.Auth,
		dispatch:  d.Dispatch,
		approvals: d.Approvals,
		insights:  d.Insights,
		dlq:       d.DLQ,
		limiter:   d.Limiter,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(s.identityMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Mount("/metrics", telemetry.Handler())

	r.Route("/api", func(r chi.Router) {
		if s.cfg.Env == "dev" {
			r.Post("/auth/token", s.handleIssueToken)
		}

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/me", s.handleMe)
			r.Post("/agents/{agentID}/run", s.handleSubmitRun)
			r.Get("/agents/{agentID}/status", s.handleRunStatus)
			r.Post("/audits", s.handleSubmitAudit)
			r.Get("/audits/{auditID}", s.handleGetAudit)
			r.Post("/briefs/{briefID}/approve", s.handleApproveBrief)
			r.Post("/search-performance", s.handleSearchPerformance)
			r.Get("/campaigns", s.handleCampaigns)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)

			r.Get("/users", s.handleListUsers)
			r.Get("/dlq", s.handleDLQ)
		})
	})
	return r
}

// allowSubmission applies the per-subject rate limit. Returns false after
// writing the 429 response.
func (s *Server) allowSubmission(w http.ResponseWriter, r *http.Request) bool {
	if s.limiter == nil {
		return true
	}
	id := IdentityFromContext(r.Context())
	allowed, _, err := s.limiter.AllowSubject(r.Context(), id.Subject)
	if err != nil {
		s.logger.Error("rate limiter unavailable", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorEnvelope{
			Success: false,
			Error:   errorDetail{Code: "INTERNAL_ERROR", Message: "rate limiter unavailable"},
		})
		return false
	}
	if !allowed {
		telemetry.RateLimitRejects.Inc()
		writeJSON(w, http.StatusTooManyRequests, errorEnvelope{
			Success: false,
			Error:   errorDetail{Code: "RATE_LIMITED", Message: "submission rate limit exceeded"},
		})
		return false
	}
	return true
}
