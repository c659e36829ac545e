// Package dispatch is the job submission gateway and status tracker: it
// validates inbound requests, creates agent runs and site audits in their
// initial states, hands work items to the dispatch queue, and serves status
// reads scoped to the owning agent.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rankpilot/internal/agents"
	"rankpilot/internal/apperr"
	"rankpilot/internal/models"
	"rankpilot/internal/queue"
	"rankpilot/internal/store"
	"rankpilot/internal/telemetry"
)

// Store is the slice of the record store the gateway depends on.
type Store interface {
	CreateAgentRun(ctx context.Context, p store.CreateAgentRunParams) (models.AgentRun, error)
	GetAgentRunForAgent(ctx context.Context, agentID, runID string) (models.AgentRun, error)
	UpdateAgentRunStatus(ctx context.Context, id, status string, attempts int, lastError *string) error
	GetClient(ctx context.Context, id string) (models.Client, error)
	CreateSiteAudit(ctx context.Context, p store.CreateSiteAuditParams) (models.SiteAudit, error)
	GetSiteAudit(ctx context.Context, id string) (models.SiteAudit, error)
	UpdateSiteAuditStatus(ctx context.Context, id, status string, attempts int, lastError *string) error
	AppendActivity(ctx context.Context, recordID, event, detail string) error
}

// Queue hands created records to the executor.
type Queue interface {
	Enqueue(ctx context.Context, item queue.Item, priority string, runAt time.Time) error
}

// Service implements submission and status tracking.
type Service struct {
	store    Store
	queue    Queue
	registry *agents.Registry
	now      func() time.Time
}

// NewService constructs the gateway.
func NewService(st Store, q Queue, registry *agents.Registry) *Service {
	return &Service{store: st, queue: q, registry: registry, now: time.Now}
}

// SubmitAgentRun creates one queued run for the named agent against the
// client and dispatches it. Two concurrent submissions for the same pair
// both succeed and create two independent runs.
func (s *Service) SubmitAgentRun(ctx context.Context, agentID, clientID string) (models.AgentRun, error) {
	if clientID == "" {
		return models.AgentRun{}, apperr.Invalid("clientId is required")
	}
	def, ok := s.registry.Lookup(agentID)
	if !ok {
		return models.AgentRun{}, apperr.NotFound("unknown agent %q", agentID)
	}

	now := s.now().UTC()
	run, err := s.store.CreateAgentRun(ctx, store.CreateAgentRunParams{
		AgentID:  def.ID,
		ClientID: clientID,
		Trigger:  models.TriggerManual,
		Input:    map[string]any{"clientId": clientID},
		BootLog: models.LogLine{
			Timestamp: now,
			Message:   "run submitted via api",
		},
	})
	if err != nil {
		return models.AgentRun{}, apperr.Upstream(err)
	}

	if err := s.queue.Enqueue(ctx, queue.Item{Kind: queue.KindAgentRun, ID: run.ID}, "default", now); err != nil {
		msg := fmt.Sprintf("dispatch failed: %s", err)
		_ = s.store.UpdateAgentRunStatus(ctx, run.ID, models.RunStatusFailed, run.Attempts, &msg)
		return models.AgentRun{}, apperr.Upstream(err)
	}

	_ = s.store.AppendActivity(ctx, run.ID, "run_submitted", fmt.Sprintf("agent=%s client=%s", def.ID, clientID))
	telemetry.RunsSubmitted.Inc()
	return run, nil
}

// SubmitAudit verifies the client exists, then creates one pending audit at
// the requested depth and dispatches it. The existence check and the insert
// are separate store calls; a client deleted between them can leave an
// orphaned audit.
func (s *Service) SubmitAudit(ctx context.Context, clientID, depth string) (models.SiteAudit, error) {
	if clientID == "" {
		return models.SiteAudit{}, apperr.Invalid("clientId is required")
	}
	if !models.ValidDepth(depth) {
		return models.SiteAudit{}, apperr.Invalid("depth must be one of %s", strings.Join(models.AuditDepths, ", "))
	}

	client, err := s.store.GetClient(ctx, clientID)
	if errors.Is(err, store.ErrNotFound) {
		return models.SiteAudit{}, apperr.NotFound("client %q not found", clientID)
	}
	if err != nil {
		return models.SiteAudit{}, apperr.Upstream(err)
	}

	audit, err := s.store.CreateSiteAudit(ctx, store.CreateSiteAuditParams{
		ClientID: client.ID,
		RawData: map[string]any{
			"depth":      depth,
			"target_url": client.URL,
		},
	})
	if err != nil {
		return models.SiteAudit{}, apperr.Upstream(err)
	}

	if err := s.queue.Enqueue(ctx, queue.Item{Kind: queue.KindSiteAudit, ID: audit.ID}, auditPriority(depth), s.now()); err != nil {
		msg := fmt.Sprintf("dispatch failed: %s", err)
		_ = s.store.UpdateSiteAuditStatus(ctx, audit.ID, models.AuditStatusFailed, audit.Attempts, &msg)
		return models.SiteAudit{}, apperr.Upstream(err)
	}

	_ = s.store.AppendActivity(ctx, audit.ID, "audit_submitted", fmt.Sprintf("client=%s depth=%s", client.ID, depth))
	telemetry.AuditsSubmitted.Inc()
	return audit, nil
}

// GetAgentRunStatus returns the current snapshot of a run, scoped by both
// the run id and the agent. A run owned by a different agent yields the same
// not-found as a missing run.
func (s *Service) GetAgentRunStatus(ctx context.Context, agentID, runID string) (models.AgentRun, error) {
	if runID == "" {
		return models.AgentRun{}, apperr.Invalid("runId is required")
	}
	if _, ok := s.registry.Lookup(agentID); !ok {
		return models.AgentRun{}, apperr.NotFound("unknown agent %q", agentID)
	}
	run, err := s.store.GetAgentRunForAgent(ctx, agentID, runID)
	if errors.Is(err, store.ErrNotFound) {
		return models.AgentRun{}, apperr.NotFound("run %q not found", runID)
	}
	if err != nil {
		return models.AgentRun{}, apperr.Upstream(err)
	}
	return run, nil
}

// GetAudit returns the current snapshot of a site audit.
func (s *Service) GetAudit(ctx context.Context, auditID string) (models.SiteAudit, error) {
	if auditID == "" {
		return models.SiteAudit{}, apperr.Invalid("auditId is required")
	}
	audit, err := s.store.GetSiteAudit(ctx, auditID)
	if errors.Is(err, store.ErrNotFound) {
		return models.SiteAudit{}, apperr.NotFound("audit %q not found", auditID)
	}
	if err != nil {
		return models.SiteAudit{}, apperr.Upstream(err)
	}
	return audit, nil
}

// auditPriority maps depth to a dispatch priority: quick scans jump the
// queue, deep crawls yield.
func auditPriority(depth string) string {
	switch depth {
	case models.DepthQuick:
		return "high"
	case models.DepthDeep:
		return "low"
	default:
		return "default"
	}
}
