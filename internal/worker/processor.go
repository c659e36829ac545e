// Package worker is the executor: it consumes dispatched work items and
// advances agent runs and site audits through their status transitions.
package worker

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"rankpilot/internal/config"
	"rankpilot/internal/models"
	"rankpilot/internal/queue"
	"rankpilot/internal/store"
	"rankpilot/internal/telemetry"
	"rankpilot/internal/workflow"
)

// Processor drives the executor loop.
type Processor struct {
	cfg      config.Config
	queue    *queue.RedisQueue
	store    *store.Store
	runs     *AgentRunner
	audits   *AuditRunner
	workerID string
}

// NewProcessor creates a processor. workerID is recorded in the activity
// trail for attribution.
func NewProcessor(cfg config.Config, q *queue.RedisQueue, st *store.Store, runs *AgentRunner, audits *AuditRunner, workerID string) *Processor {
	return &Processor{
		cfg:      cfg,
		queue:    q,
		store:    st,
		runs:     runs,
		audits:   audits,
		workerID: workerID,
	}
}

// Run starts the main executor loop until context cancellation.
func (p *Processor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, _ = p.queue.PromoteScheduled(ctx, time.Now(), int64(p.cfg.ScheduledBatchSize))
		if reclaimed, _ := p.queue.RequeueExpired(ctx, time.Now(), 100); len(reclaimed) > 0 {
			telemetry.InFlightGauge.Sub(float64(len(reclaimed)))
			for _, item := range reclaimed {
				p.resetExpired(ctx, item)
			}
		}
		if depth, err := p.queue.ReadyDepth(ctx); err == nil {
			telemetry.QueueDepthGauge.Set(float64(depth))
		}

		item, err := p.queue.DequeueWithLease(ctx)
		if err != nil || item.ID == "" {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.cfg.WorkerPollInterval):
			}
			continue
		}

		switch item.Kind {
		case queue.KindAgentRun:
			p.processRun(ctx, item)
		case queue.KindSiteAudit:
			p.processAudit(ctx, item)
		default:
			_ = p.queue.Ack(ctx, item)
		}
	}
}

// resetExpired puts a record whose lease timed out back into its dispatch
// state so the next dequeue can start it again.
func (p *Processor) resetExpired(ctx context.Context, item queue.Item) {
	switch item.Kind {
	case queue.KindAgentRun:
		run, err := p.store.GetAgentRun(ctx, item.ID)
		if err != nil {
			return
		}
		if next, err := workflow.NextRunStatus(run.Status, workflow.OpRetry); err == nil {
			_ = p.store.UpdateAgentRunStatus(ctx, run.ID, next, run.Attempts, run.LastError)
		}
	case queue.KindSiteAudit:
		audit, err := p.store.GetSiteAudit(ctx, item.ID)
		if err != nil {
			return
		}
		if next, err := workflow.NextAuditStatus(audit.Status, workflow.OpRetry); err == nil {
			_ = p.store.UpdateSiteAuditStatus(ctx, audit.ID, next, audit.Attempts, audit.LastError)
		}
	}
}

func (p *Processor) processRun(ctx context.Context, item queue.Item) {
	run, err := p.store.GetAgentRun(ctx, item.ID)
	if err != nil {
		_ = p.queue.Ack(ctx, item)
		return
	}
	next, err := workflow.NextRunStatus(run.Status, workflow.OpStart)
	if err != nil {
		// Terminal or already running; nothing to do for this item.
		_ = p.queue.Ack(ctx, item)
		return
	}
	_ = p.store.UpdateAgentRunStatus(ctx, run.ID, next, run.Attempts, nil)
	telemetry.InFlightGauge.Inc()
	defer telemetry.InFlightGauge.Dec()

	if err := p.runs.Execute(ctx, run); err != nil {
		p.handleRunFailure(ctx, item, run, err)
		return
	}
	_ = p.queue.Ack(ctx, item)
	_ = p.store.AppendActivity(ctx, run.ID, "run_completed", "worker="+p.workerID)
	telemetry.ExecutorSuccess.Inc()
}

func (p *Processor) handleRunFailure(ctx context.Context, item queue.Item, run models.AgentRun, execErr error) {
	attempts := run.Attempts + 1
	msg := execErr.Error()
	_ = p.queue.Ack(ctx, item)

	if attempts >= p.cfg.MaxAttempts {
		_ = p.store.UpdateAgentRunStatus(ctx, run.ID, models.RunStatusFailed, attempts, &msg)
		_ = p.queue.DLQPush(ctx, item)
		_ = p.store.AppendActivity(ctx, run.ID, "run_dead_letter", msg)
		telemetry.ExecutorDeadEnds.Inc()
		return
	}

	nextRun := time.Now().Add(backoffWithJitter(p.cfg.BackoffInitial, p.cfg.BackoffMax, attempts))
	_ = p.store.UpdateAgentRunStatus(ctx, run.ID, models.RunStatusQueued, attempts, &msg)
	_ = p.queue.Schedule(ctx, item, "default", nextRun)
	_ = p.store.AppendActivity(ctx, run.ID, "run_retry_scheduled",
		fmt.Sprintf("next_run=%s attempts=%d", nextRun.UTC().Format(time.RFC3339), attempts))
	telemetry.ExecutorFailures.Inc()
}

func (p *Processor) processAudit(ctx context.Context, item queue.Item) {
	audit, err := p.store.GetSiteAudit(ctx, item.ID)
	if err != nil {
		_ = p.queue.Ack(ctx, item)
		return
	}
	next, err := workflow.NextAuditStatus(audit.Status, workflow.OpStart)
	if err != nil {
		_ = p.queue.Ack(ctx, item)
		return
	}
	_ = p.store.UpdateSiteAuditStatus(ctx, audit.ID, next, audit.Attempts, nil)
	telemetry.InFlightGauge.Inc()
	defer telemetry.InFlightGauge.Dec()

	// Deep crawls can outlive the default lease.
	if depthOf(audit) == models.DepthDeep {
		_ = p.queue.ExtendLease(ctx, item, 2*p.cfg.VisibilityTimeout)
	}

	if err := p.audits.Execute(ctx, audit); err != nil {
		p.handleAuditFailure(ctx, item, audit, err)
		return
	}
	_ = p.queue.Ack(ctx, item)
	_ = p.store.AppendActivity(ctx, audit.ID, "audit_completed", "worker="+p.workerID)
	telemetry.ExecutorSuccess.Inc()
}

func (p *Processor) handleAuditFailure(ctx context.Context, item queue.Item, audit models.SiteAudit, execErr error) {
	attempts := audit.Attempts + 1
	msg := execErr.Error()
	_ = p.queue.Ack(ctx, item)

	if attempts >= p.cfg.MaxAttempts {
		_ = p.store.UpdateSiteAuditStatus(ctx, audit.ID, models.AuditStatusFailed, attempts, &msg)
		_ = p.queue.DLQPush(ctx, item)
		_ = p.store.AppendActivity(ctx, audit.ID, "audit_dead_letter", msg)
		telemetry.ExecutorDeadEnds.Inc()
		return
	}

	nextRun := time.Now().Add(backoffWithJitter(p.cfg.BackoffInitial, p.cfg.BackoffMax, attempts))
	_ = p.store.UpdateSiteAuditStatus(ctx, audit.ID, models.AuditStatusPending, attempts, &msg)
	_ = p.queue.Schedule(ctx, item, "default", nextRun)
	_ = p.store.AppendActivity(ctx, audit.ID, "audit_retry_scheduled",
		fmt.Sprintf("next_run=%s attempts=%d", nextRun.UTC().Format(time.RFC3339), attempts))
	telemetry.ExecutorFailures.Inc()
}

func depthOf(audit models.SiteAudit) string {
	if d, ok := audit.RawData["depth"].(string); ok {
		return d
	}
	return models.DepthStandard
}

func backoffWithJitter(base, max time.Duration, attempt int) time.Duration {
	if attempt <= 0 {
		return base
	}
	exp := float64(base) * math.Pow(2, float64(attempt-1))
	wait := time.Duration(exp)
	if wait > max {
		wait = max
	}
	jitter := time.Duration(rand.Int63n(int64(wait / 2)))
	return wait/2 + jitter
}
