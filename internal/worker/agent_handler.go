package worker

import (
	"context"
	"fmt"
	"time"

	"rankpilot/internal/agents"
	"rankpilot/internal/models"
)

// RunStore is the slice of the record store the agent runner writes through.
type RunStore interface {
	AppendRunLog(ctx context.Context, id string, line models.LogLine) error
	UpdateAgentRunStatus(ctx context.Context, id, status string, attempts int, lastError *string) error
}

// AgentRunner executes one agent run by walking the agent definition's
// steps, appending a log line per step.
type AgentRunner struct {
	store    RunStore
	registry *agents.Registry
	now      func() time.Time
}

// NewAgentRunner constructs the runner.
func NewAgentRunner(st RunStore, registry *agents.Registry) *AgentRunner {
	return &AgentRunner{store: st, registry: registry, now: time.Now}
}

// Execute runs the agent and marks the run completed. The caller owns the
// queued→running transition and the failure path.
func (r *AgentRunner) Execute(ctx context.Context, run models.AgentRun) error {
	def, ok := r.registry.Lookup(run.AgentID)
	if !ok {
		return fmt.Errorf("unknown agent %q", run.AgentID)
	}

	for _, step := range def.Steps {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := r.store.AppendRunLog(ctx, run.ID, models.LogLine{
			Timestamp: r.now().UTC(),
			Message:   "step: " + step,
		}); err != nil {
			return fmt.Errorf("append log: %w", err)
		}
	}

	if err := r.store.AppendRunLog(ctx, run.ID, models.LogLine{
		Timestamp: r.now().UTC(),
		Message:   fmt.Sprintf("%s finished for client %s", def.Name, run.ClientID),
	}); err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	if err := r.store.UpdateAgentRunStatus(ctx, run.ID, models.RunStatusCompleted, run.Attempts, nil); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}
