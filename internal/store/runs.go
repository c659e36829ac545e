package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"rankpilot/internal/models"
)

// CreateAgentRunParams collects inputs required to insert an agent run.
type CreateAgentRunParams struct {
	AgentID  string
	ClientID string
	Trigger  string
	Input    map[string]any
	BootLog  models.LogLine
}

// CreateAgentRun inserts a run row in the queued state with the single
// bootstrap log line.
func (s *Store) CreateAgentRun(ctx context.Context, p CreateAgentRunParams) (models.AgentRun, error) {
	inputJSON, err := json.Marshal(p.Input)
	if err != nil {
		return models.AgentRun{}, fmt.Errorf("marshal input: %w", err)
	}
	logJSON, err := json.Marshal([]models.LogLine{p.BootLog})
	if err != nil {
		return models.AgentRun{}, fmt.Errorf("marshal log lines: %w", err)
	}

	id := uuid.New().String()
	now := time.Now().UTC()

	_, err = s.pool.Exec(ctx, `
		INSERT INTO agent_runs (id, agent_id, client_id, status, trigger, attempts, log_lines, input, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7, $8, $8)
	`, id, p.AgentID, p.ClientID, models.RunStatusQueued, p.Trigger, logJSON, inputJSON, now)
	if err != nil {
		return models.AgentRun{}, fmt.Errorf("insert agent run: %w", err)
	}

	return models.AgentRun{
		ID:        id,
		AgentID:   p.AgentID,
		ClientID:  p.ClientID,
		Status:    models.RunStatusQueued,
		Trigger:   p.Trigger,
		Attempts:  0,
		LogLines:  []models.LogLine{p.BootLog},
		Input:     p.Input,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

const agentRunColumns = `id, agent_id, client_id, status, trigger, attempts, log_lines, input, last_error, created_at, updated_at`

// GetAgentRun fetches a run by id.
func (s *Store) GetAgentRun(ctx context.Context, id string) (models.AgentRun, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+agentRunColumns+` FROM agent_runs WHERE id = $1
	`, id)
	return scanAgentRun(row)
}

// GetAgentRunForAgent fetches a run scoped by both the run id and the agent
// that owns it. A run belonging to a different agent is indistinguishable
// from a missing run.
func (s *Store) GetAgentRunForAgent(ctx context.Context, agentID, runID string) (models.AgentRun, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+agentRunColumns+` FROM agent_runs WHERE id = $1 AND agent_id = $2
	`, runID, agentID)
	return scanAgentRun(row)
}

// UpdateAgentRunStatus sets status, attempts and last_error.
func (s *Store) UpdateAgentRunStatus(ctx context.Context, id, status string, attempts int, lastError *string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE agent_runs
		SET status = $2, attempts = $3, last_error = $4, updated_at = NOW()
		WHERE id = $1
	`, id, status, attempts, lastError)
	return err
}

// AppendRunLog appends one entry to the run's log without touching the rest
// of the row.
func (s *Store) AppendRunLog(ctx context.Context, id string, line models.LogLine) error {
	lineJSON, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("marshal log line: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE agent_runs
		SET log_lines = log_lines || $2::jsonb, updated_at = NOW()
		WHERE id = $1
	`, id, lineJSON)
	return err
}

func scanAgentRun(row pgx.Row) (models.AgentRun, error) {
	var run models.AgentRun
	var logJSON, inputJSON []byte
	var lastErr pgtype.Text

	err := row.Scan(&run.ID, &run.AgentID, &run.ClientID, &run.Status, &run.Trigger,
		&run.Attempts, &logJSON, &inputJSON, &lastErr, &run.CreatedAt, &run.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.AgentRun{}, ErrNotFound
	}
	if err != nil {
		return models.AgentRun{}, fmt.Errorf("scan agent run: %w", err)
	}
	if err := json.Unmarshal(logJSON, &run.LogLines); err != nil {
		return models.AgentRun{}, fmt.Errorf("unmarshal log lines: %w", err)
	}
	if err := json.Unmarshal(inputJSON, &run.Input); err != nil {
		return models.AgentRun{}, fmt.Errorf("unmarshal input: %w", err)
	}
	run.LastError = textPtr(lastErr)
	return run, nil
}
