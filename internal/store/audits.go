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

// CreateSiteAuditParams collects inputs required to insert a site audit.
type CreateSiteAuditParams struct {
	ClientID string
	RawData  map[string]any
}

// CreateSiteAudit inserts an audit row in the pending state with zeroed
// counters and an empty issue list.
func (s *Store) CreateSiteAudit(ctx context.Context, p CreateSiteAuditParams) (models.SiteAudit, error) {
	rawJSON, err := json.Marshal(p.RawData)
	if err != nil {
		return models.SiteAudit{}, fmt.Errorf("marshal raw_data: %w", err)
	}

	id := uuid.New().String()
	now := time.Now().UTC()

	_, err = s.pool.Exec(ctx, `
		INSERT INTO site_audits (id, client_id, status, critical_count, warning_count, info_count, issues, raw_data, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, 0, 0, 0, '[]'::jsonb, $4, 0, $5, $5)
	`, id, p.ClientID, models.AuditStatusPending, rawJSON, now)
	if err != nil {
		return models.SiteAudit{}, fmt.Errorf("insert site audit: %w", err)
	}

	return models.SiteAudit{
		ID:        id,
		ClientID:  p.ClientID,
		Status:    models.AuditStatusPending,
		Issues:    []models.AuditIssue{},
		RawData:   p.RawData,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

const siteAuditColumns = `id, client_id, status, critical_count, warning_count, info_count, issues, raw_data, attempts, last_error, report_key, created_at, updated_at`

// GetSiteAudit fetches an audit by id.
func (s *Store) GetSiteAudit(ctx context.Context, id string) (models.SiteAudit, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+siteAuditColumns+` FROM site_audits WHERE id = $1
	`, id)
	return scanSiteAudit(row)
}

// UpdateSiteAuditStatus sets status, attempts and last_error.
func (s *Store) UpdateSiteAuditStatus(ctx context.Context, id, status string, attempts int, lastError *string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE site_audits
		SET status = $2, attempts = $3, last_error = $4, updated_at = NOW()
		WHERE id = $1
	`, id, status, attempts, lastError)
	return err
}

// FinishSiteAudit records the executor's findings and marks the audit
// completed. reportKey is nil when no archive was written.
func (s *Store) FinishSiteAudit(ctx context.Context, id string, issues []models.AuditIssue, reportKey *string) error {
	if issues == nil {
		issues = []models.AuditIssue{}
	}
	issuesJSON, err := json.Marshal(issues)
	if err != nil {
		return fmt.Errorf("marshal issues: %w", err)
	}
	var critical, warning, info int
	for _, is := range issues {
		switch is.Severity {
		case models.SeverityCritical:
			critical++
		case models.SeverityWarning:
			warning++
		default:
			info++
		}
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE site_audits
		SET status = $2, critical_count = $3, warning_count = $4, info_count = $5,
		    issues = $6, report_key = $7, last_error = NULL, updated_at = NOW()
		WHERE id = $1
	`, id, models.AuditStatusCompleted, critical, warning, info, issuesJSON, reportKey)
	return err
}

func scanSiteAudit(row pgx.Row) (models.SiteAudit, error) {
	var audit models.SiteAudit
	var issuesJSON, rawJSON []byte
	var lastErr, reportKey pgtype.Text

	err := row.Scan(&audit.ID, &audit.ClientID, &audit.Status,
		&audit.CriticalCount, &audit.WarningCount, &audit.InfoCount,
		&issuesJSON, &rawJSON, &audit.Attempts, &lastErr, &reportKey,
		&audit.CreatedAt, &audit.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.SiteAudit{}, ErrNotFound
	}
	if err != nil {
		return models.SiteAudit{}, fmt.Errorf("scan site audit: %w", err)
	}
	if err := json.Unmarshal(issuesJSON, &audit.Issues); err != nil {
		return models.SiteAudit{}, fmt.Errorf("unmarshal issues: %w", err)
	}
	if err := json.Unmarshal(rawJSON, &audit.RawData); err != nil {
		return models.SiteAudit{}, fmt.Errorf("unmarshal raw_data: %w", err)
	}
	audit.LastError = textPtr(lastErr)
	audit.ReportKey = textPtr(reportKey)
	return audit, nil
}
