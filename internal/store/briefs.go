package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"rankpilot/internal/models"
)

const contentBriefColumns = `id, client_id, title, status, notes, approved_at, created_at, updated_at`

// GetContentBrief fetches a brief by id.
func (s *Store) GetContentBrief(ctx context.Context, id string) (models.ContentBrief, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+contentBriefColumns+` FROM content_briefs WHERE id = $1
	`, id)
	return scanContentBrief(row)
}

// SetBriefApproved transitions a brief to ready and stamps approved_at,
// returning the updated row. The notes column is left untouched.
func (s *Store) SetBriefApproved(ctx context.Context, id string, approvedAt time.Time) (models.ContentBrief, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE content_briefs
		SET status = $2, approved_at = $3, updated_at = $3
		WHERE id = $1
		RETURNING `+contentBriefColumns+`
	`, id, models.BriefStatusReady, approvedAt)
	return scanContentBrief(row)
}

func scanContentBrief(row pgx.Row) (models.ContentBrief, error) {
	var brief models.ContentBrief
	var approved pgtype.Timestamptz

	err := row.Scan(&brief.ID, &brief.ClientID, &brief.Title, &brief.Status,
		&brief.Notes, &approved, &brief.CreatedAt, &brief.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ContentBrief{}, ErrNotFound
	}
	if err != nil {
		return models.ContentBrief{}, fmt.Errorf("scan content brief: %w", err)
	}
	if approved.Valid {
		t := approved.Time
		brief.ApprovedAt = &t
	}
	return brief, nil
}
