package workflow

import (
	"context"
	"errors"
	"time"

	"rankpilot/internal/apperr"
	"rankpilot/internal/models"
	"rankpilot/internal/store"
)

// BriefStore is the slice of the record store the approval service needs.
type BriefStore interface {
	GetContentBrief(ctx context.Context, id string) (models.ContentBrief, error)
	SetBriefApproved(ctx context.Context, id string, approvedAt time.Time) (models.ContentBrief, error)
}

// Approvals governs content brief approval transitions.
type Approvals struct {
	store BriefStore
	now   func() time.Time
}

// NewApprovals constructs the approval service.
func NewApprovals(st BriefStore) *Approvals {
	return &Approvals{store: st, now: time.Now}
}

// ApproveBrief moves a brief into the ready state. Published and archived
// briefs are terminal for approval and yield a conflict naming the status.
// Approving an already-ready brief succeeds again and restamps approved_at.
func (a *Approvals) ApproveBrief(ctx context.Context, briefID string) (models.ContentBrief, time.Time, error) {
	if briefID == "" {
		return models.ContentBrief{}, time.Time{}, apperr.Invalid("briefId is required")
	}

	brief, err := a.store.GetContentBrief(ctx, briefID)
	if errors.Is(err, store.ErrNotFound) {
		return models.ContentBrief{}, time.Time{}, apperr.NotFound("content brief %q not found", briefID)
	}
	if err != nil {
		return models.ContentBrief{}, time.Time{}, apperr.Upstream(err)
	}

	if _, err := NextBriefStatus(brief.Status, OpApprove); err != nil {
		return models.ContentBrief{}, time.Time{}, err
	}

	approvedAt := a.now().UTC()
	updated, err := a.store.SetBriefApproved(ctx, briefID, approvedAt)
	if err != nil {
		return models.ContentBrief{}, time.Time{}, apperr.Upstream(err)
	}
	return updated, approvedAt, nil
}
