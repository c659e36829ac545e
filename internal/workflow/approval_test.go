package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rankpilot/internal/apperr"
	"rankpilot/internal/models"
	"rankpilot/internal/store"
)

type fakeBriefStore struct {
	briefs  map[string]models.ContentBrief
	getErr  error
	setErr  error
	stamped []time.Time
}

func (f *fakeBriefStore) GetContentBrief(_ context.Context, id string) (models.ContentBrief, error) {
	if f.getErr != nil {
		return models.ContentBrief{}, f.getErr
	}
	b, ok := f.briefs[id]
	if !ok {
		return models.ContentBrief{}, store.ErrNotFound
	}
	return b, nil
}

func (f *fakeBriefStore) SetBriefApproved(_ context.Context, id string, approvedAt time.Time) (models.ContentBrief, error) {
	if f.setErr != nil {
		return models.ContentBrief{}, f.setErr
	}
	b := f.briefs[id]
	b.Status = models.BriefStatusReady
	b.ApprovedAt = &approvedAt
	b.UpdatedAt = approvedAt
	f.briefs[id] = b
	f.stamped = append(f.stamped, approvedAt)
	return b, nil
}

func newApprovalsAt(st BriefStore, at time.Time) *Approvals {
	a := NewApprovals(st)
	a.now = func() time.Time { return at }
	return a
}

func TestApproveBriefFromDraft(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	fs := &fakeBriefStore{briefs: map[string]models.ContentBrief{
		"brief-1": {ID: "brief-1", Status: models.BriefStatusDraft, Notes: "keep these notes"},
	}}
	a := newApprovalsAt(fs, now)

	brief, approvedAt, err := a.ApproveBrief(context.Background(), "brief-1")
	require.NoError(t, err)
	assert.Equal(t, models.BriefStatusReady, brief.Status)
	assert.Equal(t, now, approvedAt)
	require.NotNil(t, brief.ApprovedAt)
	assert.Equal(t, now, *brief.ApprovedAt)
	// Editorial notes survive approval untouched.
	assert.Equal(t, "keep these notes", brief.Notes)
}

func TestApproveBriefAlreadyReadyRestamps(t *testing.T) {
	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(45 * time.Minute)
	fs := &fakeBriefStore{briefs: map[string]models.ContentBrief{
		"brief-2": {ID: "brief-2", Status: models.BriefStatusInReview},
	}}

	a := newApprovalsAt(fs, first)
	_, _, err := a.ApproveBrief(context.Background(), "brief-2")
	require.NoError(t, err)

	a.now = func() time.Time { return second }
	brief, approvedAt, err := a.ApproveBrief(context.Background(), "brief-2")
	require.NoError(t, err)
	assert.Equal(t, models.BriefStatusReady, brief.Status)
	assert.Equal(t, second, approvedAt)
	assert.Equal(t, []time.Time{first, second}, fs.stamped)
}

func TestApproveBriefTerminalStatusConflicts(t *testing.T) {
	for _, status := range []string{models.BriefStatusPublished, models.BriefStatusArchived} {
		fs := &fakeBriefStore{briefs: map[string]models.ContentBrief{
			"brief-3": {ID: "brief-3", Status: status},
		}}
		a := NewApprovals(fs)

		_, _, err := a.ApproveBrief(context.Background(), "brief-3")
		require.Error(t, err)
		assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))
		assert.Contains(t, err.Error(), status)
		assert.Empty(t, fs.stamped, "terminal brief must not be written")
	}
}

func TestApproveBriefNotFound(t *testing.T) {
	a := NewApprovals(&fakeBriefStore{briefs: map[string]models.ContentBrief{}})
	_, _, err := a.ApproveBrief(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
	assert.Contains(t, err.Error(), "missing")
}

func TestApproveBriefEmptyID(t *testing.T) {
	a := NewApprovals(&fakeBriefStore{briefs: map[string]models.ContentBrief{}})
	_, _, err := a.ApproveBrief(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))
}

func TestApproveBriefStoreFailure(t *testing.T) {
	a := NewApprovals(&fakeBriefStore{getErr: errors.New("connection reset")})
	_, _, err := a.ApproveBrief(context.Background(), "brief-4")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUpstream, apperr.CodeOf(err))
}
