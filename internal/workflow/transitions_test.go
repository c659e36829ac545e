package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rankpilot/internal/apperr"
	"rankpilot/internal/models"
)

func TestBriefApprovalEdges(t *testing.T) {
	cases := []struct {
		status  string
		allowed bool
	}{
		{models.BriefStatusDraft, true},
		{models.BriefStatusInReview, true},
		{models.BriefStatusReady, true},
		{models.BriefStatusPublished, false},
		{models.BriefStatusArchived, false},
	}
	for _, tc := range cases {
		t.Run(tc.status, func(t *testing.T) {
			next, err := NextBriefStatus(tc.status, OpApprove)
			if tc.allowed {
				require.NoError(t, err)
				assert.Equal(t, models.BriefStatusReady, next)
			} else {
				require.Error(t, err)
				assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))
				assert.Contains(t, err.Error(), tc.status)
			}
		})
	}
}

func TestRunTransitions(t *testing.T) {
	next, err := NextRunStatus(models.RunStatusQueued, OpStart)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, next)

	next, err = NextRunStatus(models.RunStatusRunning, OpComplete)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, next)

	next, err = NextRunStatus(models.RunStatusRunning, OpRetry)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusQueued, next)

	// Terminal states reject everything.
	for _, status := range []string{models.RunStatusCompleted, models.RunStatusFailed} {
		for _, op := range []string{OpStart, OpComplete, OpFail, OpRetry} {
			_, err := NextRunStatus(status, op)
			assert.Error(t, err, "status=%s op=%s", status, op)
		}
	}

	// A queued run cannot complete without starting.
	_, err = NextRunStatus(models.RunStatusQueued, OpComplete)
	assert.Error(t, err)
}

func TestAuditTransitions(t *testing.T) {
	next, err := NextAuditStatus(models.AuditStatusPending, OpStart)
	require.NoError(t, err)
	assert.Equal(t, models.AuditStatusRunning, next)

	next, err = NextAuditStatus(models.AuditStatusRunning, OpFail)
	require.NoError(t, err)
	assert.Equal(t, models.AuditStatusFailed, next)

	next, err = NextAuditStatus(models.AuditStatusRunning, OpRetry)
	require.NoError(t, err)
	assert.Equal(t, models.AuditStatusPending, next)

	_, err = NextAuditStatus(models.AuditStatusCompleted, OpStart)
	assert.Error(t, err)
}

func TestUnknownStatusRejected(t *testing.T) {
	_, err := NextBriefStatus("mystery", OpApprove)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))
}
