// Package workflow declares the legal status transitions for every record
// kind in one place. Each table maps current status × operation to the next
// status; an absent edge is a rejected transition.
package workflow

import (
	"rankpilot/internal/apperr"
	"rankpilot/internal/models"
)

// Operations that drive transitions.
const (
	OpStart    = "start"
	OpComplete = "complete"
	OpFail     = "fail"
	OpRetry    = "retry"
	OpApprove  = "approve"
)

var runTransitions = map[string]map[string]string{
	models.RunStatusQueued: {
		OpStart: models.RunStatusRunning,
	},
	models.RunStatusRunning: {
		OpComplete: models.RunStatusCompleted,
		OpFail:     models.RunStatusFailed,
		OpRetry:    models.RunStatusQueued,
	},
	models.RunStatusCompleted: {},
	models.RunStatusFailed:    {},
}

var auditTransitions = map[string]map[string]string{
	models.AuditStatusPending: {
		OpStart: models.AuditStatusRunning,
	},
	models.AuditStatusRunning: {
		OpComplete: models.AuditStatusCompleted,
		OpFail:     models.AuditStatusFailed,
		OpRetry:    models.AuditStatusPending,
	},
	models.AuditStatusCompleted: {},
	models.AuditStatusFailed:    {},
}

// briefTransitions covers the approval operation only; draft/in_review
// movement happens in editing flows outside this service. Re-approving a
// ready brief is a legal self-edge until publication.
var briefTransitions = map[string]map[string]string{
	models.BriefStatusDraft: {
		OpApprove: models.BriefStatusReady,
	},
	models.BriefStatusInReview: {
		OpApprove: models.BriefStatusReady,
	},
	models.BriefStatusReady: {
		OpApprove: models.BriefStatusReady,
	},
	models.BriefStatusPublished: {},
	models.BriefStatusArchived:  {},
}

// NextRunStatus resolves an agent run transition.
func NextRunStatus(current, op string) (string, error) {
	return next(runTransitions, "agent run", current, op)
}

// NextAuditStatus resolves a site audit transition.
func NextAuditStatus(current, op string) (string, error) {
	return next(auditTransitions, "site audit", current, op)
}

// NextBriefStatus resolves a content brief transition.
func NextBriefStatus(current, op string) (string, error) {
	return next(briefTransitions, "content brief", current, op)
}

func next(table map[string]map[string]string, kind, current, op string) (string, error) {
	edges, ok := table[current]
	if !ok {
		return "", apperr.Conflict("%s has unknown status %q", kind, current)
	}
	nextStatus, ok := edges[op]
	if !ok {
		return "", apperr.Conflict("cannot %s %s with status %q", op, kind, current)
	}
	return nextStatus, nil
}
