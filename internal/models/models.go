package models

import (
	"time"
)

// AgentRun status values persisted in Postgres.
const (
	RunStatusQueued    = "queued"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// SiteAudit status values persisted in Postgres.
const (
	AuditStatusPending   = "pending"
	AuditStatusRunning   = "running"
	AuditStatusCompleted = "completed"
	AuditStatusFailed    = "failed"
)

// ContentBrief status values. Only ready, published and archived matter to
// the approval operation; draft and in_review are reachable via editing flows.
const (
	BriefStatusDraft     = "draft"
	BriefStatusInReview  = "in_review"
	BriefStatusReady     = "ready"
	BriefStatusPublished = "published"
	BriefStatusArchived  = "archived"
)

// Run trigger origins.
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
)

// Audit depth values accepted at submission.
const (
	DepthQuick    = "quick"
	DepthStandard = "standard"
	DepthDeep     = "deep"
)

// AuditDepths lists the allowed depth values, in the order error messages
// report them.
var AuditDepths = []string{DepthQuick, DepthStandard, DepthDeep}

// ValidDepth reports whether depth is an accepted audit depth.
func ValidDepth(depth string) bool {
	for _, d := range AuditDepths {
		if d == depth {
			return true
		}
	}
	return false
}

// Issue severity buckets counted on a SiteAudit.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// LogLine is one timestamped entry in an agent run's append-only log.
type LogLine struct {
	Timestamp time.Time `json:"ts"`
	Message   string    `json:"message"`
}

// AgentRun represents one invocation of a named automation agent against one
// client. Created queued; advanced by the executor.
type AgentRun struct {
	ID        string         `json:"id"`
	AgentID   string         `json:"agent_id"`
	ClientID  string         `json:"client_id"`
	Status    string         `json:"status"`
	Trigger   string         `json:"trigger"`
	Attempts  int            `json:"attempts"`
	LogLines  []LogLine      `json:"log_lines"`
	Input     map[string]any `json:"input"`
	LastError *string        `json:"last_error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// AuditIssue is one categorized finding from a site audit.
type AuditIssue struct {
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Page     string `json:"page,omitempty"`
}

// SiteAudit represents one scan of a client's site at a requested depth.
type SiteAudit struct {
	ID            string         `json:"id"`
	ClientID      string         `json:"client_id"`
	Status        string         `json:"status"`
	CriticalCount int            `json:"critical_count"`
	WarningCount  int            `json:"warning_count"`
	InfoCount     int            `json:"info_count"`
	Issues        []AuditIssue   `json:"issues"`
	RawData       map[string]any `json:"raw_data"`
	Attempts      int            `json:"attempts"`
	LastError     *string        `json:"last_error,omitempty"`
	ReportKey     *string        `json:"report_key,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// ContentBrief is an editorial content plan moving through an approval
// workflow. ApprovedAt is stamped by the approval operation; Notes belongs
// to the editors and is never touched by approval.
type ContentBrief struct {
	ID         string     `json:"id"`
	ClientID   string     `json:"client_id"`
	Title      string     `json:"title"`
	Status     string     `json:"status"`
	Notes      string     `json:"notes"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Client is read-mostly reference data: one customer site under management.
type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	OwnerID   *string   `json:"owner_id,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserProfile is read-mostly reference data consumed by aggregation.
type UserProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// UserWithBusinessCount is a profile with the number of active clients the
// user owns merged on.
type UserWithBusinessCount struct {
	UserProfile
	BusinessCount int `json:"business_count"`
}

// ActivityEntry is one row of the submission/executor activity trail.
type ActivityEntry struct {
	RecordID string    `json:"record_id"`
	Event    string    `json:"event"`
	Detail   string    `json:"detail"`
	Recorded time.Time `json:"recorded_at"`
}
