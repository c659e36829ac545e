package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"rankpilot/internal/config"
	"rankpilot/internal/models"
)

// maxPageBytes caps how much of the target page is read for inspection.
const maxPageBytes = 2 << 20

// AuditStore is the slice of the record store the audit runner writes
// through.
type AuditStore interface {
	FinishSiteAudit(ctx context.Context, id string, issues []models.AuditIssue, reportKey *string) error
}

// AuditRunner executes one site audit: fetch the target page, run the
// depth-scaled checks, archive the raw report, and record the findings.
type AuditRunner struct {
	store      AuditStore
	archiver   ReportArchiver
	httpClient *http.Client
	now        func() time.Time
}

// NewAuditRunner constructs the runner. archiver may be nil, in which case
// no raw report is archived.
func NewAuditRunner(cfg config.Config, st AuditStore, archiver ReportArchiver) *AuditRunner {
	timeout := cfg.AuditFetchTimeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	return &AuditRunner{
		store:      st,
		archiver:   archiver,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// Execute performs the audit and marks it completed. The caller owns the
// pending→running transition and the failure path.
func (r *AuditRunner) Execute(ctx context.Context, audit models.SiteAudit) error {
	target, ok := audit.RawData["target_url"].(string)
	if !ok || target == "" {
		return fmt.Errorf("audit %s has no target_url", audit.ID)
	}
	depth := depthOf(audit)

	body, err := r.fetch(ctx, target)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", target, err)
	}

	issues := inspectPage(body, depth)

	var reportKey *string
	if r.archiver != nil {
		key := fmt.Sprintf("audits/%s/%s.json", audit.ClientID, audit.ID)
		report, err := json.Marshal(map[string]any{
			"audit_id":   audit.ID,
			"client_id":  audit.ClientID,
			"target_url": target,
			"depth":      depth,
			"fetched_at": r.now().UTC().Format(time.RFC3339),
			"issues":     issues,
		})
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		if _, err := r.archiver.Upload(ctx, key, report); err != nil {
			return fmt.Errorf("archive report: %w", err)
		}
		reportKey = &key
	}

	if err := r.store.FinishSiteAudit(ctx, audit.ID, issues, reportKey); err != nil {
		return fmt.Errorf("record findings: %w", err)
	}
	return nil
}

func (r *AuditRunner) fetch(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "rankpilot-audit/1.0")
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
