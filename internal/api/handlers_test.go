package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rankpilot/internal/apperr"
	"rankpilot/internal/auth"
	"rankpilot/internal/config"
	"rankpilot/internal/insights"
	"rankpilot/internal/marketing"
	"rankpilot/internal/models"
)

type fakeDispatcher struct {
	run      models.AgentRun
	audit    models.SiteAudit
	err      error
	lastArgs []string
}

func (f *fakeDispatcher) SubmitAgentRun(_ context.Context, agentID, clientID string) (models.AgentRun, error) {
	f.lastArgs = []string{agentID, clientID}
	return f.run, f.err
}

func (f *fakeDispatcher) SubmitAudit(_ context.Context, clientID, depth string) (models.SiteAudit, error) {
	f.lastArgs = []string{clientID, depth}
	return f.audit, f.err
}

func (f *fakeDispatcher) GetAgentRunStatus(_ context.Context, agentID, runID string) (models.AgentRun, error) {
	f.lastArgs = []string{agentID, runID}
	return f.run, f.err
}

func (f *fakeDispatcher) GetAudit(_ context.Context, auditID string) (models.SiteAudit, error) {
	f.lastArgs = []string{auditID}
	return f.audit, f.err
}

type fakeApprover struct {
	brief      models.ContentBrief
	approvedAt time.Time
	err        error
}

func (f *fakeApprover) ApproveBrief(_ context.Context, _ string) (models.ContentBrief, time.Time, error) {
	return f.brief, f.approvedAt, f.err
}

type fakeAggregator struct {
	users     []models.UserWithBusinessCount
	analytics marketing.SearchAnalyticsResponse
	campaigns insights.CampaignSummary
	err       error
}

func (f *fakeAggregator) ListUsersWithBusinessCounts(context.Context) ([]models.UserWithBusinessCount, error) {
	return f.users, f.err
}

func (f *fakeAggregator) FetchSearchPerformance(_ context.Context, req insights.SearchPerformanceRequest) (marketing.SearchAnalyticsResponse, error) {
	if req.SiteURL == "" {
		return marketing.SearchAnalyticsResponse{}, apperr.Invalid("siteUrl is required")
	}
	return f.analytics, f.err
}

func (f *fakeAggregator) FetchCampaignSummary(context.Context) (insights.CampaignSummary, error) {
	return f.campaigns, f.err
}

type fakeLimiter struct {
	allowed bool
}

func (f *fakeLimiter) AllowSubject(context.Context, string) (bool, float64, error) {
	return f.allowed, 0, nil
}

type fakeDLQ struct {
	items []string
}

func (f *fakeDLQ) DLQPeek(context.Context, int64) ([]string, error) {
	return f.items, nil
}

type testServer struct {
	*Server
	auth *auth.Manager
}

func newTestServer(t *testing.T, deps Deps) *testServer {
	t.Helper()
	mgr, err := auth.NewManager("handler-test-secret", time.Hour)
	require.NoError(t, err)

	deps.Config = config.Config{Env: "dev"}
	deps.Auth = mgr
	if deps.Dispatch == nil {
		deps.Dispatch = &fakeDispatcher{}
	}
	if deps.Approvals == nil {
		deps.Approvals = &fakeApprover{}
	}
	if deps.Insights == nil {
		deps.Insights = &fakeAggregator{}
	}
	return &testServer{Server: New(deps), auth: mgr}
}

func (ts *testServer) token(t *testing.T, id auth.Identity) string {
	t.Helper()
	token, _, err := ts.auth.Issue(id)
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t, Deps{})

	for _, ep := range []struct{ method, path string }{
		{http.MethodGet, "/api/me"},
		{http.MethodPost, "/api/agents/keyword-scout/run"},
		{http.MethodPost, "/api/audits"},
		{http.MethodPost, "/api/briefs/b-1/approve"},
		{http.MethodPost, "/api/search-performance"},
		{http.MethodGet, "/api/campaigns"},
	} {
		rec := ts.do(t, ep.method, ep.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", ep.method, ep.path)
		body := decodeBody(t, rec)
		assert.Equal(t, false, body["success"])
		errObj := body["error"].(map[string]any)
		assert.Equal(t, "UNAUTHORIZED", errObj["code"])
	}
}

func TestAuthRejectsBadToken(t *testing.T) {
	ts := newTestServer(t, Deps{})
	rec := ts.do(t, http.MethodGet, "/api/me", "not-a-real-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminGateOnUsers(t *testing.T) {
	ts := newTestServer(t, Deps{Insights: &fakeAggregator{
		users: []models.UserWithBusinessCount{
			{UserProfile: models.UserProfile{ID: "u-1"}, BusinessCount: 3},
		},
	}})

	// Plain authenticated caller is forbidden.
	rec := ts.do(t, http.MethodGet, "/api/users", ts.token(t, auth.Identity{Subject: "u-1"}), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeBody(t, rec)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "FORBIDDEN", errObj["code"])

	// Admin gets the list with the total meta.
	rec = ts.do(t, http.MethodGet, "/api/users", ts.token(t, auth.Identity{Subject: "admin", IsAdmin: true}), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	meta := body["meta"].(map[string]any)
	assert.Equal(t, float64(1), meta["total"])
}

func TestMe(t *testing.T) {
	ts := newTestServer(t, Deps{})
	rec := ts.do(t, http.MethodGet, "/api/me", ts.token(t, auth.Identity{Subject: "u-9", Email: "x@example.com"}), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	data := body["data"].(map[string]any)
	assert.Equal(t, "u-9", data["subject"])
}

func TestSubmitRun(t *testing.T) {
	d := &fakeDispatcher{run: models.AgentRun{ID: "run-42", AgentID: "keyword-scout", Status: models.RunStatusQueued}}
	ts := newTestServer(t, Deps{Dispatch: d})

	rec := ts.do(t, http.MethodPost, "/api/agents/keyword-scout/run",
		ts.token(t, auth.Identity{Subject: "u-1"}),
		map[string]string{"clientId": "client-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "run-42", body["runId"])
	assert.Equal(t, "keyword-scout", body["agentId"])
	assert.Equal(t, "started", body["status"])
	assert.Equal(t, []string{"keyword-scout", "client-1"}, d.lastArgs)
}

func TestSubmitRunUnknownAgent(t *testing.T) {
	d := &fakeDispatcher{err: apperr.NotFound("unknown agent %q", "rank-tracker")}
	ts := newTestServer(t, Deps{Dispatch: d})

	rec := ts.do(t, http.MethodPost, "/api/agents/rank-tracker/run",
		ts.token(t, auth.Identity{Subject: "u-1"}),
		map[string]string{"clientId": "client-1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "NOT_FOUND", errObj["code"])
	assert.Contains(t, errObj["message"], "rank-tracker")
}

func TestSubmitRunInvalidBody(t *testing.T) {
	ts := newTestServer(t, Deps{})
	req := httptest.NewRequest(http.MethodPost, "/api/agents/keyword-scout/run", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+ts.token(t, auth.Identity{Subject: "u-1"}))
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitAudit(t *testing.T) {
	d := &fakeDispatcher{audit: models.SiteAudit{ID: "audit-7", ClientID: "client-1", Status: models.AuditStatusPending}}
	ts := newTestServer(t, Deps{Dispatch: d})

	rec := ts.do(t, http.MethodPost, "/api/audits",
		ts.token(t, auth.Identity{Subject: "u-1"}),
		map[string]string{"clientId": "client-1", "depth": "deep"})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "audit-7", body["auditId"])
	assert.Equal(t, "deep", body["depth"])
	assert.Equal(t, "pending", body["status"])
}

func TestSubmissionRateLimited(t *testing.T) {
	ts := newTestServer(t, Deps{Limiter: &fakeLimiter{allowed: false}})

	rec := ts.do(t, http.MethodPost, "/api/audits",
		ts.token(t, auth.Identity{Subject: "u-1"}),
		map[string]string{"clientId": "client-1", "depth": "quick"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	body := decodeBody(t, rec)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "RATE_LIMITED", errObj["code"])
}

func TestApproveBrief(t *testing.T) {
	approvedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := &fakeApprover{
		brief:      models.ContentBrief{ID: "b-1", Status: models.BriefStatusReady, ApprovedAt: &approvedAt},
		approvedAt: approvedAt,
	}
	ts := newTestServer(t, Deps{Approvals: a})

	rec := ts.do(t, http.MethodPost, "/api/briefs/b-1/approve",
		ts.token(t, auth.Identity{Subject: "u-1"}), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, approvedAt.Format(time.RFC3339), body["approved_at"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "ready", data["status"])
}

func TestApproveBriefConflict(t *testing.T) {
	a := &fakeApprover{err: apperr.Conflict("cannot approve content brief with status %q", "published")}
	ts := newTestServer(t, Deps{Approvals: a})

	rec := ts.do(t, http.MethodPost, "/api/briefs/b-1/approve",
		ts.token(t, auth.Identity{Subject: "u-1"}), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	body := decodeBody(t, rec)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "CONFLICT", errObj["code"])
	assert.Contains(t, errObj["message"], "published")
}

func TestSearchPerformanceValidation(t *testing.T) {
	ts := newTestServer(t, Deps{})

	rec := ts.do(t, http.MethodPost, "/api/search-performance",
		ts.token(t, auth.Identity{Subject: "u-1"}),
		map[string]string{"startDate": "2026-01-01", "endDate": "2026-01-31"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "INVALID_INPUT", errObj["code"])
	assert.Contains(t, errObj["message"], "siteUrl")
}

func TestCampaigns(t *testing.T) {
	agg := &fakeAggregator{campaigns: insights.CampaignSummary{
		Campaigns: []marketing.Campaign{{ID: "cmp-1"}},
		Summary:   insights.Summary{TotalCost: 12.34, AvgCTR: 4.2},
	}}
	ts := newTestServer(t, Deps{Insights: agg})

	rec := ts.do(t, http.MethodGet, "/api/campaigns", ts.token(t, auth.Identity{Subject: "u-1"}), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	data := body["data"].(map[string]any)
	summary := data["summary"].(map[string]any)
	assert.Equal(t, 12.34, summary["total_cost"])
}

func TestDLQAdminOnly(t *testing.T) {
	ts := newTestServer(t, Deps{DLQ: &fakeDLQ{items: []string{"run:dead-1"}}})

	rec := ts.do(t, http.MethodGet, "/api/dlq", ts.token(t, auth.Identity{Subject: "u-1"}), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/dlq", ts.token(t, auth.Identity{Subject: "ops", IsAdmin: true}), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	data := body["data"].(map[string]any)
	items := data["items"].([]any)
	assert.Equal(t, []any{"run:dead-1"}, items)
}

func TestIssueTokenDevOnly(t *testing.T) {
	ts := newTestServer(t, Deps{})

	rec := ts.do(t, http.MethodPost, "/api/auth/token", "",
		map[string]any{"subject": "dev-user", "isAdmin": true})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	data := body["data"].(map[string]any)
	token, _ := data["token"].(string)
	require.NotEmpty(t, token)

	// The minted token authenticates real requests.
	rec = ts.do(t, http.MethodGet, "/api/me", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthzOpen(t *testing.T) {
	ts := newTestServer(t, Deps{})
	rec := ts.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
