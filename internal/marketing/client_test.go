package marketing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}

func TestListCampaigns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/campaigns", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"campaigns": []map[string]any{
				{"id": "cmp-1", "name": "Brand", "status": "ENABLED", "cost_micros": 2500000},
			},
		})
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "test-key"})
	require.NoError(t, err)

	campaigns, err := c.ListCampaigns(context.Background())
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	assert.Equal(t, "cmp-1", campaigns[0].ID)
	assert.Equal(t, int64(2_500_000), campaigns[0].CostMicros)
}

func TestGetAccountSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/account/summary", r.URL.Path)
		_ = json.NewEncoder(w).Encode(AccountSummary{
			TotalCostMicros: 9_000_000,
			Clicks:          300,
			Impressions:     5000,
			CTR:             0.06,
		})
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	summary, err := c.GetAccountSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(9_000_000), summary.TotalCostMicros)
	assert.Equal(t, int64(300), summary.Clicks)
}

func TestQuerySearchAnalytics(t *testing.T) {
	var got SearchAnalyticsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/search-analytics", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(SearchAnalyticsResponse{
			Rows: []SearchAnalyticsRow{{Keys: []string{"seo tools"}, Clicks: 42, Position: 3.2}},
		})
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "k"})
	require.NoError(t, err)

	resp, err := c.QuerySearchAnalytics(context.Background(), SearchAnalyticsRequest{
		SiteURL:    "https://x.com",
		StartDate:  "2026-01-01",
		EndDate:    "2026-01-31",
		Dimensions: []string{"query"},
		RowLimit:   1000,
	})
	require.NoError(t, err)
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, []string{"seo tools"}, resp.Rows[0].Keys)

	assert.Equal(t, "https://x.com", got.SiteURL)
	assert.Equal(t, 1000, got.RowLimit)
}

func TestNon200SurfacesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"quota exceeded"}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.ListCampaigns(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestTrailingSlashTrimmed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/campaigns", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"campaigns": []Campaign{}})
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL + "/"})
	require.NoError(t, err)
	_, err = c.ListCampaigns(context.Background())
	require.NoError(t, err)
}
