// Package marketing is the HTTP client for the external marketing-data API:
// campaigns, account summaries, and search-performance analytics.
package marketing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config holds the settings needed to construct a Client.
type Config struct {
	// BaseURL is the root URL of the marketing-data API.
	BaseURL string

	// APIKey is sent as a bearer token on every request.
	APIKey string

	// HTTPClient is an optional custom HTTP client. If nil, a default client
	// with a 30-second timeout is used.
	HTTPClient *http.Client

	// Timeout applies to individual API requests. Defaults to 30 seconds.
	Timeout time.Duration
}

// Client talks to the marketing-data API. All methods are safe for
// concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a Client from the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("marketing: BaseURL is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  httpClient,
	}, nil
}

// Campaign is one advertising campaign as reported by the API.
type Campaign struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Status      string  `json:"status"`
	CostMicros  int64   `json:"cost_micros"`
	Clicks      int64   `json:"clicks"`
	Impressions int64   `json:"impressions"`
	CTR         float64 `json:"ctr"`
}

// AccountSummary is the account-level rollup.
type AccountSummary struct {
	TotalCostMicros int64   `json:"total_cost_micros"`
	Clicks          int64   `json:"clicks"`
	Impressions     int64   `json:"impressions"`
	Conversions     float64 `json:"conversions"`
	CTR             float64 `json:"ctr"` // fractional ratio, e.g. 0.042
}

// SearchAnalyticsRequest queries dimensional search performance for a site.
type SearchAnalyticsRequest struct {
	SiteURL    string   `json:"site_url"`
	StartDate  string   `json:"start_date"`
	EndDate    string   `json:"end_date"`
	Dimensions []string `json:"dimensions"`
	RowLimit   int      `json:"row_limit"`
}

// SearchAnalyticsRow is one dimensional result row.
type SearchAnalyticsRow struct {
	Keys        []string `json:"keys"`
	Clicks      int64    `json:"clicks"`
	Impressions int64    `json:"impressions"`
	CTR         float64  `json:"ctr"`
	Position    float64  `json:"position"`
}

// SearchAnalyticsResponse carries the rows for a search-performance query.
type SearchAnalyticsResponse struct {
	Rows []SearchAnalyticsRow `json:"rows"`
}

// ListCampaigns fetches all campaigns.
func (c *Client) ListCampaigns(ctx context.Context) ([]Campaign, error) {
	var out struct {
		Campaigns []Campaign `json:"campaigns"`
	}
	if err := c.get(ctx, "/v1/campaigns", &out); err != nil {
		return nil, err
	}
	return out.Campaigns, nil
}

// GetAccountSummary fetches the account-level rollup.
func (c *Client) GetAccountSummary(ctx context.Context) (AccountSummary, error) {
	var out AccountSummary
	if err := c.get(ctx, "/v1/account/summary", &out); err != nil {
		return AccountSummary{}, err
	}
	return out, nil
}

// QuerySearchAnalytics runs a dimensional search-performance query. The
// request is forwarded as given; defaulting is the caller's concern.
func (c *Client) QuerySearchAnalytics(ctx context.Context, req SearchAnalyticsRequest) (SearchAnalyticsResponse, error) {
	var out SearchAnalyticsResponse
	if err := c.post(ctx, "/v1/search-analytics", req, &out); err != nil {
		return SearchAnalyticsResponse{}, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("marketing: build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marketing: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("marketing: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("marketing: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("marketing: %s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("marketing: decode response: %w", err)
	}
	return nil
}
