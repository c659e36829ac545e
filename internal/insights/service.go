// Package insights computes derived views: per-owner business counts merged
// onto user profiles, and marketing-data rollups.
package insights

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"rankpilot/internal/apperr"
	"rankpilot/internal/marketing"
	"rankpilot/internal/models"
)

// Store is the slice of the record store aggregation reads from.
type Store interface {
	ListUserProfiles(ctx context.Context) ([]models.UserProfile, error)
	ListActiveOwnedClients(ctx context.Context) ([]models.Client, error)
}

// MarketingAPI is the external marketing-data collaborator.
type MarketingAPI interface {
	ListCampaigns(ctx context.Context) ([]marketing.Campaign, error)
	GetAccountSummary(ctx context.Context) (marketing.AccountSummary, error)
	QuerySearchAnalytics(ctx context.Context, req marketing.SearchAnalyticsRequest) (marketing.SearchAnalyticsResponse, error)
}

// Service implements the aggregation operations.
type Service struct {
	store Store
	api   MarketingAPI
}

// NewService constructs the aggregation service.
func NewService(st Store, api MarketingAPI) *Service {
	return &Service{store: st, api: api}
}

// ListUsersWithBusinessCounts reads every profile (newest first) and merges
// on the count of active clients each one owns. The output has the same
// cardinality and order as the profile read; a profile owning nothing gets
// count zero. Any read failure aborts the whole operation.
func (s *Service) ListUsersWithBusinessCounts(ctx context.Context) ([]models.UserWithBusinessCount, error) {
	profiles, err := s.store.ListUserProfiles(ctx)
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	clients, err := s.store.ListActiveOwnedClients(ctx)
	if err != nil {
		return nil, apperr.Upstream(err)
	}

	counts := make(map[string]int, len(profiles))
	for _, c := range clients {
		if c.OwnerID != nil {
			counts[*c.OwnerID]++
		}
	}

	out := make([]models.UserWithBusinessCount, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, models.UserWithBusinessCount{
			UserProfile:   p,
			BusinessCount: counts[p.ID],
		})
	}
	return out, nil
}

// SearchPerformanceRequest carries the caller's search-performance query.
// Dimensions and RowLimit are optional.
type SearchPerformanceRequest struct {
	SiteURL    string   `json:"siteUrl"`
	StartDate  string   `json:"startDate"`
	EndDate    string   `json:"endDate"`
	Dimensions []string `json:"dimensions,omitempty"`
	RowLimit   int      `json:"rowLimit,omitempty"`
}

// Defaults applied when the caller omits the optional fields.
const DefaultRowLimit = 1000

var defaultDimensions = []string{"query"}

// FetchSearchPerformance validates the required fields, substitutes the
// documented defaults, and delegates to the marketing-data API. Caller-
// supplied dimensions and limits are forwarded untouched.
func (s *Service) FetchSearchPerformance(ctx context.Context, req SearchPerformanceRequest) (marketing.SearchAnalyticsResponse, error) {
	if req.SiteURL == "" {
		return marketing.SearchAnalyticsResponse{}, apperr.Invalid("siteUrl is required")
	}
	if req.StartDate == "" {
		return marketing.SearchAnalyticsResponse{}, apperr.Invalid("startDate is required")
	}
	if req.EndDate == "" {
		return marketing.SearchAnalyticsResponse{}, apperr.Invalid("endDate is required")
	}

	dimensions := req.Dimensions
	if len(dimensions) == 0 {
		dimensions = defaultDimensions
	}
	rowLimit := req.RowLimit
	if rowLimit == 0 {
		rowLimit = DefaultRowLimit
	}

	resp, err := s.api.QuerySearchAnalytics(ctx, marketing.SearchAnalyticsRequest{
		SiteURL:    req.SiteURL,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		Dimensions: dimensions,
		RowLimit:   rowLimit,
	})
	if err != nil {
		return marketing.SearchAnalyticsResponse{}, apperr.Upstream(err)
	}
	return resp, nil
}

// Summary is the derived account rollup returned with campaigns.
type Summary struct {
	TotalCost   float64 `json:"total_cost"`
	AvgCTR      float64 `json:"avg_ctr"` // percentage, two decimal places
	Clicks      int64   `json:"clicks"`
	Impressions int64   `json:"impressions"`
	Conversions float64 `json:"conversions"`
}

// CampaignSummary pairs the campaign list with the derived summary.
type CampaignSummary struct {
	Campaigns []marketing.Campaign `json:"campaigns"`
	Summary   Summary              `json:"summary"`
}

// FetchCampaignSummary fetches campaigns and the account summary
// concurrently, then derives total cost from micros and the average CTR as
// a percentage rounded half away from zero to two decimal places.
func (s *Service) FetchCampaignSummary(ctx context.Context) (CampaignSummary, error) {
	var (
		campaigns []marketing.Campaign
		account   marketing.AccountSummary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		campaigns, err = s.api.ListCampaigns(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		account, err = s.api.GetAccountSummary(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return CampaignSummary{}, apperr.Upstream(err)
	}

	if campaigns == nil {
		campaigns = []marketing.Campaign{}
	}
	return CampaignSummary{
		Campaigns: campaigns,
		Summary: Summary{
			TotalCost:   float64(account.TotalCostMicros) / 1_000_000,
			AvgCTR:      roundHundredths(account.CTR * 100),
			Clicks:      account.Clicks,
			Impressions: account.Impressions,
			Conversions: account.Conversions,
		},
	}, nil
}

// roundHundredths rounds half away from zero to two decimal places.
func roundHundredths(v float64) float64 {
	return math.Round(v*100) / 100
}
