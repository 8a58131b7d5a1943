package services

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

const (
	dashboardPath = "/_api/dashboard"

	// DefaultActivityLimit is the number of feed entries requested when unset.
	DefaultActivityLimit = 10
	// DefaultTrendDays is the trend window requested when unset.
	DefaultTrendDays = 7
)

// DashboardService reads account-wide dashboard data.
type DashboardService struct {
	d Doer
}

// Stats returns the headline numbers.
func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	if err := s.d.Do(ctx, get(dashboardPath+"/stats", nil), &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// RecentActivity returns the newest feed entries. limit <= 0 uses the default.
func (s *DashboardService) RecentActivity(ctx context.Context, limit int) ([]ActivityItem, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	q := url.Values{"limit": {strconv.Itoa(limit)}}

	var raw json.RawMessage
	if err := s.d.Do(ctx, get(dashboardPath+"/activity", q), &raw); err != nil {
		return nil, err
	}
	return decodeList[ActivityItem](raw, "activity")
}

// UsageTrend returns one row per day. days <= 0 uses the default.
func (s *DashboardService) UsageTrend(ctx context.Context, days int) ([]UsageTrend, error) {
	if days <= 0 {
		days = DefaultTrendDays
	}
	q := url.Values{"days": {strconv.Itoa(days)}}

	var raw json.RawMessage
	if err := s.d.Do(ctx, get(dashboardPath+"/usage-trend", q), &raw); err != nil {
		return nil, err
	}
	return decodeList[UsageTrend](raw, "trend")
}

// ProviderStats returns the usage split by upstream provider.
func (s *DashboardService) ProviderStats(ctx context.Context) ([]ProviderStats, error) {
	var raw json.RawMessage
	if err := s.d.Do(ctx, get(dashboardPath+"/provider-stats", nil), &raw); err != nil {
		return nil, err
	}
	return decodeList[ProviderStats](raw, "providers")
}
