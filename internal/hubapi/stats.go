package hubapi

import (
	"context"
	"net/http"
	"net/url"

	"MultiChat/entity"
)

// Periods accepted by the stats endpoints.
const (
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"
)

func periodQuery(period string) url.Values {
	if period == "" {
		return nil
	}
	return url.Values{"period": {period}}
}

func (c *Client) StatsOverview(ctx context.Context, period string) (*entity.StatsOverview, error) {
	var stats entity.StatsOverview
	if err := c.Do(ctx, http.MethodGet, withQuery("/api/stats/overview/", periodQuery(period)), nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) ManagerStats(ctx context.Context, period string) ([]entity.ManagerStats, error) {
	var stats []entity.ManagerStats
	if err := c.Do(ctx, http.MethodGet, withQuery("/api/stats/managers/", periodQuery(period)), nil, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (c *Client) StatsTimeline(ctx context.Context, period string) ([]entity.TimelineItem, error) {
	var tl entity.Timeline
	if err := c.Do(ctx, http.MethodGet, withQuery("/api/stats/timeline/", periodQuery(period)), nil, &tl); err != nil {
		return nil, err
	}
	return tl.Timeline, nil
}

func (c *Client) RatingsStats(ctx context.Context) (*entity.RatingsStats, error) {
	var stats entity.RatingsStats
	if err := c.Do(ctx, http.MethodGet, "/api/stats/ratings/", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
