package core

import (
	"context"
	"fmt"

	"MultiChat/entity"
)

func (c *Core) Sites(ctx context.Context) ([]entity.ApiSite, error) {
	page, err := c.api.FetchSites(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch sites: %w", err)
	}
	return page.Results, nil
}

func (c *Core) SiteEmbedCode(ctx context.Context, siteID int64) (string, error) {
	site, err := c.api.FetchSite(ctx, siteID)
	if err != nil {
		return "", fmt.Errorf("fetch site: %w", err)
	}
	return c.api.EmbedCode(ctx, *site)
}

func (c *Core) Managers(ctx context.Context) ([]entity.Manager, error) {
	page, err := c.api.FetchUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch managers: %w", err)
	}
	return page.Results, nil
}

func (c *Core) StatsOverview(ctx context.Context, period string) (*entity.StatsOverview, error) {
	return c.api.StatsOverview(ctx, period)
}
