package site

import (
	"context"

	"MultiChat/entity"
)

type Core interface {
	Sites(ctx context.Context) ([]entity.ApiSite, error)
	SiteEmbedCode(ctx context.Context, siteID int64) (string, error)
}
