package hubapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"MultiChat/entity"
	"MultiChat/internal/lib/sl"
	"MultiChat/internal/lib/validate"
)

const defaultCDN = "https://cdn.multichat.io/widget.js"

func (c *Client) FetchSites(ctx context.Context) (*entity.Page[entity.ApiSite], error) {
	var page entity.Page[entity.ApiSite]
	if err := c.Do(ctx, http.MethodGet, "/api/sites/", nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) FetchSite(ctx context.Context, id int64) (*entity.ApiSite, error) {
	var site entity.ApiSite
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/api/sites/%d/", id), nil, &site); err != nil {
		return nil, err
	}
	return &site, nil
}

func (c *Client) CreateSite(ctx context.Context, req entity.CreateSiteRequest) (*entity.ApiSite, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("validate site: %w", err)
	}
	var site entity.ApiSite
	if err := c.Do(ctx, http.MethodPost, "/api/sites/", req, &site); err != nil {
		return nil, err
	}
	return &site, nil
}

func (c *Client) UpdateSite(ctx context.Context, id int64, upd entity.SiteUpdate) (*entity.ApiSite, error) {
	if err := validate.Struct(upd); err != nil {
		return nil, fmt.Errorf("validate site update: %w", err)
	}
	var site entity.ApiSite
	if err := c.Do(ctx, http.MethodPatch, fmt.Sprintf("/api/sites/%d/", id), upd, &site); err != nil {
		return nil, err
	}
	return &site, nil
}

func (c *Client) DeleteSite(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/api/sites/%d/", id), nil, nil)
}

func (c *Client) FetchWidgetCode(ctx context.Context, id int64) (string, error) {
	var code entity.WidgetCode
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/api/sites/%d/widget-code/", id), nil, &code); err != nil {
		return "", err
	}
	return code.EmbedCode, nil
}

// EmbedCode asks the hub for the site snippet and renders it locally from
// the site UUID when the hub cannot provide one.
func (c *Client) EmbedCode(ctx context.Context, site entity.ApiSite) (string, error) {
	code, err := c.FetchWidgetCode(ctx, site.ID)
	if err == nil && code != "" {
		return code, nil
	}
	if err != nil {
		c.log.With(slog.Int64("site", site.ID)).Debug("widget code fallback", sl.Err(err))
	}
	return entity.EmbedCode(c.cdnURL, site.SiteUUID)
}

func (c *Client) SetupTelegram(ctx context.Context, siteID int64) (*entity.TelegramSetup, error) {
	var setup entity.TelegramSetup
	if err := c.Do(ctx, http.MethodPost, fmt.Sprintf("/api/sites/%d/setup-telegram/", siteID), nil, &setup); err != nil {
		return nil, err
	}
	return &setup, nil
}

// ConnectTelegram stores the bot token on the site and registers the webhook.
func (c *Client) ConnectTelegram(ctx context.Context, siteID int64, botToken string) (*entity.TelegramSetup, error) {
	if botToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	if _, err := c.UpdateSite(ctx, siteID, entity.SiteUpdate{TelegramBotToken: &botToken}); err != nil {
		return nil, fmt.Errorf("save bot token: %w", err)
	}
	setup, err := c.SetupTelegram(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("setup telegram: %w", err)
	}
	c.log.With(
		slog.Int64("site", siteID),
		slog.String("bot", setup.BotUsername),
		slog.Bool("ok", setup.Ok),
	).Info("telegram connected")
	return setup, nil
}

func (c *Client) DisconnectTelegram(ctx context.Context, siteID int64) error {
	empty := ""
	if _, err := c.UpdateSite(ctx, siteID, entity.SiteUpdate{TelegramBotToken: &empty}); err != nil {
		return fmt.Errorf("clear bot token: %w", err)
	}
	return nil
}
