package hubapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"MultiChat/entity"
	"MultiChat/internal/lib/validate"
)

// Login authenticates with email and password and stores the issued pair.
func (c *Client) Login(ctx context.Context, req entity.LoginRequest) (*entity.TokenPair, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("validate login: %w", err)
	}
	var pair entity.TokenPair
	if err := c.Do(ctx, http.MethodPost, "/api/auth/login/", req, &pair); err != nil {
		return nil, err
	}
	if err := c.session.SetTokens(pair.Access, pair.Refresh); err != nil {
		return nil, err
	}
	c.log.Info("logged in", slog.String("email", req.Email))
	return &pair, nil
}

// Register creates an organization owner account and logs in with it.
func (c *Client) Register(ctx context.Context, req entity.RegisterRequest) (*entity.UserProfile, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("validate registration: %w", err)
	}
	var profile entity.UserProfile
	if err := c.Do(ctx, http.MethodPost, "/api/auth/register/", req, &profile); err != nil {
		return nil, err
	}
	if _, err := c.Login(ctx, entity.LoginRequest{Email: req.Email, Password: req.Password}); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) Profile(ctx context.Context) (*entity.UserProfile, error) {
	var profile entity.UserProfile
	if err := c.Do(ctx, http.MethodGet, "/api/auth/me/", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) UpdateProfile(ctx context.Context, upd entity.ProfileUpdate) (*entity.UserProfile, error) {
	if err := validate.Struct(upd); err != nil {
		return nil, fmt.Errorf("validate profile: %w", err)
	}
	var profile entity.UserProfile
	if err := c.Do(ctx, http.MethodPatch, "/api/auth/me/", upd, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) ChangePassword(ctx context.Context, req entity.ChangePasswordRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("validate password change: %w", err)
	}
	return c.Do(ctx, http.MethodPost, "/api/auth/change-password/", req, nil)
}

// Logout forgets the local session; the hub keeps no server side state for it.
func (c *Client) Logout() error {
	return c.session.Clear()
}
