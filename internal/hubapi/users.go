package hubapi

import (
	"context"
	"fmt"
	"net/http"

	"MultiChat/entity"
	"MultiChat/internal/lib/validate"
)

func (c *Client) FetchUsers(ctx context.Context) (*entity.Page[entity.Manager], error) {
	var page entity.Page[entity.Manager]
	if err := c.Do(ctx, http.MethodGet, "/api/users/", nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) CreateUser(ctx context.Context, req entity.CreateUserRequest) (*entity.Manager, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("validate user: %w", err)
	}
	var m entity.Manager
	if err := c.Do(ctx, http.MethodPost, "/api/users/", req, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) UpdateUser(ctx context.Context, id int64, req entity.UpdateUserRequest) (*entity.Manager, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("validate user update: %w", err)
	}
	var m entity.Manager
	if err := c.Do(ctx, http.MethodPatch, fmt.Sprintf("/api/users/%d/", id), req, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/api/users/%d/", id), nil, nil)
}

func (c *Client) FetchTemplates(ctx context.Context) (*entity.Page[entity.Template], error) {
	var page entity.Page[entity.Template]
	if err := c.Do(ctx, http.MethodGet, "/api/chats/templates/", nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) CreateTemplate(ctx context.Context, req entity.CreateTemplateRequest) (*entity.Template, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("validate template: %w", err)
	}
	var tpl entity.Template
	if err := c.Do(ctx, http.MethodPost, "/api/chats/templates/", req, &tpl); err != nil {
		return nil, err
	}
	return &tpl, nil
}
