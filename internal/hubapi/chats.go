package hubapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"MultiChat/entity"
	"MultiChat/internal/lib/validate"
)

func withQuery(path string, params url.Values) string {
	if len(params) == 0 {
		return path
	}
	return path + "?" + params.Encode()
}

func (c *Client) FetchChats(ctx context.Context, params url.Values) (*entity.Page[entity.ApiChat], error) {
	var page entity.Page[entity.ApiChat]
	if err := c.Do(ctx, http.MethodGet, withQuery("/api/chats/", params), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) FetchChat(ctx context.Context, id int64) (*entity.ApiChatDetail, error) {
	var chat entity.ApiChatDetail
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/api/chats/%d/", id), nil, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

func (c *Client) CreateChat(ctx context.Context, req entity.CreateChatRequest) (*entity.ApiChat, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("validate chat: %w", err)
	}
	var chat entity.ApiChat
	if err := c.Do(ctx, http.MethodPost, "/api/chats/", req, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// UpdateChatStatus takes the backend spelling of the status, e.g. "in_progress".
func (c *Client) UpdateChatStatus(ctx context.Context, id int64, status string) error {
	body := map[string]string{"status": status}
	return c.Do(ctx, http.MethodPut, fmt.Sprintf("/api/chats/%d/status/", id), body, nil)
}

func (c *Client) AssignChat(ctx context.Context, id, managerID int64) error {
	body := map[string]int64{"manager_id": managerID}
	return c.Do(ctx, http.MethodPut, fmt.Sprintf("/api/chats/%d/assign/", id), body, nil)
}

func (c *Client) MergeChats(ctx context.Context, id, targetID int64) error {
	body := map[string]int64{"target_chat_id": targetID}
	return c.Do(ctx, http.MethodPost, fmt.Sprintf("/api/chats/%d/merge/", id), body, nil)
}

// Heartbeat marks the current manager as online.
func (c *Client) Heartbeat(ctx context.Context) error {
	return c.Do(ctx, http.MethodPost, "/api/chats/heartbeat/", nil, nil)
}
