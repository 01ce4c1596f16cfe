package hubapi

import (
	"context"
	"fmt"
	"net/http"

	"MultiChat/entity"
)

func (c *Client) FetchMessages(ctx context.Context, chatID int64) (*entity.Page[entity.ApiMessage], error) {
	var page entity.Page[entity.ApiMessage]
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/api/chats/%d/messages/", chatID), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, content string) (*entity.ApiMessage, error) {
	var msg entity.ApiMessage
	body := entity.SendMessageRequest{Content: content}
	if err := c.Do(ctx, http.MethodPost, fmt.Sprintf("/api/chats/%d/messages/", chatID), body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendMessageWithFiles posts the message as multipart form data.
func (c *Client) SendMessageWithFiles(ctx context.Context, chatID int64, content string, uploads []entity.Upload) (*entity.ApiMessage, error) {
	body, err := NewMultipart(map[string]string{"content": content}, uploads)
	if err != nil {
		return nil, err
	}
	var msg entity.ApiMessage
	if err := c.Do(ctx, http.MethodPost, fmt.Sprintf("/api/chats/%d/messages/", chatID), body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
