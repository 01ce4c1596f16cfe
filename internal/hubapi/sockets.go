package hubapi

import (
	"fmt"
	"net/url"
	"strings"
)

// ChatSocketURL addresses the push stream of one chat.
func (c *Client) ChatSocketURL(chatID int64) (string, error) {
	return c.socketURL(fmt.Sprintf("/ws/chat/%d/", chatID))
}

// NotificationsSocketURL addresses the process-wide notification stream.
func (c *Client) NotificationsSocketURL() (string, error) {
	return c.socketURL("/ws/notifications/")
}

func (c *Client) socketURL(path string) (string, error) {
	token := c.session.AccessToken()
	if token == "" {
		return "", ErrNoSession
	}
	base := c.baseURL
	if strings.HasPrefix(base, "http") {
		base = "ws" + strings.TrimPrefix(base, "http")
	}
	return base + path + "?token=" + url.QueryEscape(token), nil
}
