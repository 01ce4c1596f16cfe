package entity

import (
	"strconv"
	"time"
)

type ChatStatus string

const (
	StatusNew        ChatStatus = "new"
	StatusInProgress ChatStatus = "in-progress"
	StatusReplied    ChatStatus = "replied"
	StatusClosed     ChatStatus = "closed"
)

// Statuses is the kanban column order.
var Statuses = []ChatStatus{StatusNew, StatusInProgress, StatusReplied, StatusClosed}

type ChatSource string

const (
	SourceWebsite  ChatSource = "website"
	SourceTelegram ChatSource = "telegram"
)

const (
	ChannelWidget   = "widget"
	ChannelTelegram = "telegram"
)

const unnamedClient = "No name"

// ApiChat is a chat as returned by the hub backend.
type ApiChat struct {
	ID               int64           `json:"id"`
	ClientName       string          `json:"client_name"`
	ClientEmail      string          `json:"client_email"`
	TelegramUsername string          `json:"telegram_username"`
	Status           string          `json:"status"`
	Channel          string          `json:"channel"`
	Site             int64           `json:"site"`
	SiteName         string          `json:"site_name"`
	AssignedManager  *int64          `json:"assigned_manager"`
	ManagerName      *string         `json:"manager_name"`
	LastMessage      *ApiLastMessage `json:"last_message"`
	UnreadCount      int             `json:"unread_count"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	ClosedAt         *time.Time      `json:"closed_at"`
}

type ApiLastMessage struct {
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	SenderType string    `json:"sender_type"`
}

// ApiChatDetail is a chat with its messages inlined.
type ApiChatDetail struct {
	ApiChat
	Messages []ApiMessage `json:"messages"`
}

// Chat is the board representation of a chat.
type Chat struct {
	ID              string     `json:"id"`
	ClientName      string     `json:"client_name"`
	ClientEmail     string     `json:"client_email,omitempty"`
	ClientTelegram  string     `json:"client_telegram,omitempty"`
	Source          ChatSource `json:"source"`
	Status          ChatStatus `json:"status"`
	LastMessage     string     `json:"last_message"`
	LastMessageTime time.Time  `json:"last_message_time"`
	UnreadCount     int        `json:"unread_count"`
	Messages        []Message  `json:"messages,omitempty"`

	APIID       int64  `json:"api_id"`
	ManagerID   *int64 `json:"manager_id,omitempty"`
	ManagerName string `json:"manager_name,omitempty"`
	SiteID      int64  `json:"site_id"`
	SiteName    string `json:"site_name"`
}

var apiToStatus = map[string]ChatStatus{
	"new":         StatusNew,
	"in_progress": StatusInProgress,
	"replied":     StatusReplied,
	"closed":      StatusClosed,
}

var statusToApi = map[ChatStatus]string{
	StatusNew:        "new",
	StatusInProgress: "in_progress",
	StatusReplied:    "replied",
	StatusClosed:     "closed",
}

func ApiChatToChat(c ApiChat) Chat {
	chat := Chat{
		ID:              strconv.FormatInt(c.ID, 10),
		ClientName:      c.ClientName,
		ClientEmail:     c.ClientEmail,
		ClientTelegram:  c.TelegramUsername,
		Source:          SourceWebsite,
		Status:          ChatStatusFromApi(c.Status),
		LastMessageTime: c.UpdatedAt,
		UnreadCount:     c.UnreadCount,
		APIID:           c.ID,
		ManagerID:       c.AssignedManager,
		SiteID:          c.Site,
		SiteName:        c.SiteName,
	}
	if chat.ClientName == "" {
		chat.ClientName = unnamedClient
	}
	if c.Channel == ChannelTelegram {
		chat.Source = SourceTelegram
	}
	if c.LastMessage != nil {
		chat.LastMessage = c.LastMessage.Content
	}
	if c.ManagerName != nil {
		chat.ManagerName = *c.ManagerName
	}
	return chat
}

// ChatStatusFromApi maps unknown backend values to StatusNew.
func ChatStatusFromApi(status string) ChatStatus {
	if s, ok := apiToStatus[status]; ok {
		return s
	}
	return StatusNew
}

func ChatStatusToApi(status ChatStatus) string {
	return statusToApi[status]
}

func (s ChatStatus) Valid() bool {
	_, ok := statusToApi[s]
	return ok
}

// CreateChatRequest opens a chat on behalf of a client.
type CreateChatRequest struct {
	Site             int64  `json:"site" validate:"required,gt=0"`
	ClientName       string `json:"client_name,omitempty"`
	ClientEmail      string `json:"client_email,omitempty" validate:"omitempty,email"`
	TelegramUsername string `json:"telegram_username,omitempty"`
	Channel          string `json:"channel,omitempty" validate:"omitempty,oneof=widget telegram"`
	InitialMessage   string `json:"initial_message,omitempty"`
}
