package entity

import (
	"strconv"
	"time"
)

const (
	SenderClient  = "client"
	SenderManager = "manager"
	SenderSystem  = "system"
)

type ApiMessage struct {
	ID         int64     `json:"id"`
	Chat       int64     `json:"chat"`
	SenderType string    `json:"sender_type"`
	Sender     *int64    `json:"sender"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	Files      []ApiFile `json:"files"`
}

// Message is a chat message in the order it was received.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id,omitempty"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"` // "client" | "manager"
	Timestamp time.Time `json:"timestamp"`
	Files     []ApiFile `json:"files,omitempty"`
	// Local marks a message that exists only in this process.
	Local bool `json:"local,omitempty"`
}

func ApiMessageToMessage(m ApiMessage) Message {
	sender := SenderManager
	if m.SenderType == SenderClient {
		sender = SenderClient
	}
	msg := Message{
		ID:        strconv.FormatInt(m.ID, 10),
		Content:   m.Content,
		Sender:    sender,
		Timestamp: m.Timestamp,
		Files:     m.Files,
	}
	if m.Chat != 0 {
		msg.ChatID = strconv.FormatInt(m.Chat, 10)
	}
	return msg
}

// NewLocalMessage builds a manager message that was never persisted by the backend.
func NewLocalMessage(chatID, content string, now time.Time) Message {
	return Message{
		ID:        strconv.FormatInt(now.UnixMilli(), 10),
		ChatID:    chatID,
		Content:   content,
		Sender:    SenderManager,
		Timestamp: now,
		Local:     true,
	}
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"required"`
}
