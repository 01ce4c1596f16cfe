package chat

import (
	"context"

	"MultiChat/entity"
)

type Core interface {
	ChatMessages(ctx context.Context, chatID string) ([]entity.Message, error)
	SendChatMessage(ctx context.Context, chatID, content string) error
}
