package board

import (
	"context"

	"MultiChat/entity"
)

type Core interface {
	BoardColumns() map[entity.ChatStatus][]entity.Chat
	ReloadBoard(ctx context.Context) error
	MoveChat(ctx context.Context, chatID, status string) error
}
