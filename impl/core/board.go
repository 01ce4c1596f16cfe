package core

import (
	"context"
	"fmt"
	"log/slog"

	"MultiChat/entity"
	"MultiChat/internal/board"
	"MultiChat/internal/lib/sl"
	"MultiChat/internal/realtime"
	"MultiChat/internal/ws"
)

func (c *Core) BoardColumns() map[entity.ChatStatus][]entity.Chat {
	return c.board.Columns()
}

func (c *Core) ReloadBoard(ctx context.Context) error {
	return c.board.Reload(ctx)
}

func (c *Core) MoveChat(ctx context.Context, chatID, status string) error {
	return c.board.Drop(ctx, chatID, status)
}

// ChatMessages makes chatID the open conversation and returns its messages.
func (c *Core) ChatMessages(ctx context.Context, chatID string) ([]entity.Message, error) {
	conv, err := c.openConversation(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return conv.Messages(), nil
}

func (c *Core) SendChatMessage(ctx context.Context, chatID, content string) error {
	conv, err := c.openConversation(ctx, chatID)
	if err != nil {
		return err
	}
	conv.SetDraft(content)
	return conv.Send(ctx)
}

// openConversation keeps at most one conversation open; switching chats
// closes the previous one together with its push channel.
func (c *Core) openConversation(ctx context.Context, chatID string) (*board.Conversation, error) {
	c.convMu.Lock()
	defer c.convMu.Unlock()

	if c.conv != nil && c.conv.Chat().ID == chatID {
		return c.conv, nil
	}
	chat, ok := c.board.Chat(chatID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", board.ErrChatNotFound, chatID)
	}
	if c.conv != nil {
		c.conv.Close()
		c.conv = nil
	}

	conv := board.NewConversation(chat, c.api, c.openChatChannel, c.log)
	conv.OnAppend(func(msg entity.Message) {
		c.broadcast(ws.EventMessage, msg)
	})
	if err := conv.Open(ctx); err != nil {
		c.log.With(slog.String("chat", chatID)).Warn("chat channel not opened", sl.Err(err))
	}
	c.conv = conv
	return conv, nil
}

// CloseConversation closes the open conversation, if any.
func (c *Core) CloseConversation() {
	c.convMu.Lock()
	defer c.convMu.Unlock()
	if c.conv != nil {
		c.conv.Close()
		c.conv = nil
	}
}

// openChatChannel binds the chat channel to the core's lifetime rather than
// to the request that opened the conversation.
func (c *Core) openChatChannel(_ context.Context, chatID int64) (*realtime.Channel, error) {
	opts := c.realtime
	opts.Name = "chat"
	opts.Reconnect = false
	return realtime.Open(c.context(), func() (string, error) {
		return c.api.ChatSocketURL(chatID)
	}, c.log, opts)
}
