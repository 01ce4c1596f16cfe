package board

import (
	"context"

	"MultiChat/entity"
)

// Snapshot is the mutable view of the board a command applies to.
type Snapshot struct {
	Chats []entity.Chat
}

func (s *Snapshot) find(id string) *entity.Chat {
	for i := range s.Chats {
		if s.Chats[i].ID == id {
			return &s.Chats[i]
		}
	}
	return nil
}

// Command is an optimistic mutation: Apply changes local state immediately,
// Commit confirms it with the hub and Rollback undoes the local change when
// the hub refuses it.
type Command interface {
	Name() string
	// Apply reports false when the command changes nothing and needs no commit.
	Apply(s *Snapshot) bool
	Commit(ctx context.Context, r Remote) error
	Rollback(s *Snapshot)
}

// StatusChange moves one chat to another kanban column.
type StatusChange struct {
	ChatID string
	Status entity.ChatStatus

	apiID int64
	prev  entity.ChatStatus
}

func (c *StatusChange) Name() string {
	return "status_change"
}

func (c *StatusChange) Apply(s *Snapshot) bool {
	chat := s.find(c.ChatID)
	if chat == nil || chat.Status == c.Status {
		return false
	}
	c.apiID = chat.APIID
	c.prev = chat.Status
	chat.Status = c.Status
	return true
}

func (c *StatusChange) Commit(ctx context.Context, r Remote) error {
	return r.UpdateChatStatus(ctx, c.apiID, entity.ChatStatusToApi(c.Status))
}

// Rollback leaves the chat alone if something else already moved it.
func (c *StatusChange) Rollback(s *Snapshot) {
	chat := s.find(c.ChatID)
	if chat != nil && chat.Status == c.Status {
		chat.Status = c.prev
	}
}
