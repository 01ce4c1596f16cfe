// Package board keeps the operator's copy of the chat board in sync with the hub.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"

	"MultiChat/entity"
	"MultiChat/internal/lib/sl"
	"MultiChat/internal/metrics"
)

var (
	ErrUnknownStatus = errors.New("unknown chat status")
	ErrChatNotFound  = errors.New("chat not found")
	ErrChatNotSynced = errors.New("chat has no hub id")
)

type Remote interface {
	FetchChats(ctx context.Context, params url.Values) (*entity.Page[entity.ApiChat], error)
	UpdateChatStatus(ctx context.Context, id int64, status string) error
}

// Listener observes every change of the board contents.
type Listener func(chats []entity.Chat)

type Board struct {
	mu       sync.Mutex
	chats    []entity.Chat
	remote   Remote
	pageSize int
	issued   uint64
	applied  uint64
	listener Listener
	metrics  *metrics.Metrics
	log      *slog.Logger
}

func New(remote Remote, pageSize int, m *metrics.Metrics, log *slog.Logger) *Board {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Board{
		remote:   remote,
		pageSize: pageSize,
		metrics:  m,
		log:      log.With(sl.Module("board")),
	}
}

func (b *Board) SetListener(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listener = l
}

// Chats returns a copy of the current board.
func (b *Board) Chats() []entity.Chat {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.copyLocked()
}

func (b *Board) Chat(id string) (entity.Chat, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.chats {
		if c.ID == id {
			return c, true
		}
	}
	return entity.Chat{}, false
}

// Columns groups the board by status in column order.
func (b *Board) Columns() map[entity.ChatStatus][]entity.Chat {
	chats := b.Chats()
	cols := make(map[entity.ChatStatus][]entity.Chat, len(entity.Statuses))
	for _, s := range entity.Statuses {
		cols[s] = []entity.Chat{}
	}
	for _, c := range chats {
		cols[c.Status] = append(cols[c.Status], c)
	}
	return cols
}

func (b *Board) copyLocked() []entity.Chat {
	out := make([]entity.Chat, len(b.chats))
	copy(out, b.chats)
	return out
}

func (b *Board) notify() {
	b.mu.Lock()
	l := b.listener
	chats := b.copyLocked()
	b.mu.Unlock()
	if l != nil {
		l(chats)
	}
}

// Reload replaces the board with the hub's view. A reload that completes after
// a later one has already been applied is discarded. On error the board is left as is.
func (b *Board) Reload(ctx context.Context) error {
	b.mu.Lock()
	b.issued++
	gen := b.issued
	b.mu.Unlock()

	b.metrics.Reload()
	page, err := b.remote.FetchChats(ctx, url.Values{"page_size": {strconv.Itoa(b.pageSize)}})
	if err != nil {
		b.log.Warn("reload chats", sl.Err(err))
		return fmt.Errorf("fetch chats: %w", err)
	}

	chats := make([]entity.Chat, 0, len(page.Results))
	for _, c := range page.Results {
		chats = append(chats, entity.ApiChatToChat(c))
	}

	b.mu.Lock()
	if gen < b.applied {
		b.mu.Unlock()
		b.log.Debug("stale reload discarded", slog.Uint64("generation", gen))
		return nil
	}
	b.applied = gen
	b.chats = chats
	b.mu.Unlock()

	b.log.Debug("board reloaded", slog.Int("chats", len(chats)))
	b.notify()
	return nil
}

// Execute applies cmd locally, commits it and on failure rolls it back and
// reloads the board so the hub's state wins.
func (b *Board) Execute(ctx context.Context, cmd Command) error {
	b.mu.Lock()
	snap := Snapshot{Chats: b.chats}
	applied := cmd.Apply(&snap)
	b.chats = snap.Chats
	b.mu.Unlock()
	if !applied {
		return nil
	}
	b.notify()

	err := cmd.Commit(ctx, b.remote)
	b.metrics.Command(cmd.Name(), err == nil)
	if err == nil {
		return nil
	}

	b.log.Warn("command rejected", slog.String("command", cmd.Name()), sl.Err(err))
	b.mu.Lock()
	snap = Snapshot{Chats: b.chats}
	cmd.Rollback(&snap)
	b.chats = snap.Chats
	b.mu.Unlock()
	b.notify()

	if rerr := b.Reload(ctx); rerr != nil {
		return errors.Join(err, rerr)
	}
	return err
}

// Drop handles a card dropped on a column. Unknown columns are ignored.
func (b *Board) Drop(ctx context.Context, chatID, column string) error {
	status := entity.ChatStatus(column)
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, column)
	}
	if _, ok := b.Chat(chatID); !ok {
		return fmt.Errorf("%w: %s", ErrChatNotFound, chatID)
	}
	return b.Execute(ctx, &StatusChange{ChatID: chatID, Status: status})
}

// ReplaceAll takes a whole rewritten board and commits every chat whose status
// differs from the current board. Chats unknown to the board are ignored.
func (b *Board) ReplaceAll(ctx context.Context, updated []entity.Chat) error {
	b.mu.Lock()
	prev := make(map[string]entity.Chat, len(b.chats))
	for _, c := range b.chats {
		prev[c.ID] = c
	}
	var changes []*StatusChange
	for _, c := range updated {
		old, ok := prev[c.ID]
		if ok && old.Status != c.Status {
			changes = append(changes, &StatusChange{
				ChatID: c.ID,
				Status: c.Status,
				apiID:  old.APIID,
				prev:   old.Status,
			})
		}
	}
	b.chats = make([]entity.Chat, len(updated))
	copy(b.chats, updated)
	b.mu.Unlock()
	b.notify()

	var errs []error
	var failed []*StatusChange
	for _, cmd := range changes {
		err := cmd.Commit(ctx, b.remote)
		b.metrics.Command(cmd.Name(), err == nil)
		if err != nil {
			errs = append(errs, fmt.Errorf("chat %s: %w", cmd.ChatID, err))
			failed = append(failed, cmd)
		}
	}
	if len(errs) == 0 {
		return nil
	}

	b.mu.Lock()
	snap := Snapshot{Chats: b.chats}
	for _, cmd := range failed {
		cmd.Rollback(&snap)
	}
	b.chats = snap.Chats
	b.mu.Unlock()

	b.log.Warn("board changes rejected", slog.Int("failed", len(errs)), slog.Int("total", len(changes)))
	if err := b.Reload(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// HandleNotification reloads the board for events that change its membership.
func (b *Board) HandleNotification(ctx context.Context, ev entity.NotificationEvent) bool {
	if !ev.ReloadsBoard() {
		return false
	}
	if err := b.Reload(ctx); err != nil {
		b.log.With(slog.String("event", ev.Type)).Debug("reload after notification failed", sl.Err(err))
	}
	return true
}
