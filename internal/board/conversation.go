package board

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"MultiChat/entity"
	"MultiChat/internal/lib/sl"
	"MultiChat/internal/realtime"
)

type MessageRemote interface {
	FetchMessages(ctx context.Context, chatID int64) (*entity.Page[entity.ApiMessage], error)
	SendMessage(ctx context.Context, chatID int64, content string) (*entity.ApiMessage, error)
}

// ChannelOpener opens the push stream of one chat.
type ChannelOpener func(ctx context.Context, chatID int64) (*realtime.Channel, error)

// Conversation is the open detail view of one chat. Its push channel lives
// exactly as long as the view and is never reconnected.
type Conversation struct {
	mu       sync.Mutex
	chat     entity.Chat
	messages []entity.Message
	seen     map[string]struct{}
	draft    string
	remote   MessageRemote
	opener   ChannelOpener
	channel  *realtime.Channel
	consumed chan struct{}
	onAppend func(entity.Message)
	now      func() time.Time
	log      *slog.Logger
}

func NewConversation(chat entity.Chat, remote MessageRemote, opener ChannelOpener, log *slog.Logger) *Conversation {
	return &Conversation{
		chat:   chat,
		seen:   make(map[string]struct{}),
		remote: remote,
		opener: opener,
		now:    time.Now,
		log:    log.With(sl.Module("conversation"), slog.String("chat", chat.ID)),
	}
}

func (c *Conversation) Chat() entity.Chat {
	return c.chat
}

// OnAppend observes messages appended after Open.
func (c *Conversation) OnAppend(fn func(entity.Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onAppend = fn
}

// Open loads the history and starts listening for pushed messages. A failed
// history load falls back to the messages cached on the chat.
func (c *Conversation) Open(ctx context.Context) error {
	if c.chat.APIID == 0 {
		c.reset(c.chat.Messages)
		return nil
	}

	page, err := c.remote.FetchMessages(ctx, c.chat.APIID)
	if err != nil {
		c.log.Warn("load messages", sl.Err(err))
		c.reset(c.chat.Messages)
	} else {
		msgs := make([]entity.Message, 0, len(page.Results))
		for _, m := range page.Results {
			msgs = append(msgs, entity.ApiMessageToMessage(m))
		}
		c.reset(msgs)
	}

	if c.opener == nil {
		return nil
	}
	ch, err := c.opener(ctx, c.chat.APIID)
	if err != nil {
		return fmt.Errorf("open chat channel: %w", err)
	}
	c.mu.Lock()
	c.channel = ch
	c.consumed = make(chan struct{})
	done := c.consumed
	c.mu.Unlock()
	go c.consume(ch, done)
	return nil
}

func (c *Conversation) reset(msgs []entity.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = make([]entity.Message, 0, len(msgs))
	c.seen = make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		c.messages = append(c.messages, m)
		if !m.Local {
			c.seen[m.ID] = struct{}{}
		}
	}
}

func (c *Conversation) consume(ch *realtime.Channel, done chan struct{}) {
	defer close(done)
	for ev := range ch.Events() {
		if ev.Type != entity.EventChatMessage {
			continue
		}
		var payload entity.ChatEvent
		if err := ev.Decode(&payload); err != nil {
			c.log.Debug("malformed chat event", sl.Err(err))
			continue
		}
		c.Push(entity.ApiMessageToMessage(payload.Message))
	}
}

// Push appends a message delivered by the hub. A message whose hub id is
// already present is not appended again; local copies are never matched.
func (c *Conversation) Push(msg entity.Message) bool {
	c.mu.Lock()
	if _, dup := c.seen[msg.ID]; dup {
		c.mu.Unlock()
		return false
	}
	c.seen[msg.ID] = struct{}{}
	c.messages = append(c.messages, msg)
	cb := c.onAppend
	c.mu.Unlock()

	if cb != nil {
		cb(msg)
	}
	return true
}

func (c *Conversation) Messages() []entity.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]entity.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) SetDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = text
}

func (c *Conversation) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Send posts the draft. The draft is cleared before the request goes out. On
// success nothing is appended: the hub echoes the message on the chat channel.
// On failure, or for a chat the hub does not know, a local manager message is
// appended so the text is not lost from view.
func (c *Conversation) Send(ctx context.Context) error {
	c.mu.Lock()
	text := strings.TrimSpace(c.draft)
	if text == "" {
		c.mu.Unlock()
		return nil
	}
	c.draft = ""
	c.mu.Unlock()

	if c.chat.APIID == 0 {
		c.keepLocal(text)
		return fmt.Errorf("send message: %w", ErrChatNotSynced)
	}

	if _, err := c.remote.SendMessage(ctx, c.chat.APIID, text); err != nil {
		c.log.Warn("send message", sl.Err(err))
		c.keepLocal(text)
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (c *Conversation) keepLocal(text string) {
	local := entity.NewLocalMessage(c.chat.ID, text, c.now())
	c.mu.Lock()
	c.messages = append(c.messages, local)
	cb := c.onAppend
	c.mu.Unlock()
	if cb != nil {
		cb(local)
	}
}

// Close ends the push channel.
func (c *Conversation) Close() {
	c.mu.Lock()
	ch := c.channel
	done := c.consumed
	c.channel = nil
	c.mu.Unlock()
	if ch == nil {
		return
	}
	ch.Close()
	<-done
}
