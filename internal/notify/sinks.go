package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"
)

var ErrThrottled = errors.New("toast throttled")

// LogSink writes toasts to the process log.
type LogSink struct {
	Log *slog.Logger
}

func (s LogSink) Deliver(_ context.Context, t Toast) error {
	s.Log.With(
		slog.String("kind", t.Kind),
		slog.Int64("chat", t.ChatID),
	).Info(t.Title, slog.String("body", t.Body))
	return nil
}

type Sender interface {
	SendMessage(msg string)
}

// Presence reports how many operator UIs are currently attached.
type Presence interface {
	Subscribers() int
}

// TelegramSink pushes toasts to the admin chat while no operator UI is
// attached. With a nil Presence every toast is sent; with a nil Limiter
// nothing is throttled.
type TelegramSink struct {
	Sender   Sender
	Presence Presence
	Limiter  *rate.Limiter
}

func (s TelegramSink) Deliver(_ context.Context, t Toast) error {
	if s.Sender == nil {
		return fmt.Errorf("telegram sink has no sender")
	}
	if s.Presence != nil && s.Presence.Subscribers() > 0 {
		return nil
	}
	if s.Limiter != nil && !s.Limiter.Allow() {
		return ErrThrottled
	}
	text := fmt.Sprintf("%s\n%s", t.Title, t.Body)
	if t.ChatID != 0 {
		text = fmt.Sprintf("%s\nchat: %d", text, t.ChatID)
	}
	s.Sender.SendMessage(text)
	return nil
}

type Broadcaster interface {
	Broadcast(eventType string, data interface{})
}

// HubSink forwards toasts to attached operator UIs.
type HubSink struct {
	Hub Broadcaster
}

const EventToast = "toast"

func (s HubSink) Deliver(_ context.Context, t Toast) error {
	s.Hub.Broadcast(EventToast, t)
	return nil
}
