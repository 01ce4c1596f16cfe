// Package notify turns hub notifications into operator toasts and fans them out to sinks.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"MultiChat/entity"
	"MultiChat/internal/lib/sl"
	"MultiChat/internal/metrics"
)

const previewLength = 100

type Toast struct {
	Kind   string    `json:"kind"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	ChatID int64     `json:"chat_id,omitempty"`
	Sound  bool      `json:"sound"`
	Time   time.Time `json:"time"`
}

type Sink interface {
	Deliver(ctx context.Context, toast Toast) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, toast Toast) error

func (f SinkFunc) Deliver(ctx context.Context, toast Toast) error {
	return f(ctx, toast)
}

type Dispatcher struct {
	sinks   []Sink
	sound   bool
	metrics *metrics.Metrics
	now     func() time.Time
	log     *slog.Logger
}

func NewDispatcher(sound bool, m *metrics.Metrics, log *slog.Logger, sinks ...Sink) *Dispatcher {
	return &Dispatcher{
		sinks:   sinks,
		sound:   sound,
		metrics: m,
		now:     time.Now,
		log:     log.With(sl.Module("notify")),
	}
}

func (d *Dispatcher) AddSink(s Sink) {
	d.sinks = append(d.sinks, s)
}

// Handle delivers the toast for ev to every sink. Sink failures are logged
// and do not stop delivery to the rest.
func (d *Dispatcher) Handle(ctx context.Context, ev entity.NotificationEvent) (Toast, bool) {
	toast, ok := BuildToast(ev)
	if !ok {
		return Toast{}, false
	}
	toast.Sound = d.sound
	toast.Time = d.now()
	d.metrics.Toast(toast.Kind)

	for _, s := range d.sinks {
		if err := s.Deliver(ctx, toast); err != nil {
			d.log.With(slog.String("kind", toast.Kind)).Warn("deliver toast", sl.Err(err))
		}
	}
	return toast, true
}

// BuildToast renders the operator-facing text of ev. Event types that carry
// nothing to show report false.
func BuildToast(ev entity.NotificationEvent) (Toast, bool) {
	t := Toast{Kind: ev.Type, ChatID: ev.ChatID}
	switch ev.Type {
	case entity.EventNewChat:
		name := ev.ClientName
		if name == "" {
			name = "Client"
		}
		channel := "Widget"
		if ev.Channel == entity.ChannelTelegram {
			channel = "Telegram"
		}
		t.Title = "New chat"
		t.Body = fmt.Sprintf("%s — %s", name, channel)
	case entity.EventChatAssigned:
		t.Title = "Chat assigned"
		t.Body = fmt.Sprintf("Chat #%d has been assigned to you", ev.ChatID)
	case entity.EventChatReassigned:
		t.Title = "Chat reassigned"
		t.Body = fmt.Sprintf("Chat #%d has been reassigned", ev.ChatID)
	case entity.EventNewMessage:
		t.Title = "New message"
		t.Body = preview(ev.Content)
	default:
		return Toast{}, false
	}
	return t, true
}

func preview(content string) string {
	if content == "" {
		return "New message in chat"
	}
	r := []rune(content)
	if len(r) > previewLength {
		return string(r[:previewLength])
	}
	return content
}
