package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"MultiChat/internal/lib/sl"
	"MultiChat/internal/metrics"
)

const (
	EventBoard   = "board"
	EventMessage = "message"
)

// ClientMessageHandler handles commands sent by operator UIs over the socket.
type ClientMessageHandler interface {
	MoveChat(ctx context.Context, chatID, status string) error
	ReloadBoard(ctx context.Context) error
}

// Event is one frame sent to operator UIs.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub keeps the attached operator UIs and broadcasts console events to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan *Event
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	handler    ClientMessageHandler
	metrics    *metrics.Metrics
	log        *slog.Logger
}

func NewHub(m *metrics.Metrics, log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		metrics:    m,
		log:        log.With(sl.Module("ws")),
	}
}

func (h *Hub) SetHandler(handler ClientMessageHandler) {
	h.handler = handler
}

// Run is the hub's event loop; it disconnects every client when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.metrics.Subscribers(0)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.metrics.Subscribers(n)
			h.log.Debug("client attached", slog.String("operator", client.operator), slog.Int("clients", n))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.metrics.Subscribers(n)

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				h.log.Warn("encode event", slog.String("type", event.Type), sl.Err(err))
				continue
			}
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.metrics.Subscribers(n)
		}
	}
}

// Subscribers is the number of attached operator UIs.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues an event for every client; it drops the event when the queue is full.
func (h *Hub) Broadcast(eventType string, data interface{}) {
	select {
	case h.broadcast <- &Event{Type: eventType, Data: data}:
	default:
		h.log.Warn("broadcast queue full", slog.String("type", eventType))
	}
}

type clientEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// HandleClientMessage parses and dispatches a frame received from an operator UI.
func (h *Hub) HandleClientMessage(ctx context.Context, operator string, raw []byte) {
	if h.handler == nil {
		return
	}

	var event clientEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		h.log.Warn("parse client message", sl.Err(err))
		return
	}

	log := h.log.With(slog.String("operator", operator), slog.String("type", event.Type))
	switch event.Type {
	case "move":
		var data struct {
			ChatID string `json:"chat_id"`
			Status string `json:"status"`
		}
		if err := json.Unmarshal(event.Data, &data); err != nil {
			log.Warn("parse move data", sl.Err(err))
			return
		}
		if data.ChatID == "" || data.Status == "" {
			return
		}
		if err := h.handler.MoveChat(ctx, data.ChatID, data.Status); err != nil {
			log.Warn("move chat", slog.String("chat", data.ChatID), sl.Err(err))
		}
	case "reload":
		if err := h.handler.ReloadBoard(ctx); err != nil {
			log.Warn("reload board", sl.Err(err))
		}
	}
}
