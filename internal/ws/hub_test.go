package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type keyAuth string

func (k keyAuth) ValidateToken(token string) (string, error) {
	if token != string(k) {
		return "", errors.New("bad key")
	}
	return "operator", nil
}

type recordHandler struct {
	mu      sync.Mutex
	moves   [][2]string
	reloads int
	done    chan struct{}
}

func (r *recordHandler) MoveChat(ctx context.Context, chatID, status string) error {
	r.mu.Lock()
	r.moves = append(r.moves, [2]string{chatID, status})
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func (r *recordHandler) ReloadBoard(ctx context.Context) error {
	r.mu.Lock()
	r.reloads++
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func startHub(t *testing.T) (*Hub, *httptest.Server, *recordHandler) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub(nil, log)
	handler := &recordHandler{done: make(chan struct{}, 4)}
	hub.SetHandler(handler)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, keyAuth("secret"), log, w, r)
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv, handler
}

func dial(t *testing.T, srv *httptest.Server, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?token=" + token
	return websocket.DefaultDialer.Dial(u, nil)
}

func waitSubscribers(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() != n {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers = %d, want %d", hub.Subscribers(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServeWsRejectsBadKey(t *testing.T) {
	_, srv, _ := startHub(t)
	_, resp, err := dial(t, srv, "wrong")
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("resp = %+v", resp)
	}
}

func TestBroadcastReachesClients(t *testing.T) {
	hub, srv, _ := startHub(t)
	conn, _, err := dial(t, srv, "secret")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	waitSubscribers(t, hub, 1)

	hub.Broadcast(EventBoard, map[string]int{"chats": 3})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var ev struct {
		Type string         `json:"type"`
		Data map[string]int `json:"data"`
	}
	if err := json.Unmarshal(raw, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != EventBoard || ev.Data["chats"] != 3 {
		t.Errorf("event = %+v", ev)
	}

	_ = conn.Close()
	waitSubscribers(t, hub, 0)
}

func TestClientCommandsAreDispatched(t *testing.T) {
	hub, srv, handler := startHub(t)
	conn, _, err := dial(t, srv, "secret")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	waitSubscribers(t, hub, 1)

	frames := []string{
		`not json`,
		`{"type":"move","data":{"chat_id":"4"}}`,
		`{"type":"move","data":{"chat_id":"4","status":"closed"}}`,
		`{"type":"reload"}`,
	}
	for _, f := range frames {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 2; i++ {
		select {
		case <-handler.done:
		case <-time.After(2 * time.Second):
			t.Fatal("command not dispatched")
		}
	}

	handler.mu.Lock()
	defer handler.mu.Unlock()
	if len(handler.moves) != 1 || handler.moves[0] != [2]string{"4", "closed"} {
		t.Errorf("moves = %v", handler.moves)
	}
	if handler.reloads != 1 {
		t.Errorf("reloads = %d", handler.reloads)
	}
}
