package realtime

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// pushServer accepts sockets, writes the scripted frames and hangs up.
type pushServer struct {
	frames   []string
	hold     bool
	connects atomic.Int32
	tokens   chan string
}

func (p *pushServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	p.connects.Add(1)
	if p.tokens != nil {
		select {
		case p.tokens <- r.URL.Query().Get("token"):
		default:
		}
	}
	for _, f := range p.frames {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
			return
		}
	}
	if p.hold {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func wsURL(srv *httptest.Server) URLFunc {
	return func() (string, error) {
		return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/notifications/?token=t", nil
	}
}

func collect(t *testing.T, ch *Channel, n int) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(3 * time.Second)
	for len(out) < n {
		select {
		case ev, ok := <-ch.Events():
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("timed out after %d of %d events", len(out), n)
		}
	}
	return out
}

func TestEventsInArrivalOrderAndMalformedDropped(t *testing.T) {
	push := &pushServer{
		frames: []string{
			`{"type":"new_chat","chat_id":1}`,
			`not json`,
			`{"no_type":true}`,
			`{"type":"new_message","content":"hi"}`,
		},
		hold: true,
	}
	srv := httptest.NewServer(push)
	defer srv.Close()

	ch, err := Open(context.Background(), wsURL(srv), testLogger(), Options{Name: "notifications"})
	if err != nil {
		t.Fatal(err)
	}
	defer ch.Close()

	events := collect(t, ch, 2)
	if events[0].Type != "new_chat" || events[1].Type != "new_message" {
		t.Fatalf("events = %+v", events)
	}
	var body struct {
		Content string `json:"content"`
	}
	if err := events[1].Decode(&body); err != nil || body.Content != "hi" {
		t.Errorf("decode = %+v %v", body, err)
	}
	if ch.State() != StateOpen {
		t.Errorf("state = %s", ch.State())
	}
}

func TestChannelWithoutReconnectEndsOnClose(t *testing.T) {
	push := &pushServer{frames: []string{`{"type":"chat.message"}`}}
	srv := httptest.NewServer(push)
	defer srv.Close()

	ch, err := Open(context.Background(), wsURL(srv), testLogger(), Options{Name: "chat", RetryDelay: 10 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}

	events := collect(t, ch, 1)
	if len(events) != 1 {
		t.Fatalf("events = %+v", events)
	}
	select {
	case <-ch.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("channel did not end")
	}
	time.Sleep(50 * time.Millisecond)
	if n := push.connects.Load(); n != 1 {
		t.Errorf("connected %d times", n)
	}
	if ch.State() != StateClosed {
		t.Errorf("state = %s", ch.State())
	}
}

func TestNotificationChannelReconnectsAfterDelay(t *testing.T) {
	push := &pushServer{frames: []string{`{"type":"new_chat"}`}}
	srv := httptest.NewServer(push)
	defer srv.Close()

	var mu sync.Mutex
	var states []State
	ch, err := Open(context.Background(), wsURL(srv), testLogger(), Options{
		Name:       "notifications",
		Reconnect:  true,
		RetryDelay: 20 * time.Millisecond,
		OnState: func(s State) {
			mu.Lock()
			states = append(states, s)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	events := collect(t, ch, 3)
	ch.Close()

	if len(events) != 3 {
		t.Fatalf("events = %d", len(events))
	}
	if n := push.connects.Load(); n < 3 {
		t.Errorf("connects = %d", n)
	}

	mu.Lock()
	defer mu.Unlock()
	var pending int
	for _, s := range states {
		if s == StateClosedPendingRetry {
			pending++
		}
	}
	if pending < 2 {
		t.Errorf("states = %v", states)
	}
	if states[len(states)-1] != StateClosed {
		t.Errorf("final state = %s", states[len(states)-1])
	}
}

func TestOpenWithoutSession(t *testing.T) {
	noSession := errors.New("no session")
	_, err := Open(context.Background(), func() (string, error) { return "", noSession }, testLogger(), Options{})
	if !errors.Is(err, noSession) {
		t.Errorf("err = %v", err)
	}
}

func TestReconnectUsesFreshURL(t *testing.T) {
	push := &pushServer{tokens: make(chan string, 8)}
	srv := httptest.NewServer(push)
	defer srv.Close()

	var n atomic.Int32
	url := func() (string, error) {
		i := n.Add(1)
		return "ws" + strings.TrimPrefix(srv.URL, "http") + "/?token=t" + string(rune('0'+i)), nil
	}
	ch, err := Open(context.Background(), url, testLogger(), Options{Reconnect: true, RetryDelay: 10 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	defer ch.Close()

	first := <-push.tokens
	second := <-push.tokens
	if first == second {
		t.Errorf("token not re-read: %q %q", first, second)
	}
}

func TestCloseStopsRetryLoop(t *testing.T) {
	ch, err := Open(context.Background(), func() (string, error) { return "ws://127.0.0.1:1/ws/", nil }, testLogger(), Options{
		Reconnect:  true,
		RetryDelay: time.Hour,
	})
	if err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(3 * time.Second)
	for ch.State() != StateClosedPendingRetry && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if ch.State() != StateClosedPendingRetry {
		t.Fatalf("state = %s", ch.State())
	}
	ch.Close()
	if ch.State() != StateClosed {
		t.Errorf("state = %s", ch.State())
	}
	if _, ok := <-ch.Events(); ok {
		t.Error("events channel still open")
	}
}
