// Package realtime keeps push channels to the hub open.
//
// A Channel moves through Connecting -> Open -> ClosedPendingRetry -> Connecting
// and ends in Closed. Channels without reconnect end at their first close.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"MultiChat/internal/lib/sl"
	"MultiChat/internal/metrics"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 512 * 1024

	DefaultRetryDelay = 5 * time.Second
)

type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosedPendingRetry
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosedPendingRetry:
		return "closed-pending-retry"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Event is one decoded frame; Raw keeps the whole frame for typed decoding.
type Event struct {
	Type string
	Raw  json.RawMessage
}

func (e Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Raw, v)
}

// URLFunc resolves the socket address; it is called before every connect so a
// refreshed access token is picked up.
type URLFunc func() (string, error)

type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

type Options struct {
	// Name labels logs and metrics, e.g. "chat" or "notifications".
	Name       string
	Reconnect  bool
	RetryDelay time.Duration
	Buffer     int
	Dialer     Dialer
	Metrics    *metrics.Metrics
	// OnState observes every transition.
	OnState func(State)
}

type Channel struct {
	opts   Options
	url    URLFunc
	log    *slog.Logger
	events chan Event
	state  atomic.Int32
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Open starts a channel. It fails without dialing when the URL cannot be built,
// which is how a missing session keeps channels closed.
func Open(ctx context.Context, url URLFunc, log *slog.Logger, opts Options) (*Channel, error) {
	if _, err := url(); err != nil {
		return nil, err
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 64
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &Channel{
		opts:   opts,
		url:    url,
		log:    log.With(sl.Module("realtime"), slog.String("channel", opts.Name)),
		events: make(chan Event, opts.Buffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go c.run(ctx)
	return c, nil
}

// Events delivers frames in arrival order and is closed when the channel ends.
func (c *Channel) Events() <-chan Event {
	return c.events
}

func (c *Channel) State() State {
	return State(c.state.Load())
}

func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Close stops the channel without reconnecting and waits for it to end.
func (c *Channel) Close() {
	c.once.Do(c.cancel)
	<-c.done
}

func (c *Channel) setState(s State) {
	c.state.Store(int32(s))
	if c.opts.OnState != nil {
		c.opts.OnState(s)
	}
}

func (c *Channel) run(ctx context.Context) {
	defer func() {
		c.setState(StateClosed)
		close(c.events)
		close(c.done)
	}()

	for {
		c.setState(StateConnecting)
		u, err := c.url()
		if err != nil {
			c.log.Info("channel not reopened", sl.Err(err))
			return
		}

		conn, _, err := c.opts.Dialer.DialContext(ctx, u, nil)
		c.opts.Metrics.Connect(c.opts.Name, err == nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("dial failed", sl.Err(err))
		} else {
			c.setState(StateOpen)
			c.log.Debug("channel open")
			c.serve(ctx, conn)
		}

		if ctx.Err() != nil || !c.opts.Reconnect {
			return
		}

		c.setState(StateClosedPendingRetry)
		timer := time.NewTimer(c.opts.RetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// serve blocks until the connection drops or ctx is cancelled.
func (c *Channel) serve(ctx context.Context, conn *websocket.Conn) {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.keepAlive(ctx, conn, stop)
	}()
	defer func() {
		close(stop)
		wg.Wait()
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !isNormalClose(err) {
				c.log.Debug("read failed", sl.Err(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		ev, ok := decode(data)
		if !ok {
			c.opts.Metrics.DroppedFrame(c.opts.Name)
			c.log.Debug("malformed frame dropped", slog.Int("size", len(data)))
			continue
		}

		select {
		case c.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// keepAlive pings the hub and closes the connection on cancellation so the
// blocked reader returns.
func (c *Channel) keepAlive(ctx context.Context, conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			_ = conn.Close()
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.log.Debug("ping failed", sl.Err(err))
				_ = conn.Close()
				return
			}
		}
	}
}

func decode(data []byte) (Event, bool) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil || head.Type == "" {
		return Event{}, false
	}
	return Event{Type: head.Type, Raw: data}, true
}

func isNormalClose(err error) bool {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return closeErr.Code == websocket.CloseNormalClosure ||
			closeErr.Code == websocket.CloseGoingAway ||
			closeErr.Code == websocket.CloseNoStatusReceived
	}
	return false
}
