package core

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"sync"
	"time"

	"MultiChat/entity"
	"MultiChat/internal/board"
	"MultiChat/internal/lib/sl"
	"MultiChat/internal/notify"
	"MultiChat/internal/realtime"
)

const consoleOperator = "console"

// HubAPI is the part of the hub client the core drives.
type HubAPI interface {
	board.Remote
	board.MessageRemote

	Login(ctx context.Context, req entity.LoginRequest) (*entity.TokenPair, error)
	Heartbeat(ctx context.Context) error

	FetchSites(ctx context.Context) (*entity.Page[entity.ApiSite], error)
	FetchSite(ctx context.Context, id int64) (*entity.ApiSite, error)
	EmbedCode(ctx context.Context, site entity.ApiSite) (string, error)
	FetchUsers(ctx context.Context) (*entity.Page[entity.Manager], error)
	StatsOverview(ctx context.Context, period string) (*entity.StatsOverview, error)

	ChatSocketURL(chatID int64) (string, error)
	NotificationsSocketURL() (string, error)
}

type Session interface {
	Authenticated() bool
}

type Notifier interface {
	Handle(ctx context.Context, ev entity.NotificationEvent) (notify.Toast, bool)
}

// Broadcaster fans console events out to attached operator UIs.
type Broadcaster interface {
	Broadcast(eventType string, data interface{})
}

type Credentials struct {
	Email    string
	Password string
}

type Core struct {
	api      HubAPI
	session  Session
	board    *board.Board
	notifier Notifier
	hub      Broadcaster
	realtime realtime.Options
	beat     time.Duration
	creds    Credentials
	authKey  string

	convMu sync.Mutex
	conv   *board.Conversation

	runMu  sync.Mutex
	runCtx context.Context

	log *slog.Logger
}

func New(log *slog.Logger) *Core {
	return &Core{
		runCtx: context.Background(),
		log:    log.With(sl.Module("core")),
	}
}

func (c *Core) SetHubAPI(api HubAPI) {
	c.api = api
}

func (c *Core) SetSession(s Session) {
	c.session = s
}

func (c *Core) SetBoard(b *board.Board) {
	c.board = b
}

func (c *Core) SetNotifier(n Notifier) {
	c.notifier = n
}

func (c *Core) SetBroadcaster(hub Broadcaster) {
	c.hub = hub
}

// SetRealtime sets the options shared by every push channel the core opens.
func (c *Core) SetRealtime(opts realtime.Options) {
	c.realtime = opts
}

// SetHeartbeat enables presence pings every interval; zero disables them.
func (c *Core) SetHeartbeat(interval time.Duration) {
	c.beat = interval
}

func (c *Core) SetCredentials(creds Credentials) {
	c.creds = creds
}

func (c *Core) SetAuthKey(key string) {
	c.authKey = key
}

// AuthenticateByToken checks the console key of a local API caller.
func (c *Core) AuthenticateByToken(token string) (string, error) {
	if c.authKey == "" {
		return "", errors.New("console key not configured")
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(c.authKey)) != 1 {
		return "", errors.New("invalid console key")
	}
	return consoleOperator, nil
}

func (c *Core) ValidateToken(token string) (string, error) {
	return c.AuthenticateByToken(token)
}

func (c *Core) context() context.Context {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	return c.runCtx
}

func (c *Core) broadcast(eventType string, data interface{}) {
	if c.hub != nil {
		c.hub.Broadcast(eventType, data)
	}
}
