package core

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"MultiChat/entity"
	"MultiChat/internal/heartbeat"
	"MultiChat/internal/hubapi"
	"MultiChat/internal/lib/sl"
	"MultiChat/internal/realtime"
	"MultiChat/internal/ws"
)

const EventSessionExpired = "session_expired"

// Start logs in when there is no stored session, loads the board and starts
// the notification consumer and the heartbeat. They stop with ctx.
func (c *Core) Start(ctx context.Context) error {
	c.runMu.Lock()
	c.runCtx = ctx
	c.runMu.Unlock()

	c.board.SetListener(func(chats []entity.Chat) {
		c.broadcast(ws.EventBoard, c.board.Columns())
	})

	if err := c.login(ctx); err != nil {
		return err
	}

	if err := c.board.Reload(ctx); err != nil {
		c.log.Warn("initial board load", sl.Err(err))
	}

	go c.consumeNotifications(ctx)
	if c.beat > 0 {
		go heartbeat.Run(ctx, c.api, c.beat, c.log)
	}

	go func() {
		<-ctx.Done()
		c.CloseConversation()
	}()
	return nil
}

func (c *Core) login(ctx context.Context) error {
	if c.session.Authenticated() {
		return nil
	}
	if c.creds.Email == "" || c.creds.Password == "" {
		return hubapi.ErrNoSession
	}
	_, err := c.api.Login(ctx, entity.LoginRequest{Email: c.creds.Email, Password: c.creds.Password})
	if err != nil {
		return err
	}
	return nil
}

// HandleSessionExpired is the session expiry callback: operator UIs are told
// to log in again and the core tries the configured credentials once. It may
// run inside a hub request, so everything that takes locks runs detached.
func (c *Core) HandleSessionExpired() {
	c.broadcast(EventSessionExpired, nil)

	ctx := c.context()
	go func() {
		c.CloseConversation()
		if err := c.login(ctx); err != nil {
			c.log.Error("login after session expiry", sl.Err(err))
			return
		}
		c.log.Info("session restored")
		if err := c.board.Reload(ctx); err != nil {
			c.log.Warn("reload after login", sl.Err(err))
		}
	}()
}

// consumeNotifications keeps the notification channel open for the life of ctx.
// The channel reconnects on its own; it only ends when no socket URL can be
// built, that is without a session, and is reopened once one appears.
func (c *Core) consumeNotifications(ctx context.Context) {
	opts := c.realtime
	opts.Name = "notifications"
	opts.Reconnect = true
	retry := opts.RetryDelay
	if retry <= 0 {
		retry = realtime.DefaultRetryDelay
	}

	for {
		ch, err := realtime.Open(ctx, c.api.NotificationsSocketURL, c.log, opts)
		if err != nil {
			if !errors.Is(err, hubapi.ErrNoSession) {
				c.log.Warn("open notifications", sl.Err(err))
			}
		} else {
			for ev := range ch.Events() {
				c.handleNotification(ctx, ev)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(retry):
		}
	}
}

func (c *Core) handleNotification(ctx context.Context, ev realtime.Event) {
	var payload entity.NotificationEvent
	if err := ev.Decode(&payload); err != nil {
		c.log.Debug("malformed notification", sl.Err(err))
		return
	}
	c.log.With(slog.String("type", payload.Type)).Debug("notification")

	c.board.HandleNotification(ctx, payload)
	if c.notifier != nil {
		c.notifier.Handle(ctx, payload)
	}
}
