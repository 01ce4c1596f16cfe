package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"MultiChat/internal/lib/sl"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

var ErrNoRefreshToken = errors.New("no refresh token")

// RefreshFunc exchanges a refresh token for a new pair.
type RefreshFunc func(ctx context.Context, refresh string) (Tokens, error)

// Session is the single process-wide credential holder. It is written only by
// login, refresh and logout paths and read by everything that talks to the hub.
type Session struct {
	mu        sync.RWMutex
	tokens    Tokens
	store     Store
	onExpired func()
	refreshes singleflight.Group
	log       *slog.Logger
}

func New(store Store, log *slog.Logger) (*Session, error) {
	tokens, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &Session{
		tokens: tokens,
		store:  store,
		log:    log.With(sl.Module("session")),
	}, nil
}

// OnExpired registers the callback run when an active session is lost irrecoverably.
func (s *Session) OnExpired(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExpired = fn
}

func (s *Session) SetTokens(access, refresh string) error {
	tokens := Tokens{Access: access, Refresh: refresh}
	s.mu.Lock()
	s.tokens = tokens
	s.mu.Unlock()
	if err := s.store.Save(tokens); err != nil {
		return fmt.Errorf("persist tokens: %w", err)
	}
	return nil
}

func (s *Session) Clear() error {
	s.mu.Lock()
	s.tokens = Tokens{}
	s.mu.Unlock()
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	return nil
}

// Expire clears the pair and fires the expiry callback once per active session.
func (s *Session) Expire() {
	s.mu.Lock()
	active := !s.tokens.Empty()
	s.tokens = Tokens{}
	cb := s.onExpired
	s.mu.Unlock()

	if err := s.store.Clear(); err != nil {
		s.log.Error("clear expired session", sl.Err(err))
	}
	if active {
		s.log.Warn("session expired")
		if cb != nil {
			cb()
		}
	}
}

func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.Access
}

func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.Refresh
}

func (s *Session) Authenticated() bool {
	return s.AccessToken() != ""
}

// Token returns the bearer token for request signing, or nil without a session.
func (s *Session) Token() *oauth2.Token {
	access := s.AccessToken()
	if access == "" {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  access,
		TokenType:    "Bearer",
		RefreshToken: s.RefreshToken(),
	}
}

// Refresh runs fn at most once at a time; concurrent callers share the result.
func (s *Session) Refresh(ctx context.Context, fn RefreshFunc) (string, error) {
	v, err, _ := s.refreshes.Do("refresh", func() (interface{}, error) {
		refresh := s.RefreshToken()
		if refresh == "" {
			return "", ErrNoRefreshToken
		}
		tokens, err := fn(ctx, refresh)
		if err != nil {
			return "", err
		}
		if tokens.Refresh == "" {
			tokens.Refresh = refresh
		}
		if err := s.SetTokens(tokens.Access, tokens.Refresh); err != nil {
			return "", err
		}
		s.log.Debug("access token refreshed")
		return tokens.Access, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

type Claims struct {
	UserID interface{} `json:"user_id"`
	jwt.RegisteredClaims
}

// Claims decodes the access token without verifying its signature; the hub is
// the only party that verifies it.
func (s *Session) Claims() (*Claims, error) {
	access := s.AccessToken()
	if access == "" {
		return nil, errors.New("no access token")
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	return claims, nil
}

// ExpiresAt returns the access token expiry or zero time when unknown.
func (s *Session) ExpiresAt() time.Time {
	claims, err := s.Claims()
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
