package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileStore(path)

	tokens, err := store.Load()
	if err != nil || !tokens.Empty() {
		t.Fatalf("missing file should load empty, got %+v %v", tokens, err)
	}

	if err := store.Save(Tokens{Access: "a1", Refresh: "r1"}); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("file mode = %v", info.Mode().Perm())
	}

	tokens, err = NewFileStore(path).Load()
	if err != nil {
		t.Fatal(err)
	}
	if tokens.Access != "a1" || tokens.Refresh != "r1" {
		t.Errorf("loaded %+v", tokens)
	}

	if err := store.Clear(); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(); err != nil {
		t.Errorf("second clear: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("file still exists: %v", err)
	}
}

func TestSetTokensOverwrites(t *testing.T) {
	store := NewMemoryStore()
	s, err := New(store, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	_ = s.SetTokens("a1", "r1")
	_ = s.SetTokens("a2", "r2")

	if s.AccessToken() != "a2" || s.RefreshToken() != "r2" {
		t.Errorf("session holds %q/%q", s.AccessToken(), s.RefreshToken())
	}
	stored, _ := store.Load()
	if stored.Access != "a2" {
		t.Errorf("store holds %+v", stored)
	}

	tok := s.Token()
	if tok == nil || tok.Type() != "Bearer" || tok.AccessToken != "a2" {
		t.Errorf("token = %+v", tok)
	}
}

func TestExpireFiresOnce(t *testing.T) {
	s, _ := New(NewMemoryStore(), testLogger())
	_ = s.SetTokens("a", "r")

	var fired int
	s.OnExpired(func() { fired++ })

	s.Expire()
	s.Expire()

	if fired != 1 {
		t.Errorf("expiry callback fired %d times", fired)
	}
	if s.Authenticated() || s.Token() != nil {
		t.Error("session still authenticated")
	}
}

func TestRefreshCollapsesConcurrentCalls(t *testing.T) {
	s, _ := New(NewMemoryStore(), testLogger())
	_ = s.SetTokens("old", "r1")

	var calls int32
	release := make(chan struct{})
	fn := func(ctx context.Context, refresh string) (Tokens, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		if refresh != "r1" {
			t.Errorf("refresh token = %q", refresh)
		}
		return Tokens{Access: "new"}, nil
	}

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = s.Refresh(context.Background(), fn)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("refresh executed %d times", n)
	}
	for i, r := range results {
		if r != "new" {
			t.Errorf("caller %d got %q", i, r)
		}
	}
	if s.RefreshToken() != "r1" {
		t.Errorf("refresh token not kept: %q", s.RefreshToken())
	}
}

func TestRefreshWithoutToken(t *testing.T) {
	s, _ := New(NewMemoryStore(), testLogger())
	_, err := s.Refresh(context.Background(), func(context.Context, string) (Tokens, error) {
		t.Fatal("refresh must not be called")
		return Tokens{}, nil
	})
	if !errors.Is(err, ErrNoRefreshToken) {
		t.Errorf("err = %v", err)
	}
}

func TestClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 12,
		"exp":     exp.Unix(),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	s, _ := New(NewMemoryStore(), testLogger())
	_ = s.SetTokens(signed, "r")

	claims, err := s.Claims()
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != float64(12) {
		t.Errorf("user_id = %v", claims.UserID)
	}
	if !s.ExpiresAt().Equal(exp) {
		t.Errorf("expires = %s, want %s", s.ExpiresAt(), exp)
	}
}
