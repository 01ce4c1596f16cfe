package hubapi

import (
	"bytes"
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

	"MultiChat/entity"
	"MultiChat/internal/session"

	"github.com/go-chi/chi/v5"
)

// fakeHub records requests and lets tests script responses per route.
type fakeHub struct {
	mu        sync.Mutex
	refreshes int
	hits      map[string]int
	auth      []string
	router    chi.Router
}

func newFakeHub() *fakeHub {
	return &fakeHub{hits: make(map[string]int), router: chi.NewRouter()}
}

func (f *fakeHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.hits[r.Method+" "+r.URL.Path]++
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	if r.URL.Path == refreshPath {
		f.refreshes++
	}
	f.mu.Unlock()
	f.router.ServeHTTP(w, r)
}

func (f *fakeHub) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[key]
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, hub *fakeHub) (*Client, *session.Session) {
	t.Helper()
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	sess, err := session.New(session.NewMemoryStore(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return New(srv.URL, 5*time.Second, sess, testLogger()), sess
}

func TestLoginThenAuthenticatedCall(t *testing.T) {
	hub := newFakeHub()
	hub.router.Post("/api/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		var req entity.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Email != "anna@example.com" || req.Password != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "bad credentials"})
			return
		}
		writeJSON(w, http.StatusOK, entity.TokenPair{Access: "a1", Refresh: "r1"})
	})
	hub.router.Get("/api/auth/me/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer a1" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "no"})
			return
		}
		writeJSON(w, http.StatusOK, entity.UserProfile{ID: 3, Email: "anna@example.com", Role: entity.AdminRole})
	})
	client, sess := newTestClient(t, hub)
	ctx := context.Background()

	if _, err := client.Login(ctx, entity.LoginRequest{Email: "anna@example.com", Password: "secret"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.AccessToken() != "a1" || sess.RefreshToken() != "r1" {
		t.Fatalf("tokens not stored: %q/%q", sess.AccessToken(), sess.RefreshToken())
	}
	profile, err := client.Profile(ctx)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.ID != 3 || !profile.IsAdmin() {
		t.Errorf("profile = %+v", profile)
	}
	if hub.refreshes != 0 {
		t.Errorf("unexpected refresh")
	}
}

func TestUnauthorizedRefreshesOnceAndRetries(t *testing.T) {
	hub := newFakeHub()
	hub.router.Post(refreshPath, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["refresh"] != "r1" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access": "a2"})
	})
	hub.router.Get("/api/chats/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer a2" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "expired"})
			return
		}
		if r.URL.Query().Get("page_size") != "100" {
			t.Errorf("query lost on retry: %s", r.URL.RawQuery)
		}
		writeJSON(w, http.StatusOK, entity.Page[entity.ApiChat]{Count: 1, Results: []entity.ApiChat{{ID: 1, Status: "new"}}})
	})
	client, sess := newTestClient(t, hub)
	_ = sess.SetTokens("a1", "r1")

	var expired int
	sess.OnExpired(func() { expired++ })

	page, err := client.FetchChats(context.Background(), map[string][]string{"page_size": {"100"}})
	if err != nil {
		t.Fatalf("fetch chats: %v", err)
	}
	if len(page.Results) != 1 {
		t.Errorf("results = %+v", page.Results)
	}
	if hub.refreshes != 1 {
		t.Errorf("refreshes = %d", hub.refreshes)
	}
	if hub.count("GET /api/chats/") != 2 {
		t.Errorf("chat list requested %d times", hub.count("GET /api/chats/"))
	}
	if sess.AccessToken() != "a2" || sess.RefreshToken() != "r1" {
		t.Errorf("tokens = %q/%q", sess.AccessToken(), sess.RefreshToken())
	}
	if expired != 0 {
		t.Errorf("session expired on successful refresh")
	}
}

func TestFailedRefreshExpiresSession(t *testing.T) {
	hub := newFakeHub()
	hub.router.Post(refreshPath, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "token not valid"})
	})
	hub.router.Get("/api/sites/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "expired"})
	})
	client, sess := newTestClient(t, hub)
	_ = sess.SetTokens("a1", "r1")

	var expired int
	sess.OnExpired(func() { expired++ })

	_, err := client.FetchSites(context.Background())
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v", err)
	}
	if sess.Authenticated() || sess.RefreshToken() != "" {
		t.Error("tokens not cleared")
	}
	if expired != 1 {
		t.Errorf("expiry fired %d times", expired)
	}
	if hub.refreshes != 1 {
		t.Errorf("refreshes = %d", hub.refreshes)
	}
	if hub.count("GET /api/sites/") != 1 {
		t.Errorf("original request retried without a new token")
	}
}

func TestCancelledCallerKeepsSession(t *testing.T) {
	hub := newFakeHub()
	hub.router.Post(refreshPath, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		writeJSON(w, http.StatusOK, map[string]string{"access": "a2", "refresh": "r2"})
	})
	hub.router.Get("/api/sites/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer a2" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "expired"})
			return
		}
		writeJSON(w, http.StatusOK, entity.Page[entity.ApiSite]{Count: 1, Results: []entity.ApiSite{{ID: 1}}})
	})
	client, sess := newTestClient(t, hub)
	_ = sess.SetTokens("a1", "r1")

	var mu sync.Mutex
	var expired int
	sess.OnExpired(func() {
		mu.Lock()
		expired++
		mu.Unlock()
	})

	short, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	var shortErr, longErr error
	var sites *entity.Page[entity.ApiSite]
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, shortErr = client.FetchSites(short)
	}()
	go func() {
		defer wg.Done()
		time.Sleep(20 * time.Millisecond)
		sites, longErr = client.FetchSites(context.Background())
	}()
	wg.Wait()

	if errors.Is(shortErr, ErrSessionExpired) || !errors.Is(shortErr, context.DeadlineExceeded) {
		t.Errorf("cancelled caller err = %v", shortErr)
	}
	if longErr != nil || sites == nil || len(sites.Results) != 1 {
		t.Errorf("waiting caller = %v, %v", sites, longErr)
	}
	if sess.AccessToken() != "a2" || sess.RefreshToken() != "r2" {
		t.Errorf("tokens = %q %q", sess.AccessToken(), sess.RefreshToken())
	}
	mu.Lock()
	defer mu.Unlock()
	if expired != 0 {
		t.Errorf("expiry fired %d times", expired)
	}
	if hub.refreshes != 1 {
		t.Errorf("refreshes = %d", hub.refreshes)
	}
}

func TestUnauthorizedWithoutTokenSkipsRefresh(t *testing.T) {
	hub := newFakeHub()
	hub.router.Get("/api/auth/me/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
	})
	client, _ := newTestClient(t, hub)

	_, err := client.Profile(context.Background())
	if !IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("err = %v", err)
	}
	if hub.refreshes != 0 {
		t.Errorf("refresh attempted without a session")
	}
}

func TestErrorPayloads(t *testing.T) {
	hub := newFakeHub()
	hub.router.Post("/api/auth/register/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"email": []string{"user with this email already exists."}})
	})
	hub.router.Get("/api/stats/ratings/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})
	client, _ := newTestClient(t, hub)
	ctx := context.Background()

	_, err := client.Register(ctx, entity.RegisterRequest{Email: "a@b.co", Password: "longenough", FirstName: "A"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("err = %v", err)
	}
	if msg := apiErr.Message("registration failed"); msg != "user with this email already exists." {
		t.Errorf("message = %q", msg)
	}

	_, err = client.RatingsStats(ctx)
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadGateway {
		t.Fatalf("err = %v", err)
	}
	if apiErr.Body == nil || len(apiErr.Body) != 0 {
		t.Errorf("non JSON body should decode to empty map, got %v", apiErr.Body)
	}
	if ErrorMessage(err, "generic") != "generic" {
		t.Errorf("fallback not used")
	}
}

func TestNoContent(t *testing.T) {
	hub := newFakeHub()
	hub.router.Delete("/api/sites/{id}/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	client, sess := newTestClient(t, hub)
	_ = sess.SetTokens("a1", "r1")

	if err := client.DeleteSite(context.Background(), 4); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if hub.count("DELETE /api/sites/4/") != 1 {
		t.Errorf("delete not sent")
	}
}

func TestContentTypes(t *testing.T) {
	hub := newFakeHub()
	var mu sync.Mutex
	var types []string
	var content string
	var fileBody []byte
	hub.router.Post("/api/chats/{id}/messages/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		types = append(types, r.Header.Get("Content-Type"))
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("parse multipart: %v", err)
			}
			content = r.FormValue("content")
			f, _, err := r.FormFile("files")
			if err == nil {
				fileBody, _ = io.ReadAll(f)
			}
		}
		writeJSON(w, http.StatusCreated, entity.ApiMessage{ID: 1, Chat: 9, SenderType: "manager"})
	})
	client, sess := newTestClient(t, hub)
	_ = sess.SetTokens("a1", "r1")
	ctx := context.Background()

	if _, err := client.SendMessage(ctx, 9, "hello"); err != nil {
		t.Fatal(err)
	}
	upload := entity.Upload{Filename: "note.txt", Size: 4, Content: bytes.NewBufferString("data")}
	if _, err := client.SendMessageWithFiles(ctx, 9, "see file", []entity.Upload{upload}); err != nil {
		t.Fatal(err)
	}

	if types[0] != "application/json" {
		t.Errorf("json request content type = %q", types[0])
	}
	if !strings.HasPrefix(types[1], "multipart/form-data; boundary=") {
		t.Errorf("multipart content type = %q", types[1])
	}
	if content != "see file" || string(fileBody) != "data" {
		t.Errorf("multipart payload = %q / %q", content, fileBody)
	}
}

func TestMultipartRejectsLargeFiles(t *testing.T) {
	_, err := NewMultipart(nil, []entity.Upload{{Filename: "big.bin", Size: entity.MaxFileSize + 1, Content: strings.NewReader("")}})
	if !errors.Is(err, entity.ErrFileTooLarge) {
		t.Errorf("err = %v", err)
	}
}

func TestValidationBlocksRequest(t *testing.T) {
	hub := newFakeHub()
	client, sess := newTestClient(t, hub)
	_ = sess.SetTokens("a1", "r1")

	if _, err := client.CreateSite(context.Background(), entity.CreateSiteRequest{Name: "", URL: "https://shop.example"}); err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := client.CreateUser(context.Background(), entity.CreateUserRequest{Email: "x@y.z", Password: "12345678", FirstName: "X", Role: "owner"}); err == nil {
		t.Fatal("expected role validation error")
	}
	if len(hub.auth) != 0 {
		t.Errorf("network was used: %d requests", len(hub.auth))
	}
}

func TestEmbedCodeFallback(t *testing.T) {
	hub := newFakeHub()
	hub.router.Get("/api/sites/{id}/widget-code/", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") == "1" {
			writeJSON(w, http.StatusOK, entity.WidgetCode{EmbedCode: "<script>hub</script>"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{})
	})
	client, sess := newTestClient(t, hub)
	_ = sess.SetTokens("a1", "r1")
	ctx := context.Background()

	code, err := client.EmbedCode(ctx, entity.ApiSite{ID: 1, SiteUUID: "0b7e4a5c-2d3e-4f1a-9b8c-7d6e5f4a3b2c"})
	if err != nil || code != "<script>hub</script>" {
		t.Errorf("hub code = %q, %v", code, err)
	}

	code, err = client.EmbedCode(ctx, entity.ApiSite{ID: 2, SiteUUID: "0b7e4a5c-2d3e-4f1a-9b8c-7d6e5f4a3b2c"})
	if err != nil {
		t.Fatal(err)
	}
	want := `<script src="https://cdn.multichat.io/widget.js" data-site-id="0b7e4a5c-2d3e-4f1a-9b8c-7d6e5f4a3b2c"></script>`
	if code != want {
		t.Errorf("fallback code = %s", code)
	}
}

func TestConnectTelegramSavesTokenFirst(t *testing.T) {
	hub := newFakeHub()
	var order []string
	hub.router.Patch("/api/sites/{id}/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		order = append(order, "patch:"+body["telegram_bot_token"].(string))
		writeJSON(w, http.StatusOK, entity.ApiSite{ID: 5})
	})
	hub.router.Post("/api/sites/{id}/setup-telegram/", func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "setup")
		writeJSON(w, http.StatusOK, entity.TelegramSetup{Ok: true, BotUsername: "shop_bot"})
	})
	client, sess := newTestClient(t, hub)
	_ = sess.SetTokens("a1", "r1")
	ctx := context.Background()

	setup, err := client.ConnectTelegram(ctx, 5, "123:abc")
	if err != nil {
		t.Fatal(err)
	}
	if !setup.Ok || setup.BotUsername != "shop_bot" {
		t.Errorf("setup = %+v", setup)
	}
	if err := client.DisconnectTelegram(ctx, 5); err != nil {
		t.Fatal(err)
	}
	want := []string{"patch:123:abc", "setup", "patch:"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v", order)
	}
}

func TestSocketURLs(t *testing.T) {
	sess, _ := session.New(session.NewMemoryStore(), testLogger())
	client := New("https://hub.example.com/", time.Second, sess, testLogger())

	if _, err := client.NotificationsSocketURL(); !errors.Is(err, ErrNoSession) {
		t.Errorf("err = %v", err)
	}

	_ = sess.SetTokens("tok", "r")
	u, err := client.ChatSocketURL(17)
	if err != nil {
		t.Fatal(err)
	}
	if u != "wss://hub.example.com/ws/chat/17/?token=tok" {
		t.Errorf("chat url = %s", u)
	}

	plain := New("http://localhost:8000", time.Second, sess, testLogger())
	u, _ = plain.NotificationsSocketURL()
	if u != "ws://localhost:8000/ws/notifications/?token=tok" {
		t.Errorf("notifications url = %s", u)
	}
}
