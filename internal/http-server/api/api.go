package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"

	"MultiChat/internal/config"
	"MultiChat/internal/http-server/handlers/board"
	"MultiChat/internal/http-server/handlers/chat"
	handlerErrors "MultiChat/internal/http-server/handlers/errors"
	"MultiChat/internal/http-server/handlers/manager"
	"MultiChat/internal/http-server/handlers/site"
	"MultiChat/internal/http-server/handlers/stats"
	"MultiChat/internal/http-server/middleware/authenticate"
	"MultiChat/internal/http-server/middleware/timeout"
	"MultiChat/internal/lib/sl"
	"MultiChat/internal/metrics"
	"MultiChat/internal/ws"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	ws.Authenticator
	board.Core
	chat.Core
	site.Core
	manager.Core
	stats.Core
}

// NewRouter builds the console API. The socket route authenticates itself
// because browsers cannot set headers on a WebSocket handshake.
func NewRouter(log *slog.Logger, handler Handler, hub *ws.Hub, m *metrics.Metrics) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	router.NotFound(handlerErrors.NotFound(log))
	router.MethodNotAllowed(handlerErrors.NotAllowed(log))

	router.Handle("/metrics", m.Handler())

	router.Route("/api/v1", func(v1 chi.Router) {
		v1.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
			ws.ServeWs(hub, handler, log, w, r)
		})

		v1.Group(func(api chi.Router) {
			api.Use(timeout.Timeout(30))
			api.Use(render.SetContentType(render.ContentTypeJSON))
			api.Use(authenticate.New(log, handler))

			api.Route("/board", func(r chi.Router) {
				r.Get("/", board.GetBoard(log, handler))
				r.Post("/reload", board.Reload(log, handler))
				r.Put("/{id}/status", board.SetStatus(log, handler))
			})
			api.Route("/chats/{id}", func(r chi.Router) {
				r.Get("/messages", chat.GetMessages(log, handler))
				r.Post("/messages", chat.SendMessage(log, handler))
			})
			api.Route("/sites", func(r chi.Router) {
				r.Get("/", site.List(log, handler))
				r.Get("/{id}/embed", site.Embed(log, handler))
			})
			api.Get("/managers", manager.List(log, handler))
			api.Get("/stats/overview", stats.Overview(log, handler))
		})
	})

	return router
}

// New serves the console API until ctx is done.
func New(ctx context.Context, conf *config.Config, log *slog.Logger, handler Handler, hub *ws.Hub, m *metrics.Metrics) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:           NewRouter(log, handler, hub, m),
		ErrorLog:          httpLog,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIP, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.httpServer.Shutdown(shutdownCtx); err != nil {
			server.log.Warn("shutdown", sl.Err(err))
		}
	}()

	server.log.Info("starting api server", slog.String("address", serverAddress))

	err = server.httpServer.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
