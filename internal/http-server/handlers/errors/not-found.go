package errors

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"MultiChat/internal/lib/api/response"
	"MultiChat/internal/lib/sl"
)

func NotFound(log *slog.Logger) http.HandlerFunc {
	logger := log.With(sl.Module("http.handlers.errors"))
	return func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("route not found", slog.String("path", r.URL.Path))
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("Requested resource not found"))
	}
}
