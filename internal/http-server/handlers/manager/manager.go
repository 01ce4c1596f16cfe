package manager

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"MultiChat/entity"
	"MultiChat/internal/hubapi"
	"MultiChat/internal/lib/api/response"
	"MultiChat/internal/lib/sl"
)

type Core interface {
	Managers(ctx context.Context) ([]entity.Manager, error)
}

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.manager"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("manager service not available")
			render.JSON(w, r, response.Error("Manager service not available"))
			return
		}

		managers, err := handler.Managers(r.Context())
		if err != nil {
			logger.Error("failed to list managers", sl.Err(err))
			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, response.Error(hubapi.ErrorMessage(err, "Failed to load managers")))
			return
		}
		render.JSON(w, r, response.Ok(managers))
	}
}
