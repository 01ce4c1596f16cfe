package stats

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
	StatsOverview(ctx context.Context, period string) (*entity.StatsOverview, error)
}

func Overview(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.stats"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("stats service not available")
			render.JSON(w, r, response.Error("Stats service not available"))
			return
		}

		period := r.URL.Query().Get("period")
		switch period {
		case "", hubapi.PeriodDay, hubapi.PeriodWeek, hubapi.PeriodMonth:
		default:
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Period must be day, week or month"))
			return
		}

		overview, err := handler.StatsOverview(r.Context(), period)
		if err != nil {
			logger.Error("stats overview", sl.Err(err))
			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, response.Error(hubapi.ErrorMessage(err, "Failed to load statistics")))
			return
		}
		render.JSON(w, r, response.Ok(overview))
	}
}
