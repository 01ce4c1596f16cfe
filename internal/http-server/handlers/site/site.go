package site

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"MultiChat/internal/hubapi"
	"MultiChat/internal/lib/api/response"
	"MultiChat/internal/lib/sl"
)

type EmbedResponse struct {
	SiteID    int64  `json:"site_id"`
	EmbedCode string `json:"embed_code"`
}

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.site"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("site service not available")
			render.JSON(w, r, response.Error("Site service not available"))
			return
		}

		sites, err := handler.Sites(r.Context())
		if err != nil {
			logger.Error("failed to list sites", sl.Err(err))
			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, response.Error(hubapi.ErrorMessage(err, "Failed to load sites")))
			return
		}

		logger.Debug("sites listed", slog.Int("count", len(sites)))
		render.JSON(w, r, response.Ok(sites))
	}
}

func Embed(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.site"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("site service not available")
			render.JSON(w, r, response.Error("Site service not available"))
			return
		}

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid site id"))
			return
		}

		code, err := handler.SiteEmbedCode(r.Context(), id)
		if err != nil {
			logger.Error("embed code", slog.Int64("site", id), sl.Err(err))
			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, response.Error(hubapi.ErrorMessage(err, "Failed to build embed code")))
			return
		}
		render.JSON(w, r, response.Ok(EmbedResponse{SiteID: id, EmbedCode: code}))
	}
}
