package board

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"MultiChat/internal/board"
	"MultiChat/internal/lib/api/cont"
	"MultiChat/internal/lib/api/response"
	"MultiChat/internal/lib/sl"
)

type SetStatusRequest struct {
	Status string `json:"status"`
}

func GetBoard(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if handler == nil {
			log.With(sl.Module("http.handlers.board")).Error("board not available")
			render.JSON(w, r, response.Error("Board not available"))
			return
		}
		render.JSON(w, r, response.Ok(handler.BoardColumns()))
	}
}

func Reload(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.board"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("board not available")
			render.JSON(w, r, response.Error("Board not available"))
			return
		}

		if err := handler.ReloadBoard(r.Context()); err != nil {
			logger.Error("reload board", sl.Err(err))
			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, response.Error("Failed to load chats"))
			return
		}
		render.JSON(w, r, response.Ok(handler.BoardColumns()))
	}
}

func SetStatus(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.board"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("board not available")
			render.JSON(w, r, response.Error("Board not available"))
			return
		}

		chatID := chi.URLParam(r, "id")
		var req SetStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("failed to decode request body", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid request body"))
			return
		}
		logger = logger.With(
			slog.String("operator", cont.GetOperator(r.Context())),
			slog.String("chat", chatID),
			slog.String("status", req.Status),
		)

		err := handler.MoveChat(r.Context(), chatID, req.Status)
		switch {
		case err == nil:
		case errors.Is(err, board.ErrUnknownStatus):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Unknown status"))
			return
		case errors.Is(err, board.ErrChatNotFound):
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("Chat not found"))
			return
		default:
			logger.Warn("status change rejected", sl.Err(err))
			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, response.Error("Failed to update chat status"))
			return
		}

		logger.Debug("chat moved")
		render.JSON(w, r, response.Ok(handler.BoardColumns()))
	}
}
