package chat

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"MultiChat/entity"
	"MultiChat/internal/board"
	"MultiChat/internal/lib/api/cont"
	"MultiChat/internal/lib/api/response"
	"MultiChat/internal/lib/sl"
	"MultiChat/internal/lib/validate"
)

// GetMessages opens the chat as the current conversation and returns its history.
func GetMessages(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID := chi.URLParam(r, "id")
		logger := log.With(
			sl.Module("http.handlers.chat"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("chat", chatID),
		)

		if handler == nil {
			logger.Error("chat service not available")
			render.JSON(w, r, response.Error("Chat service not available"))
			return
		}

		msgs, err := handler.ChatMessages(r.Context(), chatID)
		if errors.Is(err, board.ErrChatNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("Chat not found"))
			return
		}
		if err != nil {
			logger.Warn("open chat", sl.Err(err))
		}
		render.JSON(w, r, response.Ok(msgs))
	}
}

// SendMessage sends to the current conversation. A failed send still answers
// with the conversation, which then holds the unsent text as a local message.
func SendMessage(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID := chi.URLParam(r, "id")
		logger := log.With(
			sl.Module("http.handlers.chat"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("chat", chatID),
		)

		if handler == nil {
			logger.Error("chat service not available")
			render.JSON(w, r, response.Error("Chat service not available"))
			return
		}
		logger = logger.With(slog.String("operator", cont.GetOperator(r.Context())))

		var req entity.SendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("failed to decode request body", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid request body"))
			return
		}
		if err := validate.Struct(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Message content is required"))
			return
		}

		err := handler.SendChatMessage(r.Context(), chatID, req.Content)
		if errors.Is(err, board.ErrChatNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("Chat not found"))
			return
		}
		msgs, _ := handler.ChatMessages(r.Context(), chatID)
		if err != nil {
			logger.Warn("send message", sl.Err(err))
			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, response.Response{
				Success: false,
				Data:    msgs,
				Message: "Message was not delivered",
			})
			return
		}
		render.JSON(w, r, response.Ok(msgs))
	}
}
