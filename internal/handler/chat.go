package handler

import (
	"errors"
	"net/http"

	"github.com/matthewbaird/estatein/internal/auth"
	"github.com/matthewbaird/estatein/internal/chat"
)

type chatRequest struct {
	Message string `json:"message" validate:"required"`
}

// ChatHandler serves the dashboard assistant over plain HTTP.
type ChatHandler struct {
	assistant *chat.Assistant
}

// NewChatHandler creates a ChatHandler.
func NewChatHandler(assistant *chat.Assistant) *ChatHandler {
	return &ChatHandler{assistant: assistant}
}

// Send answers one message in the caller's conversation.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeValid(w, r, &req) {
		return
	}
	s, ok := auth.FromContext(r.Context())
	if !ok {
		Unauthorized(w, r)
		return
	}
	reply, err := h.assistant.Send(r.Context(), s.ID, req.Message)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, chat.ErrBusy):
		writeError(w, http.StatusConflict, "BUSY", err.Error())
	case err != nil:
		storeErrorToHTTP(w, err)
	default:
		writeJSON(w, http.StatusOK, reply)
	}
}

// History returns the caller's conversation.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	s, ok := auth.FromContext(r.Context())
	if !ok {
		Unauthorized(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": h.assistant.History(s.ID)})
}

// Suggestions returns the suggested questions.
func (h *ChatHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": h.assistant.Suggestions()})
}
