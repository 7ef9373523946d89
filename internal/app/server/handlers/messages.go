package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/IdiegeA21/chat-app/internal/core/domain"
	"github.com/IdiegeA21/chat-app/internal/core/services"
	"github.com/IdiegeA21/chat-app/pkg/logging"
	"github.com/IdiegeA21/chat-app/pkg/middleware"
)

type MessageService interface {
	History(ctx context.Context, userID, roomID int64, page, limit int) (*services.MessagePage, error)
	Post(ctx context.Context, user *domain.User, roomID int64, content string) (*domain.Message, error)
}

type MessageHandler struct {
	messages MessageService
}

func NewMessageHandler(messages MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

type postMessageRequest struct {
	Content string `json:"content" validate:"required,min=1,max=1000"`
	RoomID  int64  `json:"room_id" validate:"required,gt=0"`
}

func (h *MessageHandler) History(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Access token required")
		return
	}
	roomID, ok := pathID(r, "roomId")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid room id")
		return
	}
	q := r.URL.Query()
	page := queryInt(q.Get("page"), 1)
	limit := queryInt(q.Get("limit"), services.DefaultPageSize)
	res, err := h.messages.History(r.Context(), user.ID, roomID, page, limit)
	if err != nil {
		writeDomainError(w, r, "message handler - history", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *MessageHandler) Post(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Access token required")
		return
	}
	var req postMessageRequest
	if !decode(w, r, &req) {
		return
	}
	msg, err := h.messages.Post(r.Context(), user, req.RoomID, req.Content)
	if err != nil {
		writeDomainError(w, r, "message handler - post", err)
		return
	}
	logging.FromContext(r.Context()).DebugContext(r.Context(), "message handler - post - success",
		logging.User(user.ID), logging.Room(msg.RoomID), logging.Message(msg.ID))
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Message sent successfully", "data": msg})
}

func queryInt(raw string, def int) int {
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return n
	}
	return def
}
