package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/IdiegeA21/chat-app/internal/core/domain"
	"github.com/IdiegeA21/chat-app/pkg/logging"
	"github.com/IdiegeA21/chat-app/pkg/middleware"
)

type RoomService interface {
	CreateRoom(ctx context.Context, userID int64, name, description string, isPrivate bool) (*domain.Room, error)
	JoinRoom(ctx context.Context, userID, roomID int64, inviteCode string) (*domain.Room, error)
	ListRooms(ctx context.Context, userID int64) ([]domain.RoomWithMembership, error)
	Members(ctx context.Context, userID, roomID int64) ([]domain.Member, error)
	LeaveRoom(ctx context.Context, userID, roomID int64) error
}

type RoomHandler struct {
	rooms RoomService
}

func NewRoomHandler(rooms RoomService) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

type createRoomRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=500"`
	IsPrivate   bool   `json:"is_private"`
}

// joinRoomRequest takes exactly one of room_id or invite_code.
type joinRoomRequest struct {
	RoomID     int64  `json:"room_id" validate:"gte=0"`
	InviteCode string `json:"invite_code" validate:"omitempty,len=8"`
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Access token required")
		return
	}
	var req createRoomRequest
	if !decode(w, r, &req) {
		return
	}
	room, err := h.rooms.CreateRoom(r.Context(), user.ID, req.Name, req.Description, req.IsPrivate)
	if err != nil {
		writeDomainError(w, r, "room handler - create", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Room created successfully", "room": room})
}

func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Access token required")
		return
	}
	var req joinRoomRequest
	if !decode(w, r, &req) {
		return
	}
	if (req.RoomID > 0) == (req.InviteCode != "") {
		writeError(w, http.StatusBadRequest, "Provide either room_id or invite_code")
		return
	}
	room, err := h.rooms.JoinRoom(r.Context(), user.ID, req.RoomID, req.InviteCode)
	if err != nil {
		writeDomainError(w, r, "room handler - join", err)
		return
	}
	logging.FromContext(r.Context()).InfoContext(r.Context(), "room handler - join - success",
		logging.User(user.ID), logging.Room(room.ID))
	writeJSON(w, http.StatusOK, map[string]any{"message": "Joined room successfully", "room": room})
}

func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Access token required")
		return
	}
	rooms, err := h.rooms.ListRooms(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, r, "room handler - list", err)
		return
	}
	if rooms == nil {
		rooms = []domain.RoomWithMembership{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

func (h *RoomHandler) Members(w http.ResponseWriter, r *http.Request) {
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
	members, err := h.rooms.Members(r.Context(), user.ID, roomID)
	if err != nil {
		writeDomainError(w, r, "room handler - members", err)
		return
	}
	if members == nil {
		members = []domain.Member{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members})
}

func (h *RoomHandler) Leave(w http.ResponseWriter, r *http.Request) {
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
	err := h.rooms.LeaveRoom(r.Context(), user.ID, roomID)
	if errors.Is(err, domain.ErrNotAMember) {
		writeError(w, http.StatusNotFound, "Not a member of this room")
		return
	}
	if err != nil {
		writeDomainError(w, r, "room handler - leave", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Left room successfully"})
}
