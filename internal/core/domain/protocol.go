package domain

import (
	"encoding/json"
	"time"
)

// Inbound events.
const (
	EventAuthenticate = "authenticate"
	EventJoinRoom     = "join_room"
	EventLeaveRoom    = "leave_room"
	EventSendMessage  = "send_message"
	EventTypingStart  = "typing_start"
	EventTypingStop   = "typing_stop"
)

// Outbound events.
const (
	EventAuthenticated  = "authenticated"
	EventAuthError      = "auth_error"
	EventRoomJoined     = "room_joined"
	EventRoomLeft       = "room_left"
	EventReceiveMessage = "receive_message"
	EventMessageError   = "message_error"
	EventUserTyping     = "user_typing"
	EventUserOnline     = "user_online"
	EventUserOffline    = "user_offline"
	EventUserStatus     = "user_status"
	EventError          = "error"
)

// Envelope is the wire frame in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// OutboundEnvelope is marshalled once per emit or broadcast.
type OutboundEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type AuthenticateRequest struct {
	Token string `json:"token"`
}

type RoomRequest struct {
	RoomID int64 `json:"roomId"`
}

type SendMessageRequest struct {
	RoomID  int64  `json:"roomId"`
	Content string `json:"content"`
}

type UserRef struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type AuthenticatedPayload struct {
	User  UserRef `json:"user"`
	Rooms []int64 `json:"rooms"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

type RoomInfo struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"isPrivate"`
}

// MemberStatus is a room member with its live presence and typing state.
type MemberStatus struct {
	ID       int64     `json:"id"`
	Username string    `json:"username"`
	IsOnline bool      `json:"isOnline"`
	IsTyping bool      `json:"isTyping"`
	LastSeen time.Time `json:"lastSeen"`
	Role     Role      `json:"role,omitempty"`
	JoinedAt time.Time `json:"joinedAt"`
}

type RoomJoinedPayload struct {
	Room    RoomInfo       `json:"room"`
	Members []MemberStatus `json:"members"`
}

type RoomLeftPayload struct {
	RoomID int64 `json:"roomId"`
}

type MessagePayload struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	UserID    int64     `json:"userId"`
	Username  string    `json:"username"`
	RoomID    int64     `json:"roomId"`
	CreatedAt time.Time `json:"createdAt"`
}

type TypingPayload struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	RoomID   int64  `json:"roomId"`
	IsTyping bool   `json:"isTyping"`
}

// PresencePayload is used by user_online and user_offline.
type PresencePayload struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

type StatusPayload struct {
	UserID    int64     `json:"userId"`
	Username  string    `json:"username"`
	IsOnline  bool      `json:"isOnline"`
	Timestamp time.Time `json:"timestamp"`
}
