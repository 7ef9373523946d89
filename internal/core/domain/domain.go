package domain

import (
	"sync"
	"time"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageSystem MessageType = "system"
)

// User is the persisted account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsOnline     bool      `json:"is_online"`
	LastSeen     time.Time `json:"last_seen"`
	CreatedAt    time.Time `json:"created_at"`
}

// Room is a chat room. InviteCode is only set for private rooms.
type Room struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsPrivate   bool      `json:"is_private"`
	InviteCode  string    `json:"invite_code,omitempty"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// Membership is the (room, user) row, unique per pair.
type Membership struct {
	RoomID   int64     `json:"room_id"`
	UserID   int64     `json:"user_id"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// Member is a room member joined with its user row.
type Member struct {
	UserID   int64     `json:"id"`
	Username string    `json:"username"`
	IsOnline bool      `json:"is_online"`
	LastSeen time.Time `json:"last_seen"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// RoomWithMembership is a room as seen by one of its members.
type RoomWithMembership struct {
	Room
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

type Message struct {
	ID        int64       `json:"id"`
	RoomID    int64       `json:"room_id"`
	UserID    int64       `json:"user_id"`
	Username  string      `json:"username,omitempty"`
	Content   string      `json:"content"`
	Type      MessageType `json:"message_type"`
	CreatedAt time.Time   `json:"created_at"`
}

// Session is the authenticated state bound to one live connection.
// Rooms is the set of broadcast groups the connection is wired into; it is
// not used for authorization.
type Session struct {
	ConnID   string
	UserID   int64
	Username string
	Rooms    map[int64]struct{}

	// ops serialises room wiring changes made on behalf of this connection
	// from outside its read loop.
	ops sync.Mutex
}

func NewSession(connID string, userID int64, username string, rooms []int64) *Session {
	s := &Session{
		ConnID:   connID,
		UserID:   userID,
		Username: username,
		Rooms:    make(map[int64]struct{}, len(rooms)),
	}
	for _, r := range rooms {
		s.Rooms[r] = struct{}{}
	}
	return s
}

func (s *Session) Lock()   { s.ops.Lock() }
func (s *Session) Unlock() { s.ops.Unlock() }
