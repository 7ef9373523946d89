package domain

import (
	"context"
	"time"
)

// UserRepository handles the persistent identity
type UserRepository interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id int64) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	SetOnline(ctx context.Context, userID int64, online bool, at time.Time) error
}

type RoomRepository interface {
	CreateRoom(ctx context.Context, r *Room) error
	GetRoom(ctx context.Context, roomID int64) (*Room, error)
	GetRoomByInviteCode(ctx context.Context, code string) (*Room, error)
	ListRoomsForUser(ctx context.Context, userID int64) ([]RoomWithMembership, error)
}

// MembershipRepository is the source of truth for room authorization.
type MembershipRepository interface {
	IsMember(ctx context.Context, roomID, userID int64) (bool, error)
	ListMembershipsFor(ctx context.Context, userID int64) ([]Membership, error)
	ListMembers(ctx context.Context, roomID int64) ([]Member, error)
	AddMember(ctx context.Context, m *Membership) error
	RemoveMember(ctx context.Context, roomID, userID int64) error
}

type MessageRepository interface {
	// CreateMessage inserts msg and fills ID and CreatedAt.
	CreateMessage(ctx context.Context, msg *Message) error
	// ListRoomMessages returns one page, newest first.
	ListRoomMessages(ctx context.Context, roomID int64, limit, offset int) ([]Message, error)
}
