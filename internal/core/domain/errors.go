package domain

import "errors"

// Engine-facing errors. Each maps to an outbound error event.
var (
	ErrInvalidToken           = errors.New("invalid token")
	ErrNotAuthenticated       = errors.New("not authenticated")
	ErrAlreadyAuthenticated   = errors.New("already authenticated")
	ErrNotAMember             = errors.New("not a member of this room")
	ErrEmptyMessage           = errors.New("message content cannot be empty")
	ErrMessageTooLong         = errors.New("message too long")
	ErrRateLimited            = errors.New("rate limit exceeded")
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	ErrUnknownEvent           = errors.New("unknown event")
	ErrInvalidPayload         = errors.New("invalid payload")
)

// Persistence errors.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserExists        = errors.New("user already exists")
	ErrInvalidUserID     = errors.New("invalid user id")
	ErrInvalidRoomID     = errors.New("invalid room id")
	ErrRoomNotFound      = errors.New("room not found")
	ErrAlreadyMember     = errors.New("already a member of this room")
	ErrInviteRequired    = errors.New("invite code required for private room")
	ErrInvalidCredential = errors.New("invalid credentials")
)
