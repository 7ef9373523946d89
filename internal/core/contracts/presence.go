package contracts

import (
	"context"
	"time"
)

// PresenceStore mirrors in-process presence into a shared store. /health
// reports how many users it sees online.
type PresenceStore interface {
	// MarkOnline sets the TTL-based key for the user.
	MarkOnline(ctx context.Context, userID int64, ttl time.Duration) error
	// MarkOffline removes the user and records last seen.
	MarkOffline(ctx context.Context, userID int64, lastSeen time.Time) error
	// Refresh extends the TTL for every given user.
	Refresh(ctx context.Context, userIDs []int64, ttl time.Duration) error
	// OnlineUsers returns user ids whose key has not expired.
	OnlineUsers(ctx context.Context) ([]int64, error)
}
