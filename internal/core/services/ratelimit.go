package services

import (
	"sync"
	"time"
)

// RateLimitPolicy bounds how many actions are admitted per window.
type RateLimitPolicy struct {
	Limit  int
	Window time.Duration
}

var (
	DefaultMessagePolicy = RateLimitPolicy{Limit: 5, Window: 10 * time.Second}
	DefaultTypingPolicy  = RateLimitPolicy{Limit: 3, Window: time.Second}
)

type userLimits struct {
	messages []time.Time
	typing   []time.Time
}

// RateLimiter is an exact sliding-window log, independent per user and per
// action class.
type RateLimiter struct {
	mu      sync.Mutex
	users   map[int64]*userLimits
	message RateLimitPolicy
	typing  RateLimitPolicy
	now     func() time.Time
}

func NewRateLimiter(message, typing RateLimitPolicy) *RateLimiter {
	if message.Limit <= 0 || message.Window <= 0 {
		message = DefaultMessagePolicy
	}
	if typing.Limit <= 0 || typing.Window <= 0 {
		typing = DefaultTypingPolicy
	}
	return &RateLimiter{
		users:   make(map[int64]*userLimits),
		message: message,
		typing:  typing,
		now:     time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (r *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	r.now = now
	return r
}

func (r *RateLimiter) AllowMessage(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := r.limitsFor(userID)
	var ok bool
	l.messages, ok = admit(l.messages, r.now(), r.message)
	return ok
}

func (r *RateLimiter) AllowTyping(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := r.limitsFor(userID)
	var ok bool
	l.typing, ok = admit(l.typing, r.now(), r.typing)
	return ok
}

// ClearUser drops both sequences for the user.
func (r *RateLimiter) ClearUser(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, userID)
}

func (r *RateLimiter) limitsFor(userID int64) *userLimits {
	l, ok := r.users[userID]
	if !ok {
		l = &userLimits{}
		r.users[userID] = l
	}
	return l
}

// admit prunes entries that have aged out of the window, then appends now if
// fewer than Limit remain. An entry exactly Window old is already out.
func admit(log []time.Time, now time.Time, p RateLimitPolicy) ([]time.Time, bool) {
	kept := log[:0]
	for _, ts := range log {
		if now.Sub(ts) < p.Window {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= p.Limit {
		return kept, false
	}
	return append(kept, now), true
}
