package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func TestRateLimiter_MessageWindow(t *testing.T) {
	clock := newClock()
	rl := NewRateLimiter(DefaultMessagePolicy, DefaultTypingPolicy).WithClock(clock.Now)

	for i := 0; i < 5; i++ {
		require.True(t, rl.AllowMessage(1), "message %d", i+1)
		clock.Advance(time.Second)
	}
	assert.False(t, rl.AllowMessage(1), "sixth message inside the window")

	// first admit was at t0, now is t0+5s; it ages out at exactly t0+10s
	clock.Advance(5 * time.Second)
	assert.True(t, rl.AllowMessage(1))
	assert.False(t, rl.AllowMessage(1))
}

func TestRateLimiter_BurstThenFullWindow(t *testing.T) {
	clock := newClock()
	rl := NewRateLimiter(DefaultMessagePolicy, DefaultTypingPolicy).WithClock(clock.Now)

	for i := 0; i < 5; i++ {
		require.True(t, rl.AllowMessage(7))
	}
	assert.False(t, rl.AllowMessage(7))

	clock.Advance(10*time.Second - time.Millisecond)
	assert.False(t, rl.AllowMessage(7))

	clock.Advance(time.Millisecond)
	assert.True(t, rl.AllowMessage(7))
}

func TestRateLimiter_RejectedCallsAreNotRecorded(t *testing.T) {
	clock := newClock()
	rl := NewRateLimiter(RateLimitPolicy{Limit: 1, Window: time.Second}, DefaultTypingPolicy).WithClock(clock.Now)

	require.True(t, rl.AllowMessage(1))
	for i := 0; i < 10; i++ {
		clock.Advance(50 * time.Millisecond)
		assert.False(t, rl.AllowMessage(1))
	}
	clock.Advance(500 * time.Millisecond)
	assert.True(t, rl.AllowMessage(1))
}

func TestRateLimiter_ClassesAndUsersAreIndependent(t *testing.T) {
	clock := newClock()
	rl := NewRateLimiter(DefaultMessagePolicy, DefaultTypingPolicy).WithClock(clock.Now)

	for i := 0; i < 3; i++ {
		require.True(t, rl.AllowTyping(1))
	}
	assert.False(t, rl.AllowTyping(1))
	assert.True(t, rl.AllowMessage(1))
	assert.True(t, rl.AllowTyping(2))

	clock.Advance(time.Second)
	assert.True(t, rl.AllowTyping(1))
}

func TestRateLimiter_ClearUser(t *testing.T) {
	rl := NewRateLimiter(DefaultMessagePolicy, DefaultTypingPolicy)
	for i := 0; i < 5; i++ {
		rl.AllowMessage(1)
	}
	rl.AllowMessage(2)
	require.Equal(t, 2, tracked(rl))

	rl.ClearUser(1)

	assert.Equal(t, 1, tracked(rl))
	assert.True(t, rl.AllowMessage(1))
}

func TestNewRateLimiter_InvalidPolicyFallsBack(t *testing.T) {
	rl := NewRateLimiter(RateLimitPolicy{}, RateLimitPolicy{Limit: -1, Window: time.Second})
	assert.Equal(t, DefaultMessagePolicy, rl.message)
	assert.Equal(t, DefaultTypingPolicy, rl.typing)
}

func tracked(rl *RateLimiter) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.users)
}
