package services

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceRegistry_OnlineFollowsConnectionCount(t *testing.T) {
	p := NewPresenceRegistry()

	assert.True(t, p.Add(1, "a"))
	assert.False(t, p.Add(1, "b"))
	assert.False(t, p.Add(1, "c"))
	assert.True(t, p.IsOnline(1))
	assert.Equal(t, []string{"a", "b", "c"}, p.Connections(1))

	assert.False(t, p.Remove(1, "b"))
	assert.False(t, p.Remove(1, "a"))
	assert.True(t, p.IsOnline(1))

	assert.True(t, p.Remove(1, "c"))
	assert.False(t, p.IsOnline(1))
	assert.Empty(t, p.Connections(1))
	assert.Equal(t, 0, p.Count())
}

func TestPresenceRegistry_RemoveUnknownIsNoop(t *testing.T) {
	p := NewPresenceRegistry()
	assert.False(t, p.Remove(9, "x"))

	p.Add(9, "a")
	assert.False(t, p.Remove(9, "zzz"))
	assert.True(t, p.IsOnline(9))
}

func TestPresenceRegistry_DuplicateAdd(t *testing.T) {
	p := NewPresenceRegistry()
	p.Add(1, "a")
	assert.False(t, p.Add(1, "a"))
	assert.Equal(t, 1, p.ConnectionCount())
	assert.True(t, p.Remove(1, "a"))
}

func TestPresenceRegistry_SnapshotsAreCopies(t *testing.T) {
	p := NewPresenceRegistry()
	p.Add(2, "a")
	p.Add(1, "b")

	users := p.OnlineUsers()
	require.Equal(t, []int64{1, 2}, users)
	users[0] = 99
	assert.Equal(t, []int64{1, 2}, p.OnlineUsers())

	conns := p.Connections(2)
	conns[0] = "mutated"
	assert.Equal(t, []string{"a"}, p.Connections(2))
}

func TestPresenceRegistry_Concurrent(t *testing.T) {
	p := NewPresenceRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn := fmt.Sprintf("c%d", i)
			p.Add(int64(i%5), conn)
			p.Remove(int64(i%5), conn)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, p.Count())
	assert.Equal(t, 0, p.ConnectionCount())
}

func TestOnline(t *testing.T) {
	assert.False(t, online(nil))
	assert.False(t, online(connSet{}))
	assert.True(t, online(connSet{"a": {}}))
}
