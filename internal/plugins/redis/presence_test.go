package redis

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RedisPresenceStore, *time.Time) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewRedisPresenceStore(rdb)
	store.now = func() time.Time { return now }
	return store, &now
}

func TestRedisPresenceStore_OnlineOffline(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.MarkOnline(ctx, 1, time.Minute))
	require.NoError(t, store.MarkOnline(ctx, 2, time.Minute))

	online, err := store.OnlineUsers(ctx)
	require.NoError(t, err)
	sort.Slice(online, func(i, j int) bool { return online[i] < online[j] })
	assert.Equal(t, []int64{1, 2}, online)

	seen := time.Date(2024, 1, 1, 0, 0, 30, 0, time.UTC)
	require.NoError(t, store.MarkOffline(ctx, 1, seen))

	online, err = store.OnlineUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, online)

	last, err := store.rdb.Get(ctx, lastSeenPrefix+"1").Int64()
	require.NoError(t, err)
	assert.Equal(t, seen.Unix(), last)

	_, err = store.rdb.Get(ctx, lastSeenPrefix+"2").Result()
	assert.ErrorIs(t, err, redis.Nil)
}

func TestRedisPresenceStore_EntriesExpireUnlessRefreshed(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.MarkOnline(ctx, 1, time.Minute))
	require.NoError(t, store.MarkOnline(ctx, 2, time.Minute))

	*now = now.Add(45 * time.Second)
	require.NoError(t, store.Refresh(ctx, []int64{2}, time.Minute))

	*now = now.Add(30 * time.Second)
	online, err := store.OnlineUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, online)
}

func TestRedisPresenceStore_RefreshEmpty(t *testing.T) {
	store, _ := newTestStore(t)
	assert.NoError(t, store.Refresh(context.Background(), nil, time.Minute))
}
