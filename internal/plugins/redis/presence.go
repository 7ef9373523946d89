package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	onlineKey      = "presence:online"
	lastSeenPrefix = "presence:lastseen:"
)

// RedisPresenceStore mirrors who is online into a sorted set scored by the
// time each entry expires. Entries that are not refreshed age out on read.
type RedisPresenceStore struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisPresenceStore(rdb *redis.Client) *RedisPresenceStore {
	return &RedisPresenceStore{
		rdb: rdb,
		now: time.Now,
	}
}

// MarkOnline adds or extends the user's entry until now+ttl.
func (p *RedisPresenceStore) MarkOnline(ctx context.Context, userID int64, ttl time.Duration) error {
	return p.rdb.ZAdd(ctx, onlineKey, redis.Z{
		Score:  float64(p.now().Add(ttl).Unix()),
		Member: member(userID),
	}).Err()
}

// MarkOffline removes the user and records when they were last seen.
func (p *RedisPresenceStore) MarkOffline(ctx context.Context, userID int64, lastSeen time.Time) error {
	_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, onlineKey, member(userID))
		pipe.Set(ctx, lastSeenPrefix+member(userID), lastSeen.Unix(), 0)
		return nil
	})
	return err
}

// Refresh extends every given user in one round trip.
func (p *RedisPresenceStore) Refresh(ctx context.Context, userIDs []int64, ttl time.Duration) error {
	if len(userIDs) == 0 {
		return nil
	}
	score := float64(p.now().Add(ttl).Unix())
	members := make([]redis.Z, 0, len(userIDs))
	for _, id := range userIDs {
		members = append(members, redis.Z{Score: score, Member: member(id)})
	}
	return p.rdb.ZAdd(ctx, onlineKey, members...).Err()
}

// OnlineUsers drops expired entries and returns the rest.
func (p *RedisPresenceStore) OnlineUsers(ctx context.Context) ([]int64, error) {
	cutoff := strconv.FormatInt(p.now().Unix(), 10)
	if err := p.rdb.ZRemRangeByScore(ctx, onlineKey, "-inf", "("+cutoff).Err(); err != nil {
		return nil, err
	}
	raw, err := p.rdb.ZRange(ctx, onlineKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func member(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
