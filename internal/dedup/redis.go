package dedup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDeduplicator marks message ids with SET NX EX, which is a single
// atomic check-and-set on the server.
type RedisDeduplicator struct {
	rdb       *redis.Client
	keyPrefix string
	ttl       time.Duration
}

var _ Deduplicator = (*RedisDeduplicator)(nil)

func NewRedisDeduplicator(rdb *redis.Client, keyPrefix string, ttl time.Duration) *RedisDeduplicator {
	if keyPrefix == "" {
		keyPrefix = "dedup:msg:"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDeduplicator{rdb: rdb, keyPrefix: keyPrefix, ttl: ttl}
}

func (d *RedisDeduplicator) CheckAndMark(ctx context.Context, messageID string) (bool, error) {
	set, err := d.rdb.SetNX(ctx, d.keyPrefix+messageID, 1, d.ttl).Result()
	if err != nil {
		return false, err
	}
	// set==true means we just claimed it, so it was not seen before.
	return !set, nil
}

func (d *RedisDeduplicator) Unmark(ctx context.Context, messageID string) error {
	return d.rdb.Del(ctx, d.keyPrefix+messageID).Err()
}
