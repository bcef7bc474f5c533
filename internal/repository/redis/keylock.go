package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/flashflowhq/ingest/internal/repository"
)

var _ repository.KeyLock = (*redisKeyLock)(nil)

const (
	lockKeyPrefix = "ingest:key:"

	// lockTTL bounds how long a crashed committer can hold a natural-key
	// slot. Commits are single-row writes, so this is generous.
	lockTTL = 30 * time.Second
)

type redisKeyLock struct {
	client *goredis.Client
}

// NewKeyLock creates a Redis-backed per-natural-key commit lock using SETNX.
func NewKeyLock(client *goredis.Client) repository.KeyLock {
	return &redisKeyLock{client: client}
}

// AcquireKey uses SETNX to atomically claim the commit slot for a natural key.
func (r *redisKeyLock) AcquireKey(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, lockKeyPrefix+key, time.Now().Unix(), lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis: acquire key lock: %w", err)
	}
	return ok, nil
}

// ReleaseKey deletes the lock so the next committer for this key proceeds
// immediately instead of waiting out the TTL.
func (r *redisKeyLock) ReleaseKey(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, lockKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis: release key lock: %w", err)
	}
	return nil
}
