package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"iracgo/internal/models"
	"iracgo/internal/redis"
)

const redisKeyPrefix = "irac:summary:"

type byteStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// RedisCache keeps JSON-encoded summaries in redis with a TTL.
type RedisCache struct {
	store byteStore
	ttl   time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{store: client, ttl: ttl}
}

func (r *RedisCache) Get(ctx context.Context, key string) (models.Summary, bool, error) {
	raw, err := r.store.Get(ctx, redisKeyPrefix+key)
	if errors.Is(err, redis.ErrCacheMiss) {
		return models.Summary{}, false, nil
	}
	if err != nil {
		return models.Summary{}, false, fmt.Errorf("redis get: %w", err)
	}
	var s models.Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		return models.Summary{}, false, fmt.Errorf("decode cached summary: %w", err)
	}
	return s, true, nil
}

func (r *RedisCache) Put(ctx context.Context, key string, summary models.Summary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := r.store.Set(ctx, redisKeyPrefix+key, raw, r.ttl); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisCache) Close() error {
	return r.store.Close()
}
