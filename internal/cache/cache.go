package cache

import (
	"context"
	"fmt"
	"time"

	"iracgo/internal/config"
	"iracgo/internal/models"
	"iracgo/internal/redis"
)

// Cache stores generated summaries by request fingerprint.
// Implemented by an in-process LRU (single instance) and Redis (shared across instances).
type Cache interface {
	Get(ctx context.Context, key string) (models.Summary, bool, error)
	Put(ctx context.Context, key string, summary models.Summary) error
	Close() error
}

// New builds the backend selected in cfg.Cache.
func New(ctx context.Context, cfg *config.Config) (Cache, error) {
	ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second
	switch cfg.Cache.Backend {
	case config.CacheBackendMemory, "":
		return NewMemory(cfg.Cache.MaxEntries, ttl, nil), nil
	case config.CacheBackendRedis:
		client, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedis(client, ttl), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Cache.Backend)
	}
}
