package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bluele/gcache"

	"iracgo/internal/models"
)

// MemoryCache is a bounded LRU with per-entry expiry.
type MemoryCache struct {
	store gcache.Cache
}

// NewMemory returns an LRU holding at most size entries for ttl each.
// A nil clock uses wall time.
func NewMemory(size int, ttl time.Duration, clock gcache.Clock) *MemoryCache {
	b := gcache.New(size).LRU().Expiration(ttl)
	if clock != nil {
		b = b.Clock(clock)
	}
	return &MemoryCache{store: b.Build()}
}

func (m *MemoryCache) Get(_ context.Context, key string) (models.Summary, bool, error) {
	v, err := m.store.Get(key)
	if errors.Is(err, gcache.KeyNotFoundError) {
		return models.Summary{}, false, nil
	}
	if err != nil {
		return models.Summary{}, false, err
	}
	s, ok := v.(models.Summary)
	if !ok {
		return models.Summary{}, false, nil
	}
	return s, true, nil
}

func (m *MemoryCache) Put(_ context.Context, key string, summary models.Summary) error {
	if summary.Usage != nil {
		usage := *summary.Usage
		summary.Usage = &usage
	}
	return m.store.Set(key, summary)
}

// Len reports the number of live entries.
func (m *MemoryCache) Len() int {
	return m.store.Len(true)
}

func (m *MemoryCache) Close() error {
	m.store.Purge()
	return nil
}
