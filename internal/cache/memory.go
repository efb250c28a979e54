package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache"
	"github.com/axellelanca/linkstats/internal/models"
)

// MemoryCache keeps stats in process with bigcache. bigcache only evicts on
// its clean-up tick, so each entry also carries its own expiry.
type MemoryCache struct {
	cache *bigcache.BigCache
	ttl   time.Duration
	now   func() time.Time
}

type memoryEntry struct {
	ExpiresAt time.Time         `json:"expires_at"`
	Stats     *models.LinkStats `json:"stats"`
}

func NewMemoryCache(ttl time.Duration) (*MemoryCache, error) {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	cfg := bigcache.DefaultConfig(ttl)
	cfg.Shards = 64
	cfg.CleanWindow = ttl
	if cfg.CleanWindow < time.Second {
		cfg.CleanWindow = time.Second
	}
	cfg.MaxEntriesInWindow = 10_000
	cfg.MaxEntrySize = 1024
	cfg.Verbose = false

	c, err := bigcache.NewBigCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	return &MemoryCache{cache: c, ttl: ttl, now: time.Now}, nil
}

func (m *MemoryCache) Get(_ context.Context, key string) (*models.LinkStats, bool, error) {
	raw, err := m.cache.Get(key)
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("memory cache get %s: %w", key, err)
	}

	var entry memoryEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false, fmt.Errorf("memory cache decode %s: %w", key, err)
	}
	if !m.now().Before(entry.ExpiresAt) {
		_ = m.cache.Delete(key)
		return nil, false, nil
	}
	return entry.Stats, true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, stats *models.LinkStats) error {
	raw, err := json.Marshal(memoryEntry{ExpiresAt: m.now().Add(m.ttl), Stats: stats})
	if err != nil {
		return fmt.Errorf("memory cache encode %s: %w", key, err)
	}
	return m.cache.Set(key, raw)
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	if err := m.cache.Delete(key); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		return fmt.Errorf("memory cache delete %s: %w", key, err)
	}
	return nil
}

func (m *MemoryCache) Close() error {
	return m.cache.Close()
}
