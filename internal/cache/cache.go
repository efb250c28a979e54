// Package cache stores computed link statistics for a short time so that
// repeated reads do not re-run the four aggregation queries.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/axellelanca/linkstats/internal/config"
	"github.com/axellelanca/linkstats/internal/models"
	"github.com/redis/go-redis/v9"
)

// StatsCache is a best-effort cache of LinkStats. A miss is reported with
// found == false and a nil error.
type StatsCache interface {
	Get(ctx context.Context, key string) (stats *models.LinkStats, found bool, err error)
	Set(ctx context.Context, key string, stats *models.LinkStats) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Key returns the cache key of the stats of (ownerID, hash).
func Key(ownerID, hash string) string {
	return fmt.Sprintf("stats:%d:%s:%s", len(ownerID), ownerID, hash)
}

// New builds the cache selected by cfg.Cache.Driver.
func New(ctx context.Context, cfg config.Config) (StatsCache, error) {
	ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second
	switch cfg.Cache.Driver {
	case "", "none":
		return Noop{}, nil
	case "memory":
		return NewMemoryCache(ttl)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("unable to connect to redis at %s: %w", cfg.Cache.RedisAddr, err)
		}
		return NewRedisCache(client, ttl), nil
	default:
		return nil, fmt.Errorf("unsupported cache driver %q", cfg.Cache.Driver)
	}
}

// Noop ne met rien en cache.
type Noop struct{}

func (Noop) Get(context.Context, string) (*models.LinkStats, bool, error) { return nil, false, nil }
func (Noop) Set(context.Context, string, *models.LinkStats) error         { return nil }
func (Noop) Delete(context.Context, string) error                         { return nil }
func (Noop) Close() error                                                 { return nil }
