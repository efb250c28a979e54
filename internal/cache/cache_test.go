package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/axellelanca/linkstats/internal/config"
	"github.com/axellelanca/linkstats/internal/models"
	"github.com/redis/go-redis/v9"
)

func sampleStats() *models.LinkStats {
	return &models.LinkStats{
		URL:         "https://example.com",
		CreatedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		UniqueViews: 2,
		TotalViews:  3,
		Browsers:    map[string]int64{"Chrome": 2, "Firefox": 1},
		OS:          map[string]int64{"Linux": 3},
	}
}

// exercise runs the same scenario against every implementation.
func exercise(t *testing.T, c StatsCache) {
	t.Helper()
	ctx := context.Background()
	key := Key("alice", "abcd")

	if _, found, err := c.Get(ctx, key); err != nil || found {
		t.Fatalf("Get on empty cache = found %v, err %v", found, err)
	}

	if err := c.Set(ctx, key, sampleStats()); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, found, err := c.Get(ctx, key)
	if err != nil || !found {
		t.Fatalf("Get after Set = found %v, err %v", found, err)
	}
	if got.TotalViews != 3 || got.UniqueViews != 2 || got.Browsers["Chrome"] != 2 || got.OS["Linux"] != 3 {
		t.Errorf("unexpected stats %+v", got)
	}
	if !got.CreatedAt.Equal(sampleStats().CreatedAt) {
		t.Errorf("CreatedAt = %v", got.CreatedAt)
	}

	if _, found, _ := c.Get(ctx, Key("bob", "abcd")); found {
		t.Error("another owner must not see the entry")
	}

	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, found, _ := c.Get(ctx, key); found {
		t.Error("entry still present after Delete")
	}
	if err := c.Delete(ctx, key); err != nil {
		t.Errorf("Delete of a missing key error = %v", err)
	}
}

func TestMemoryCache(t *testing.T) {
	c, err := NewMemoryCache(time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	exercise(t, c)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c, err := NewMemoryCache(time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	now := time.Now()
	c.now = func() time.Time { return now }
	ctx := context.Background()
	if err := c.Set(ctx, "k", sampleStats()); err != nil {
		t.Fatal(err)
	}

	c.now = func() time.Time { return now.Add(2 * time.Minute) }
	if _, found, _ := c.Get(ctx, "k"); found {
		t.Error("expected the entry to be expired")
	}
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisCache(client, time.Minute)
	defer c.Close()

	exercise(t, c)

	if err := c.Set(context.Background(), "ttl", sampleStats()); err != nil {
		t.Fatal(err)
	}
	if ttl := mr.TTL("ttl"); ttl != time.Minute {
		t.Errorf("TTL = %v, want 1m", ttl)
	}
	mr.FastForward(2 * time.Minute)
	if _, found, _ := c.Get(context.Background(), "ttl"); found {
		t.Error("expected the redis entry to expire")
	}
}

func TestNewSelectsDriver(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	tests := []struct {
		driver  string
		want    string
		wantErr bool
	}{
		{driver: "none", want: "noop"},
		{driver: "memory", want: "memory"},
		{driver: "redis", want: "redis"},
		{driver: "memcached", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			var cfg config.Config
			cfg.Cache.Driver = tt.driver
			cfg.Cache.TTLSeconds = 10
			cfg.Cache.RedisAddr = mr.Addr()

			c, err := New(ctx, cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			defer c.Close()

			var got string
			switch c.(type) {
			case Noop:
				got = "noop"
			case *MemoryCache:
				got = "memory"
			case *RedisCache:
				got = "redis"
			}
			if got != tt.want {
				t.Errorf("New(%s) built %T", tt.driver, c)
			}
		})
	}
}

func TestNewRedisUnreachable(t *testing.T) {
	var cfg config.Config
	cfg.Cache.Driver = "redis"
	cfg.Cache.RedisAddr = "127.0.0.1:1"

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := New(ctx, cfg); err == nil {
		t.Fatal("expected an error for an unreachable redis")
	}
}
