package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"jeevandhara/internal/middleware"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Keys for the cached directory listings.
const (
	KeyDonors     = "donors:all"
	KeyHospitals  = "hospitals:all"
	KeyBloodBanks = "bloodBanks:all"
)

// ListTTL bounds how stale a cached listing may get.
const ListTTL = 5 * time.Minute

// Cache is a JSON read-through cache. A Cache with a nil client always
// misses and never stores, so callers need no Redis checks.
type Cache struct {
	rdb   *redis.Client
	group singleflight.Group
}

// New wraps rdb, which may be nil.
func New(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// Client exposes the underlying client; nil when caching is off.
func (c *Cache) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.rdb
}

// GetJSON loads key into dest. It reports false on a miss.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if c.Client() == nil {
		return false, nil
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores v under key for ttl.
func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if c.Client() == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, ttl).Err()
}

// Aside returns the cached value for key or calls fetch, stores its result
// and returns it. Concurrent misses for the same key share one fetch. Redis
// failures degrade to a direct fetch.
func Aside[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var out T
	if c.Client() == nil {
		return fetch(ctx)
	}

	found, err := c.GetJSON(ctx, key, &out)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	} else if found {
		return out, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		fresh, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.SetJSON(ctx, key, fresh, ttl); err != nil {
			middleware.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return fresh, nil
	})
	if err != nil {
		return out, err
	}
	return v.(T), nil
}

// Invalidate drops keys. Errors are logged, not returned: a stale entry
// expires on its own.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c.Client() == nil || len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidation failed", slog.Any("keys", keys), slog.String("error", err.Error()))
	}
}
