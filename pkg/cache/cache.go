// Package cache stores validated entities under content-addressed keys with
// lazy TTL expiry. Every failure is absorbed: a broken cache degrades to a
// miss, never to an error returned to the caller.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/medsynth/medsynth/pkg/cache/backend"
	"github.com/medsynth/medsynth/pkg/models"
)

// KeyPrefix namespaces cache entries inside a shared backend.
const KeyPrefix = "medsynth-cache:"

// Cache is a TTL cache over a backend.Backend.
type Cache struct {
	store   backend.Backend
	ttl     time.Duration
	enabled bool
	now     func() time.Time
	logger  zerolog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger attaches a logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// Disabled makes every Get a miss and every Put a no-op.
func Disabled() Option {
	return func(c *Cache) { c.enabled = false }
}

// New wraps store. A ttl of zero means entries never expire.
func New(store backend.Backend, ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		store:   store,
		ttl:     ttl,
		enabled: true,
		now:     time.Now,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MakeKey derives a stable key from the JSON encoding of parts.
func MakeKey(parts ...any) string {
	data, err := json.Marshal(parts)
	if err != nil {
		data = []byte(fmt.Sprintf("%#v", parts))
	}
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

// Backend returns the name of the backing store.
func (c *Cache) Backend() string {
	return c.store.Name()
}

// Get decodes the live entry for key into dst and reports whether it did.
// Expired and corrupt entries are deleted on the way.
func (c *Cache) Get(ctx context.Context, key string, dst any) bool {
	if !c.enabled {
		return false
	}
	storeKey := KeyPrefix + key

	raw, err := c.store.Get(ctx, storeKey)
	if err != nil {
		if !errors.Is(err, backend.ErrNotFound) {
			c.logger.Warn().Err(err).Str("key", short(key)).Msg("cache read failed")
		}
		c.misses.Add(1)
		return false
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.discard(ctx, storeKey, "corrupt")
		c.misses.Add(1)
		return false
	}
	if entry.Expired(c.now()) {
		c.discard(ctx, storeKey, "expired")
		c.misses.Add(1)
		return false
	}
	if err := json.Unmarshal(entry.Data, dst); err != nil {
		c.discard(ctx, storeKey, "undecodable")
		c.misses.Add(1)
		return false
	}

	c.hits.Add(1)
	return true
}

// Put stores value under key. When the backend is full it sweeps expired
// entries (evicting the oldest if that frees nothing) and retries once.
func (c *Cache) Put(ctx context.Context, key string, value any) {
	if !c.enabled {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", short(key)).Msg("cache value not serializable")
		return
	}

	now := c.now().UTC()
	entry := models.CacheEntry{Key: key, Data: data, CreatedAt: now}
	if c.ttl > 0 {
		exp := now.Add(c.ttl)
		entry.ExpiresAt = &exp
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", short(key)).Msg("cache entry not serializable")
		return
	}

	storeKey := KeyPrefix + key
	err = c.store.Set(ctx, storeKey, raw)
	if errors.Is(err, backend.ErrQuotaExceeded) {
		freed := c.ClearExpired(ctx)
		if freed == 0 {
			c.evictOldest(ctx)
		}
		err = c.store.Set(ctx, storeKey, raw)
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("key", short(key)).Str("backend", c.store.Name()).Msg("cache write dropped")
	}
}

// ClearExpired removes expired and corrupt entries and returns how many
// were removed.
func (c *Cache) ClearExpired(ctx context.Context) int {
	keys, err := c.store.Keys(ctx, KeyPrefix)
	if err != nil {
		c.logger.Warn().Err(err).Msg("cache sweep failed")
		return 0
	}
	now := c.now()
	removed := 0
	for _, k := range keys {
		raw, err := c.store.Get(ctx, k)
		if err != nil {
			continue
		}
		var entry models.CacheEntry
		if json.Unmarshal(raw, &entry) == nil && !entry.Expired(now) {
			continue
		}
		if err := c.store.Delete(ctx, k); err != nil {
			c.logger.Warn().Err(err).Str("key", short(k)).Msg("cache delete failed")
			continue
		}
		removed++
	}
	return removed
}

// Clear removes every cache entry and returns how many were removed. Keys
// outside KeyPrefix, such as the saved model configuration, are untouched.
func (c *Cache) Clear(ctx context.Context) int {
	keys, err := c.store.Keys(ctx, KeyPrefix)
	if err != nil {
		c.logger.Warn().Err(err).Msg("cache clear failed")
		return 0
	}
	removed := 0
	for _, k := range keys {
		if err := c.store.Delete(ctx, k); err != nil {
			c.logger.Warn().Err(err).Str("key", short(k)).Msg("cache delete failed")
			continue
		}
		removed++
	}
	return removed
}

// Stats scans the cache and returns its contents and hit/miss counters.
func (c *Cache) Stats(ctx context.Context) models.CacheStats {
	stats := models.CacheStats{
		Backend: c.store.Name(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
	keys, err := c.store.Keys(ctx, KeyPrefix)
	if err != nil {
		c.logger.Warn().Err(err).Msg("cache stats failed")
		return stats
	}
	now := c.now()
	for _, k := range keys {
		raw, err := c.store.Get(ctx, k)
		if err != nil {
			continue
		}
		stats.Entries++
		stats.SizeBytes += int64(len(k) + len(raw))

		var entry models.CacheEntry
		switch {
		case json.Unmarshal(raw, &entry) != nil:
			stats.Corrupt++
		case entry.Expired(now):
			stats.Expired++
		default:
			stats.Valid++
		}
	}
	return stats
}

// Close releases the backend.
func (c *Cache) Close() error {
	return c.store.Close()
}

func (c *Cache) evictOldest(ctx context.Context) {
	keys, err := c.store.Keys(ctx, KeyPrefix)
	if err != nil {
		return
	}
	var oldestKey string
	var oldest time.Time
	for _, k := range keys {
		raw, err := c.store.Get(ctx, k)
		if err != nil {
			continue
		}
		var entry models.CacheEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		if oldestKey == "" || entry.CreatedAt.Before(oldest) {
			oldestKey, oldest = k, entry.CreatedAt
		}
	}
	if oldestKey == "" {
		return
	}
	if err := c.store.Delete(ctx, oldestKey); err != nil {
		c.logger.Warn().Err(err).Str("key", short(oldestKey)).Msg("cache eviction failed")
		return
	}
	c.logger.Debug().Str("key", short(oldestKey)).Msg("evicted oldest cache entry")
}

func (c *Cache) discard(ctx context.Context, storeKey, reason string) {
	if err := c.store.Delete(ctx, storeKey); err != nil {
		c.logger.Warn().Err(err).Str("key", short(storeKey)).Msg("cache delete failed")
		return
	}
	c.logger.Debug().Str("key", short(storeKey)).Str("reason", reason).Msg("dropped cache entry")
}

func short(key string) string {
	if len(key) > 32 {
		return key[:32]
	}
	return key
}
