// Package cache memoizes per-user media listings in Redis.
//
// Keys:
//
//	media:list:{userId}          the user's own media
//	media:list:{userId}:shared   media shared with the user
//
// Invalidation for a user deletes the exact key and every key under
// media:list:{userId}: found with SCAN, so derived listings added later
// are covered without touching this package.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/devstream-shilpa/Media-Platform/internal/media"
)

const (
	keyPrefix = "media:list:"
	scanCount = 100
)

type cmdable interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// Options configures the Redis connection.
type Options struct {
	Addr         string
	Password     string
	DB           int
	TLS          bool
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	ListingTTL   time.Duration
}

// Cache is the listing cache.
type Cache struct {
	store cmdable
	raw   *redis.Client
	ttl   time.Duration
}

// New connects to Redis and verifies connectivity.
func New(ctx context.Context, opts Options) (*Cache, error) {
	ro, err := optionsFrom(opts)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(ro)
	if err := raw.Ping(ctx).Err(); err != nil {
		raw.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Cache{store: raw, raw: raw, ttl: opts.ListingTTL}, nil
}

func optionsFrom(opts Options) (*redis.Options, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	// redis:// and rediss:// URLs are accepted in Addr as well.
	if strings.Contains(opts.Addr, "://") {
		ro, err := redis.ParseURL(opts.Addr)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		applyTimeouts(ro, opts)
		return ro, nil
	}
	ro := &redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
	if opts.TLS {
		ro.TLSConfig = tlsConfig()
	}
	applyTimeouts(ro, opts)
	return ro, nil
}

func applyTimeouts(ro *redis.Options, opts Options) {
	if opts.DialTimeout > 0 {
		ro.DialTimeout = opts.DialTimeout
	}
	if opts.ReadTimeout > 0 {
		ro.ReadTimeout = opts.ReadTimeout
	}
	if opts.WriteTimeout > 0 {
		ro.WriteTimeout = opts.WriteTimeout
	}
}

// ListingKey is the cache key for a user's own listing.
func ListingKey(userID string) string {
	return keyPrefix + userID
}

// SharedListingKey is the cache key for media shared with a user.
func SharedListingKey(userID string) string {
	return keyPrefix + userID + ":shared"
}

// Ping checks connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.store.Ping(ctx).Err()
}

// Close releases the connection pool.
func (c *Cache) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

// GetListing returns the cached listing. hit is false on a miss.
func (c *Cache) GetListing(ctx context.Context, key string) (recs []media.Record, hit bool, err error) {
	raw, err := c.store.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis GET %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), &recs); err != nil {
		// A payload we cannot read is treated as a miss and overwritten.
		log.Warn().Err(err).Str("key", key).Msg("Discarding unreadable cached listing")
		return nil, false, nil
	}
	return recs, true, nil
}

// SetListing stores a listing with the configured TTL.
func (c *Cache) SetListing(ctx context.Context, key string, recs []media.Record) error {
	payload, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encode listing: %w", err)
	}
	if err := c.store.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", key, err)
	}
	return nil
}

// InvalidateUser removes every listing key for userID and returns how many
// keys were deleted.
func (c *Cache) InvalidateUser(ctx context.Context, userID string) (int64, error) {
	keys := []string{ListingKey(userID)}
	pattern := escapeGlob(ListingKey(userID)) + ":*"

	var cursor uint64
	for {
		batch, next, err := c.store.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return 0, fmt.Errorf("redis SCAN %s: %w", pattern, err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	deleted, err := c.store.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis DEL for user %s: %w", userID, err)
	}
	log.Debug().Str("userId", userID).Int("keys", len(keys)).Int64("deleted", deleted).Msg("Listing cache invalidated")
	return deleted, nil
}

// InvalidateShared drops the shared listing of every user in userIDs in one
// DEL. An empty slice is a no-op.
func (c *Cache) InvalidateShared(ctx context.Context, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = SharedListingKey(id)
	}
	if err := c.store.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis DEL shared listings: %w", err)
	}
	log.Debug().Strs("userIds", userIDs).Msg("Shared listings invalidated")
	return nil
}

// InvalidateKey deletes a single key.
func (c *Cache) InvalidateKey(ctx context.Context, key string) error {
	if err := c.store.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis DEL %s: %w", key, err)
	}
	return nil
}

// escapeGlob escapes Redis glob metacharacters in a literal key prefix.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
