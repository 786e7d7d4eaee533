package store

import (
	"context"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"

	"github.com/suvichaar/storygen/internal/images"
)

// NewRedisClient creates and pings a Redis client with optional password auth.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return rdb, nil
}

// maxCachedImage keeps very large downloads out of Redis.
const maxCachedImage = 8 << 20

// RedisImageCache stores fetched image bytes keyed by a hash of the source URL.
type RedisImageCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ images.Cache = (*RedisImageCache)(nil)

func NewRedisImageCache(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisImageCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisImageCache{rdb: rdb, ttl: ttl, logger: logger}
}

// cacheKey derives a fixed-length key from a URL.
func cacheKey(url string) string {
	sum := blake2b.Sum256([]byte(url))
	return "imgcache:" + hex.EncodeToString(sum[:])
}

// Get returns the cached bytes; errors count as a miss.
func (c *RedisImageCache) Get(ctx context.Context, url string) ([]byte, string, bool) {
	vals, err := c.rdb.HGetAll(ctx, cacheKey(url)).Result()
	if err != nil {
		c.logger.Warn("image cache read failed (non-fatal)", "error", err)
		return nil, "", false
	}
	data, ok := vals["data"]
	if !ok {
		return nil, "", false
	}
	return []byte(data), vals["ct"], true
}

func (c *RedisImageCache) Set(ctx context.Context, url string, data []byte, contentType string) {
	if len(data) > maxCachedImage {
		return
	}
	key := cacheKey(url)
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "data", data, "ct", contentType)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		c.logger.Warn("image cache write failed (non-fatal)", "error", err)
	}
}
