// Package cache keeps presigned object URLs in redis so repeated access
// requests for the same object skip the signing round.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/filestore/internal/config"
	"github.com/redis/go-redis/v9"
)

const urlKeyPrefix = "filestore:url:"

// URLCache is a redis-backed store of presigned URLs.
type URLCache struct {
	client *redis.Client
}

// NewURLCache connects to redis. It returns nil, nil when caching is
// disabled so callers can skip the router option.
func NewURLCache(cfg config.CacheConfig) (*URLCache, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	client, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewURLCacheWithClient(client), nil
}

func NewURLCacheWithClient(client *redis.Client) *URLCache {
	return &URLCache{client: client}
}

func (c *URLCache) Get(ctx context.Context, key string) (string, bool, error) {
	url, err := c.client.Get(ctx, urlKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get failed: %w", err)
	}
	return url, true, nil
}

func (c *URLCache) Set(ctx context.Context, key, url string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, urlKeyPrefix+key, url, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *URLCache) Close() error {
	return c.client.Close()
}
