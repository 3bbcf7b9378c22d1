package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// URLCache stores presigned URLs for part of their lifetime.
type URLCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, url string, ttl time.Duration) error
}

// cachedClient serves PresignGet from a URLCache. URLs are kept for half
// their expiry so a cached URL always has time left when handed out.
type cachedClient struct {
	ObjectClient
	cache URLCache
	scope string
	log   zerolog.Logger
}

func newCachedClient(client ObjectClient, cache URLCache, scope string, log zerolog.Logger) *cachedClient {
	return &cachedClient{ObjectClient: client, cache: cache, scope: scope, log: log}
}

func (c *cachedClient) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	cacheKey := fmt.Sprintf("%s:%d:%s", c.scope, int64(expiry.Seconds()), key)

	url, ok, err := c.cache.Get(ctx, cacheKey)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("url cache read failed")
	} else if ok {
		return url, nil
	}

	url, err = c.ObjectClient.PresignGet(ctx, key, expiry)
	if err != nil {
		return "", err
	}

	if err := c.cache.Set(ctx, cacheKey, url, expiry/2); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("url cache write failed")
	}
	return url, nil
}
