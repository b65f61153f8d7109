package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// externalKeyPrefix namespaces cached directory responses.
	externalKeyPrefix = "extdir:"

	// DefaultExternalTTL is the TTL for cached external directory
	// responses. Kept short: the cache shields the public service from
	// repeated facet requests, it is not a source of truth.
	DefaultExternalTTL = 5 * time.Minute
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// GetExternalResponse retrieves a cached directory response body.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetExternalResponse(ctx context.Context, key string) ([]byte, error) {
	body, err := c.client.Get(ctx, externalKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return body, nil
}

// SetExternalResponse stores a directory response body with a TTL.
func (c *Cache) SetExternalResponse(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultExternalTTL
	}
	if err := c.client.Set(ctx, externalKeyPrefix+key, body, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache external response: %w", err)
	}
	return nil
}
