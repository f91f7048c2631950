// Package rediscache implements the ticket cache on Redis. Entries carry an
// absolute expiry enforced by Redis itself, so expired sessions vanish
// without any explicit cleanup pass.
package rediscache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/przemekbroda/sessionstore/ticket"
)

// ErrUnavailable is returned when Redis cannot be reached.
var ErrUnavailable = errors.New("redis unavailable")

var _ ticket.Cache = (*Cache)(nil)

// Cache is a Redis-backed ticket.Cache. The client is shared and safe for
// concurrent use; one Cache serves all request-scoped operations.
type Cache struct {
	client redis.UniversalClient
}

// New creates a Cache backed by the given Redis client.
func New(client redis.UniversalClient) *Cache {
	return &Cache{client: client}
}

// Get returns the payload stored under key, or (nil, nil) when the key is
// absent or already expired.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return payload, nil
}

// Set stores the payload under key. A zero expiresAt stores it without TTL;
// an expiry at or before now is written with a minimal TTL so the entry is
// born dead rather than immortal.
func (c *Cache) Set(ctx context.Context, key string, payload []byte, expiresAt time.Time) error {
	if err := c.client.Set(ctx, key, payload, ttlUntil(expiresAt)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Delete removes the entry under key. Deleting an absent key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func ttlUntil(expiresAt time.Time) time.Duration {
	if expiresAt.IsZero() {
		return 0
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return time.Millisecond
	}
	return ttl
}
