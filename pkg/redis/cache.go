package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const tierKeyPrefix = "entitlement:tier:"

// TierCache stores resolved subscription tiers for a short time so repeated
// playback requests do not hit the identity store on every call.
type TierCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTierCache creates a tier cache with the given entry lifetime.
func NewTierCache(client *redis.Client, ttl time.Duration) *TierCache {
	return &TierCache{client: client, ttl: ttl}
}

// Get returns the cached tier for username.
func (c *TierCache) Get(ctx context.Context, username string) (string, bool, error) {
	v, err := c.client.Get(ctx, tierKeyPrefix+username).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set caches tier for username.
func (c *TierCache) Set(ctx context.Context, username, tier string) error {
	return c.client.Set(ctx, tierKeyPrefix+username, tier, c.ttl).Err()
}
