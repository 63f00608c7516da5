package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// DefaultVisibilityTTL bounds how long a collaboration's visibility is
// trusted.
const DefaultVisibilityTTL = 5 * time.Minute

const visibilityKeyPrefix = "prov:collab-public:"

// RedisCache stores collaboration visibility in redis.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultVisibilityTTL
	}

	return &RedisCache{client: client, ttl: ttl}
}

// NewRedisCacheFromURL parses a redis:// URL and checks the server answers.
func NewRedisCacheFromURL(ctx context.Context, rawURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisCache(client, ttl), nil
}

func (c *RedisCache) Visibility(ctx context.Context, collabID string) (bool, bool, error) {
	value, err := c.client.Get(ctx, visibilityKeyPrefix+collabID).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}

	if err != nil {
		return false, false, err
	}

	return value == "1", true, nil
}

func (c *RedisCache) SetVisibility(ctx context.Context, collabID string, public bool) error {
	value := "0"
	if public {
		value = "1"
	}

	return c.client.Set(ctx, visibilityKeyPrefix+collabID, value, c.ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
