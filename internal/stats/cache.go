package stats

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores counters. A miss is (0, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) (int, bool, error)
	Set(ctx context.Context, key string, value int, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (int, bool, error) {
	n, err := c.client.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value int, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// NoopCache is used when redis is disabled; every read is a miss.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (int, bool, error) { return 0, false, nil }
func (NoopCache) Set(context.Context, string, int, time.Duration) error { return nil }
func (NoopCache) Delete(context.Context, ...string) error { return nil }
