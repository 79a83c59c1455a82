package psi

import (
	"context"
	"time"

	pkgredis "github.com/votehub/core/internal/pkg/redis"
)

const trendingKey = "votehub:psi:trending"

// TrendingCache stores the precomputed trending ranking.
type TrendingCache interface {
	Get(ctx context.Context) ([]TrendingEntry, bool, error)
	Set(ctx context.Context, entries []TrendingEntry, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type redisCache struct {
	client *pkgredis.Client
}

// NewRedisCache backs the trending ranking with redis.
func NewRedisCache(client *pkgredis.Client) TrendingCache {
	return &redisCache{client: client}
}

func (c *redisCache) Get(ctx context.Context) ([]TrendingEntry, bool, error) {
	var entries []TrendingEntry
	found, err := c.client.GetJSON(ctx, trendingKey, &entries)
	return entries, found, err
}

func (c *redisCache) Set(ctx context.Context, entries []TrendingEntry, ttl time.Duration) error {
	return c.client.SetJSON(ctx, trendingKey, entries, ttl)
}

func (c *redisCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, trendingKey)
}
