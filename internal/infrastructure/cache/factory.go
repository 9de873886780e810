// Package cache provides the Redis and in-memory caches behind the analytics
// dashboard and the Redis client shared with token revocation.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Store is the contract both caches satisfy
type Store interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	InvalidatePrefix(ctx context.Context, prefix string) error
}

var (
	_ Store = (*RedisCache)(nil)
	_ Store = (*InMemoryCache)(nil)
)

// NewStore returns a Redis-backed store when client is non-nil, otherwise an
// in-memory one. In-memory entries are not shared across instances.
func NewStore(client redis.UniversalClient, logger *zap.Logger) Store {
	if client != nil {
		logger.Info("Using Redis cache")
		return NewRedisCache(client, "")
	}
	logger.Warn("Redis disabled, using in-memory cache")
	return NewInMemoryCache(time.Minute)
}
