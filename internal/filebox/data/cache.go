package data

import (
	"context"
	"time"

	"github.com/localboxhq/localbox-server/internal/pkg/logger"
	redispkg "github.com/localboxhq/localbox-server/internal/pkg/redis"
	"go.uber.org/zap"
)

// RedisURLCache implements biz.URLCache. Cache trouble is never worth
// failing a download for, so every error degrades to a miss.
type RedisURLCache struct {
	client *redispkg.Client
	logger *logger.Logger
}

// NewRedisURLCache creates a RedisURLCache.
func NewRedisURLCache(client *redispkg.Client, log *logger.Logger) *RedisURLCache {
	return &RedisURLCache{client: client, logger: log}
}

func (c *RedisURLCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, key)
	if err != nil || val == "" {
		return "", false
	}
	return val, true
}

func (c *RedisURLCache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if err := c.client.Set(ctx, key, value, ttl); err != nil {
		c.logger.Debug("url cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *RedisURLCache) Del(ctx context.Context, key string) {
	if _, err := c.client.Del(ctx, key); err != nil {
		c.logger.Debug("url cache del failed", zap.String("key", key), zap.Error(err))
	}
}
