package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// unlockScript deletes the lock key only while it still holds our token, so
// a lock that expired and was re-acquired by someone else is left alone.
const unlockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// Lock acquires a distributed lock and returns the token that releases it.
func (c *Client) Lock(ctx context.Context, key string, expiration time.Duration) (string, error) {
	token := uuid.New().String()

	ok, err := c.SetNX(ctx, key, token, expiration)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("failed to acquire lock: %s", key)
	}
	return token, nil
}

// Unlock releases a lock previously acquired with Lock.
func (c *Client) Unlock(ctx context.Context, key, token string) error {
	result, err := c.Eval(ctx, unlockScript, []string{key}, token)
	if err != nil {
		return err
	}
	if n, _ := result.(int64); n == 0 {
		return fmt.Errorf("failed to release lock %s: token mismatch or lock expired", key)
	}
	return nil
}

// WithLock runs fn while holding the lock and releases it afterwards.
func (c *Client) WithLock(ctx context.Context, key string, expiration time.Duration, fn func() error) error {
	token, err := c.Lock(ctx, key, expiration)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Unlock(ctx, key, token); err != nil {
			c.logger.Error("failed to release lock", zap.String("key", key), zap.Error(err))
		}
	}()

	return fn()
}
