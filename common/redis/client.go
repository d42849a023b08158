package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Client wraps redis.Client with common operations and instrumentation
type Client struct {
	redis  *redis.Client
	logger Logger
}

// NewClient creates a new Redis client wrapper
func NewClient(redisClient *redis.Client, logger Logger) *Client {
	return &Client{
		redis:  redisClient,
		logger: logger,
	}
}

// GetUnderlying returns the underlying redis.Client for advanced operations
func (c *Client) GetUnderlying() *redis.Client {
	return c.redis
}

// Ping verifies the connection
func (c *Client) Ping(ctx context.Context) error {
	if err := c.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

// Close closes the underlying connection
func (c *Client) Close() error {
	return c.redis.Close()
}

// HashExists checks whether a hash field exists
func (c *Client) HashExists(ctx context.Context, key, field string) (bool, error) {
	exists, err := c.redis.HExists(ctx, key, field).Result()
	if err != nil {
		c.logger.Error("redis HEXISTS failed", "key", key, "field", field, "error", err)
		return false, fmt.Errorf("failed to check hash %s field %s: %w", key, field, err)
	}
	c.logger.Debug("redis HEXISTS", "key", key, "field", field, "exists", exists)
	return exists, nil
}

// HashGet retrieves a hash field value. The second return value
// reports whether the field was present.
func (c *Client) HashGet(ctx context.Context, key, field string) (string, bool, error) {
	val, err := c.redis.HGet(ctx, key, field).Result()
	if err == redis.Nil {
		c.logger.Debug("redis HGET field not found", "key", key, "field", field)
		return "", false, nil
	}
	if err != nil {
		c.logger.Error("redis HGET failed", "key", key, "field", field, "error", err)
		return "", false, fmt.Errorf("failed to get hash %s field %s: %w", key, field, err)
	}
	c.logger.Debug("redis HGET", "key", key, "field", field)
	return val, true, nil
}

// HashSet sets a hash field value, replacing any previous value
func (c *Client) HashSet(ctx context.Context, key, field, value string) error {
	err := c.redis.HSet(ctx, key, field, value).Err()
	if err != nil {
		c.logger.Error("redis HSET failed", "key", key, "field", field, "error", err)
		return fmt.Errorf("failed to set hash %s field %s: %w", key, field, err)
	}
	c.logger.Debug("redis HSET", "key", key, "field", field)
	return nil
}

// HashDelete removes hash fields
func (c *Client) HashDelete(ctx context.Context, key string, fields ...string) error {
	err := c.redis.HDel(ctx, key, fields...).Err()
	if err != nil {
		c.logger.Error("redis HDEL failed", "key", key, "fields", fields, "error", err)
		return fmt.Errorf("failed to delete hash %s fields: %w", key, err)
	}
	c.logger.Debug("redis HDEL", "key", key, "fields", fields)
	return nil
}
