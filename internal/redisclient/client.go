package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// AcquireCallbackGate takes the per-reference gate that serializes callback
// processing for one order across instances. Returns false if another
// delivery for the same reference is in flight. The TTL bounds the hold in
// case a holder dies mid-request.
func (c *Client) AcquireCallbackGate(ctx context.Context, merchantRef string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("callback-gate:%s", merchantRef), "1", ttl).Result()
}

// ReleaseCallbackGate releases the per-reference gate
func (c *Client) ReleaseCallbackGate(ctx context.Context, merchantRef string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("callback-gate:%s", merchantRef)).Err()
}

// CacheOrderStatus caches the last known payment status for a reference so
// the storefront status page can poll without hitting the database.
func (c *Client) CacheOrderStatus(ctx context.Context, merchantRef, status string, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("order-status:%s", merchantRef), status, ttl).Err()
}

// GetCachedOrderStatus returns the cached payment status, or "" on miss.
func (c *Client) GetCachedOrderStatus(ctx context.Context, merchantRef string) (string, error) {
	val, err := c.rdb.Get(ctx, fmt.Sprintf("order-status:%s", merchantRef)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}
