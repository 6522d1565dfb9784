package redisclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const pendingMarker = "pending"

// Client keeps order placement idempotency keys in redis.
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewClient connects to redis and verifies the connection.
func NewClient(addr, password string, db int, ttl time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return New(rdb, ttl), nil
}

// New wraps an existing redis client.
func New(rdb *redis.Client, ttl time.Duration) *Client {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Client{rdb: rdb, ttl: ttl}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func orderKey(key string) string {
	return fmt.Sprintf("idempotency:order:%s", key)
}

// ClaimOrderKey marks key as in flight. claimed is true when the caller now
// owns the key. Otherwise orderID carries the order an earlier request
// committed under the key, or 0 while that request is still running.
func (c *Client) ClaimOrderKey(ctx context.Context, key string) (claimed bool, orderID int64, err error) {
	ok, err := c.rdb.SetNX(ctx, orderKey(key), pendingMarker, c.ttl).Result()
	if err != nil {
		return false, 0, fmt.Errorf("claim idempotency key: %w", err)
	}
	if ok {
		return true, 0, nil
	}

	val, err := c.rdb.Get(ctx, orderKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; the earlier request is gone
		return c.ClaimOrderKey(ctx, key)
	}
	if err != nil {
		return false, 0, fmt.Errorf("read idempotency key: %w", err)
	}
	if val == pendingMarker {
		return false, 0, nil
	}

	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return false, 0, fmt.Errorf("corrupt idempotency key %q: %w", key, err)
	}
	return false, id, nil
}

// CompleteOrderKey records the committed order under key.
func (c *Client) CompleteOrderKey(ctx context.Context, key string, orderID int64) error {
	return c.rdb.Set(ctx, orderKey(key), strconv.FormatInt(orderID, 10), c.ttl).Err()
}

// ReleaseOrderKey frees a key whose placement failed so the client may retry.
func (c *Client) ReleaseOrderKey(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, orderKey(key)).Err()
}
