// Package redis is a cache.Cache backed by Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/papercomputeco/llmgateway/pkg/cache"
)

// DefaultPrefix namespaces every key written by the gateway.
const DefaultPrefix = "llmgateway:"

// Cache stores entries as JSON values with a TTL.
type Cache struct {
	client *redis.Client
	prefix string
}

// New connects to the Redis server at addr and verifies it answers.
func New(ctx context.Context, addr string) (*Cache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", addr, err)
	}
	return NewWithClient(client), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client) *Cache {
	return &Cache{client: client, prefix: DefaultPrefix}
}

// Get returns the entry for key or cache.ErrMiss.
func (c *Cache) Get(ctx context.Context, key string) (*cache.Entry, error) {
	var e cache.Entry
	err := c.client.Get(ctx, c.prefix+key).Scan(&e)
	if errors.Is(err, redis.Nil) {
		return nil, cache.ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return &e, nil
}

// Set stores e under key for ttl. A zero ttl keeps the entry until evicted.
func (c *Cache) Set(ctx context.Context, key string, e *cache.Entry, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, e, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close closes the client.
func (c *Cache) Close() error {
	return c.client.Close()
}
