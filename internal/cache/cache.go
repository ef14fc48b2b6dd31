// Package cache provides the TTL cache shared by request handlers. A Cache is built
// once at start-up and injected; there is no package-level instance.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultTTL is used when New is given a non-positive ttl.
	DefaultTTL = 60 * time.Second
	// DefaultSize is used when New is given a non-positive size.
	DefaultSize = 1024
)

// Cache is a size-bounded map whose entries expire after a fixed TTL.
// Concurrent writers of the same key race; the last write wins.
type Cache[V any] struct {
	lru *expirable.LRU[string, V]
}

// New returns a cache holding at most size entries for ttl each.
func New[V any](size int, ttl time.Duration) *Cache[V] {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache[V]{lru: expirable.NewLRU[string, V](size, nil, ttl)}
}

// Get returns a live entry.
func (c *Cache[V]) Get(key string) (V, bool) {
	return c.lru.Get(key)
}

// Set stores value under key, replacing any previous entry.
func (c *Cache[V]) Set(key string, value V) {
	c.lru.Add(key, value)
}

// Delete removes key.
func (c *Cache[V]) Delete(key string) {
	c.lru.Remove(key)
}

// Len reports the number of entries, including ones that expired but were not purged yet.
func (c *Cache[V]) Len() int {
	return c.lru.Len()
}

// GetOrLoad returns the cached value for key or calls load and caches a successful result.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key string, load func(ctx context.Context) (V, error)) (V, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}
	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	c.Set(key, value)
	return value, nil
}

// TodayKey is the cache key of a user's today response.
func TodayKey(userID string) string { return "today:" + userID }

// DashboardKey is the cache key of a user's dashboard.
func DashboardKey(userID string) string { return "dashboard:" + userID }
