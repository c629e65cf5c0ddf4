package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultSize is the memory cache capacity used when none is configured.
const DefaultSize = 512

// MemoryCache implements Cache with a size bounded LRU whose entries expire
// after a TTL.
type MemoryCache struct {
	lru *expirable.LRU[string, string]
}

// NewMemoryCache creates a new in-memory cache. A zero ttl keeps entries until
// they are evicted.
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = DefaultSize
	}
	return &MemoryCache{lru: expirable.NewLRU[string, string](size, nil, ttl)}
}

// Get retrieves a value from cache
func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := c.lru.Get(key)
	return v, ok, nil
}

// Set stores a value in cache
func (c *MemoryCache) Set(_ context.Context, key, value string) error {
	c.lru.Add(key, value)
	return nil
}

// Delete removes a value from cache
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}
