package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// InMemoryCache implements Cache on top of go-cache.
type InMemoryCache struct {
	cache *gocache.Cache
}

// NewInMemoryCache creates a cache that sweeps expired entries every hour.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		cache: gocache.New(ExpiryDefaultInMemory, time.Hour),
	}
}

func (c *InMemoryCache) Get(_ context.Context, key string) (interface{}, bool) {
	return c.cache.Get(key)
}

func (c *InMemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) {
	if expiration == 0 {
		expiration = gocache.DefaultExpiration
	}
	c.cache.Set(key, value, expiration)
}

func (c *InMemoryCache) Delete(_ context.Context, key string) {
	c.cache.Delete(key)
}

// Flush removes all items from the cache.
func (c *InMemoryCache) Flush() {
	c.cache.Flush()
}
