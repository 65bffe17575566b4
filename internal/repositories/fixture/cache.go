package fixture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"field-equipment/internal/repositories"
)

type cacheItem struct {
	value     string
	expiresAt time.Time
}

// memoryCache повторяет поведение Redis для Set/Get/Del, включая TTL.
type memoryCache struct {
	mu    sync.Mutex
	items map[string]cacheItem
	now   func() time.Time
}

func newMemoryCache(now func() time.Time) *memoryCache {
	return &memoryCache{items: make(map[string]cacheItem), now: now}
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		s = fmt.Sprint(v)
	}

	item := cacheItem{value: s}
	if expiration > 0 {
		item.expiresAt = c.now().Add(expiration)
	}

	c.mu.Lock()
	c.items[key] = item
	c.mu.Unlock()
	return nil
}

func (c *memoryCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		return "", repositories.ErrCacheMiss
	}
	if !item.expiresAt.IsZero() && !c.now().Before(item.expiresAt) {
		delete(c.items, key)
		return "", repositories.ErrCacheMiss
	}
	return item.value, nil
}

func (c *memoryCache) Del(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.items, k)
	}
	c.mu.Unlock()
	return nil
}
