package store

import (
	"context"
	"sync"
)

// MemCache is an in-process, lock-guarded implementation of
// capabilities.CacheStore with no durability guarantee, suitable for hot
// lookups such as reputation snapshots that can be recomputed on a miss.
type MemCache struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemCache constructs an empty in-memory cache.
func NewMemCache() *MemCache {
	return &MemCache{data: make(map[string][]byte)}
}

func (c *MemCache) Get(ctx context.Context, key []byte) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data[string(key)]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (c *MemCache) Put(ctx context.Context, key, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	c.data[string(key)] = cp
	return nil
}

func (c *MemCache) Delete(ctx context.Context, key []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, string(key))
	return nil
}
