package driver

import (
	"sync"

	"tplcheck/internal/project"
)

// MemoryCache is the per-process Cache used by watch mode, where the same
// bundles are rechecked many times in one run.
type MemoryCache struct {
	mu    sync.RWMutex
	byKey map[project.Digest]*CachedBundle
}

// NewMemoryCache creates a MemoryCache with the given capacity hint.
func NewMemoryCache(capHint int) *MemoryCache {
	return &MemoryCache{byKey: make(map[project.Digest]*CachedBundle, capHint)}
}

func (c *MemoryCache) Get(key project.Digest, out *CachedBundle) (bool, error) {
	c.mu.RLock()
	rec, ok := c.byKey[key]
	c.mu.RUnlock()
	if !ok {
		return false, nil
	}
	*out = *rec
	return true, nil
}

func (c *MemoryCache) Put(key project.Digest, payload *CachedBundle) error {
	c.mu.Lock()
	c.byKey[key] = payload
	c.mu.Unlock()
	return nil
}

// Len returns the number of cached bundles.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byKey)
}
