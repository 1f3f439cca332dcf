package cards

import (
	"sync"
	"time"
)

type cacheEntry struct {
	meta      *CardMetadata
	expiresAt time.Time
}

// metadataCache is an in-process TTL cache keyed by scryfall ID. Entries are
// evicted lazily on read.
type metadataCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

func newMetadataCache(ttl time.Duration) *metadataCache {
	return &metadataCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

func (c *metadataCache) get(id string) (*CardMetadata, bool) {
	c.mu.RLock()
	entry, ok := c.entries[id]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, id)
		c.mu.Unlock()
		return nil, false
	}
	return entry.meta, true
}

func (c *metadataCache) put(id string, meta *CardMetadata) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[id] = cacheEntry{meta: meta, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *metadataCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
