// Package cache provides an in-memory LRU cache for chunk payloads, keyed by
// checksum. It sits in front of a disk store so that a chunk referenced by
// several assets is read from disk only once.
package cache

import (
	"sync"

	"github.com/icefetch/icefetch/internal/chunk"
	"github.com/icefetch/icefetch/internal/debug"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// Crude estimate of the per-entry overhead: map entry, list element, key and
// slice header.
const overhead = 64

// Cache is a chunk payload cache with a capacity given in bytes. It is safe
// for concurrent access.
type Cache struct {
	mu sync.Mutex
	c  *simplelru.LRU[string, []byte]

	free, size int // current and max capacity, in bytes
}

// New constructs a cache that holds at most size bytes of payload.
func New(size int) *Cache {
	c := &Cache{
		free: size,
		size: size,
	}

	// NewLRU wants us to specify some max. number of entries, else it errors.
	// The actual maximum will be smaller than size/overhead, because we
	// evict entries (RemoveOldest in Add) to maintain our size bound.
	maxEntries := size / overhead
	lr, err := simplelru.NewLRU(maxEntries, func(key string, blob []byte) {
		debug.Log("evict %v, %d bytes", chunk.FormatChecksum([]byte(key)), cap(blob))
		c.free += cap(blob) + overhead
	})
	if err != nil {
		panic(err) // Can only be maxEntries <= 0.
	}
	c.c = lr

	return c
}

// Add stores blob under key. Payloads larger than the cache's capacity are
// silently dropped.
func (c *Cache) Add(key string, blob []byte) {
	size := cap(blob) + overhead
	if size > c.size {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.c.Contains(key) { // fast path
		return
	}

	// This loop takes at most min(maxEntries, size/overhead) iterations.
	for size > c.free {
		c.c.RemoveOldest()
	}

	c.c.Add(key, blob)
	c.free -= size
}

// Get returns the payload stored under key, if any. The returned slice is
// shared, callers must not modify it.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	blob, ok := c.c.Get(key)
	c.mu.Unlock()

	return blob, ok
}
