package quark

import (
	"sync"

	"github.com/kinokosu3/quarkdav/backend"
)

// pathCache is the concurrent path -> ResourceDescriptor mapping that
// stands in for a remote name resolver: the Quark API is fid-addressed, so
// every operation that isn't a listing needs to go through this cache
// first (spec.md §4.3). Writes always replace the whole descriptor, so a
// single RWMutex guarding a plain map is the right-weight primitive — no
// per-entry locking is needed.
type pathCache struct {
	mu      sync.RWMutex
	entries map[string]backend.ResourceDescriptor
}

func newPathCache() *pathCache {
	return &pathCache{entries: make(map[string]backend.ResourceDescriptor)}
}

func (c *pathCache) get(path string) (backend.ResourceDescriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.entries[path]
	return d, ok
}

func (c *pathCache) insert(path string, d backend.ResourceDescriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = d
}

// len reports the number of cached entries; used by tests to check
// invariant 2 of spec.md §8.
func (c *pathCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
