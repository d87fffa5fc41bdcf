package fsapi

import (
	"sync"

	"github.com/strefethen/fsapi-hub-go/internal/fsapi/wire"
)

// sessionCache holds data that only changes with firmware or device setup:
// label lists for enumerated nodes and the volume step count. Entries belong
// to one session generation and are dropped when the session resets.
type sessionCache struct {
	mu    sync.RWMutex
	gen   uint64
	lists map[string][]wire.ListItem
	ints  map[string]int64
}

func newSessionCache() *sessionCache {
	return &sessionCache{
		lists: make(map[string][]wire.ListItem),
		ints:  make(map[string]int64),
	}
}

func (c *sessionCache) list(gen uint64, node string) ([]wire.ListItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.gen != gen {
		return nil, false
	}
	items, ok := c.lists[node]
	return items, ok
}

func (c *sessionCache) storeList(gen uint64, node string, items []wire.ListItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.advance(gen) {
		return
	}
	c.lists[node] = items
}

func (c *sessionCache) int(gen uint64, node string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.gen != gen {
		return 0, false
	}
	v, ok := c.ints[node]
	return v, ok
}

func (c *sessionCache) storeInt(gen uint64, node string, v int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.advance(gen) {
		return
	}
	c.ints[node] = v
}

// advance moves the cache to gen, discarding older entries. It reports false
// for results fetched under an older session. Callers hold mu.
func (c *sessionCache) advance(gen uint64) bool {
	if gen < c.gen {
		return false
	}
	if gen > c.gen {
		c.gen = gen
		c.lists = make(map[string][]wire.ListItem)
		c.ints = make(map[string]int64)
	}
	return true
}

// Invalidate drops every entry.
func (c *sessionCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lists = make(map[string][]wire.ListItem)
	c.ints = make(map[string]int64)
}
