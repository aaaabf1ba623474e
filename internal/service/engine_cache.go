package service

import (
	"sync"

	"github.com/alanyoungcy/dealbroker/internal/auction"
)

type cachedEngine struct {
	version int64
	engine  *auction.Engine
}

// engineCache keeps the last evaluated engine per auction so a bid against an
// unchanged auction version skips replaying the bid log. When full, an
// arbitrary entry is evicted.
type engineCache struct {
	mu      sync.Mutex
	size    int
	entries map[string]cachedEngine
}

func newEngineCache(size int) *engineCache {
	return &engineCache{size: size, entries: make(map[string]cachedEngine)}
}

// get returns a private copy of the cached engine when its version matches.
func (c *engineCache) get(id string, version int64) (*auction.Engine, bool) {
	if c.size <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ce, ok := c.entries[id]
	if !ok || ce.version != version {
		return nil, false
	}
	return ce.engine.Clone(), true
}

func (c *engineCache) put(id string, version int64, e *auction.Engine) {
	if c.size <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[id]; !ok && len(c.entries) >= c.size {
		for k := range c.entries {
			delete(c.entries, k)
			break
		}
	}
	c.entries[id] = cachedEngine{version: version, engine: e}
}

// advance re-keys an entry after a status change that did not touch the bid
// log.
func (c *engineCache) advance(id string, from, to int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ce, ok := c.entries[id]; ok && ce.version == from {
		ce.version = to
		c.entries[id] = ce
	}
}

func (c *engineCache) drop(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}
