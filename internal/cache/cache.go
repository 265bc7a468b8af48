// Package cache holds the outcome of the most recent collection cycle for
// the dashboard.
package cache

import (
	"maps"
	"sync"
	"time"
)

// Cache is a thread-safe record of the last collection cycle.
type Cache struct {
	mu        sync.RWMutex
	statuses  map[string]string
	lastCycle time.Time
}

// Snapshot is a read-only copy of the cache state.
type Snapshot struct {
	Statuses  map[string]string
	LastCycle time.Time
}

// New returns an initialized Cache.
func New() *Cache {
	return &Cache{statuses: make(map[string]string)}
}

// SetCycle replaces the per-server statuses with the given cycle's results.
func (c *Cache) SetCycle(results map[string]string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses = make(map[string]string, len(results))
	maps.Copy(c.statuses, results)
	c.lastCycle = at
}

// Snapshot returns a copy of the cache contents.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := Snapshot{
		Statuses:  make(map[string]string, len(c.statuses)),
		LastCycle: c.lastCycle,
	}
	maps.Copy(snap.Statuses, c.statuses)
	return snap
}
