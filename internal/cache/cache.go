// Package cache holds resolved secret values for the lifetime of one
// resolver instance, avoiding repeated backend round-trips within a single
// command invocation.
package cache

import (
	"sync"
	"time"
)

// Entry is one cached resolution. Never compare or log Value.
type Entry struct {
	Value      string
	Backend    string
	InsertedAt time.Time
}

// Cache is a name-keyed secret store with explicit invalidation only: no
// TTL, no background sweeper. Callers decide its lifetime, typically one
// command invocation. All mutations are serialized internally.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]Entry)}
}

// Get returns the entry for name, if present.
func (c *Cache) Get(name string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[name]
	return e, ok
}

// Put stores a resolved value for name.
func (c *Cache) Put(name, value, backendName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = Entry{Value: value, Backend: backendName, InsertedAt: time.Now()}
}

// Invalidate removes name from the cache.
func (c *Cache) Invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, name)
}

// Reset drops every entry. Used between tests and on explicit teardown.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
