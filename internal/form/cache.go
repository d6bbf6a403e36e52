package form

import (
	"maps"
	"sort"
	"sync"
)

// EntryState is the load state of a node's cache entry.
type EntryState int

// Cache entry states.
const (
	NotLoaded EntryState = iota // never opened in this session
	Loaded                      // saved with the schema it was edited against
	Restored                    // restored from a workflow without a schema
)

func (s EntryState) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Restored:
		return "restored"
	default:
		return "not_loaded"
	}
}

// CacheEntry holds the saved values of one node and the schema they were
// edited against. Schema is nil for entries restored from a workflow.
type CacheEntry struct {
	Values map[string]any
	Schema *Schema
}

// Cache maps node ids to their saved configuration for one editing session.
// Concurrent saves for the same id are last-write-wins.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]CacheEntry
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]CacheEntry)}
}

// Get returns a copy of the entry for id.
func (c *Cache) Get(id string) (CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	if !ok {
		return CacheEntry{}, false
	}
	return CacheEntry{Values: maps.Clone(e.Values), Schema: e.Schema}, true
}

// State reports whether id has never been loaded, was saved with a schema, or
// was restored without one.
func (c *Cache) State(id string) EntryState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	switch {
	case !ok:
		return NotLoaded
	case e.Schema == nil:
		return Restored
	default:
		return Loaded
	}
}

// Put overwrites the entry for id.
func (c *Cache) Put(id string, values map[string]any, schema *Schema) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = CacheEntry{Values: maps.Clone(values), Schema: schema}
}

// AttachSchema records the schema fetched for id and keeps its saved values.
// An id without an entry gets one with no values.
func (c *Cache) AttachSchema(id string, schema *Schema) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[id]
	e.Schema = schema
	c.entries[id] = e
}

// Delete drops the entry for id.
func (c *Cache) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Restore replaces every entry with the given saved values, each marked as
// having no schema.
func (c *Cache) Restore(configs map[string]map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]CacheEntry, len(configs))
	for id, values := range configs {
		c.entries[id] = CacheEntry{Values: maps.Clone(values)}
	}
}

// Saved returns the values of every node with at least one saved value.
func (c *Cache) Saved() map[string]map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]map[string]any)
	for id, e := range c.entries {
		if len(e.Values) > 0 {
			out[id] = maps.Clone(e.Values)
		}
	}
	return out
}

// IDs returns the cached node ids in sorted order.
func (c *Cache) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
