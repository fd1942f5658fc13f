package discovery

import (
	"slices"
	"sync"

	"github.com/Veraticus/workitem-scout/internal/model"
)

// DefaultCacheSize is the number of searches kept per session.
const DefaultCacheSize = 50

// CacheKey identifies a search by project and source item.
type CacheKey struct {
	Project string
	ID      int
}

// CacheEntry is a stored search. Results are reclassified from it on every hit,
// so only raw items and match context are kept.
type CacheEntry struct {
	Strategy model.Strategy
	Source   model.WorkItemRef
	Items    []model.WorkItemRef
	Keywords []string
	Links    []model.Link
	Teams    []Target
	Queries  int
}

func (e CacheEntry) clone() CacheEntry {
	e.Items = slices.Clone(e.Items)
	e.Keywords = slices.Clone(e.Keywords)
	e.Links = slices.Clone(e.Links)
	e.Teams = slices.Clone(e.Teams)
	return e
}

// ResultCache is a fixed-capacity FIFO cache of search results. The oldest
// inserted entry is evicted first regardless of how recently it was read.
// Entries never expire, so results may be stale within a long session.
type ResultCache struct {
	entries  map[CacheKey]CacheEntry
	order    []CacheKey
	capacity int
	mu       sync.Mutex
}

// NewResultCache creates a cache holding at most capacity entries.
func NewResultCache(capacity int) *ResultCache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &ResultCache{
		entries:  make(map[CacheKey]CacheEntry, capacity),
		order:    make([]CacheKey, 0, capacity),
		capacity: capacity,
	}
}

// Get returns a copy of the entry for (project, id).
func (c *ResultCache) Get(project string, id int) (CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[CacheKey{Project: project, ID: id}]
	if !ok {
		return CacheEntry{}, false
	}
	return entry.clone(), true
}

// Put stores an entry, replacing any existing entry for the key wholesale.
// A replaced entry counts as a new insertion for eviction order.
func (c *ResultCache) Put(project string, id int, entry CacheEntry) {
	key := CacheKey{Project: project, ID: id}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.order = slices.DeleteFunc(c.order, func(k CacheKey) bool { return k == key })
	}

	for len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = entry.clone()
	c.order = append(c.order, key)
}

// Len returns the number of cached entries.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear removes every entry.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[CacheKey]CacheEntry, c.capacity)
	c.order = make([]CacheKey, 0, c.capacity)
}
