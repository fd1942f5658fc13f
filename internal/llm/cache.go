package llm

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// cacheEntry represents a cached set of assessments.
type cacheEntry struct {
	expiry      time.Time
	assessments []Assessment
}

// analysisCache provides thread-safe TTL caching for model assessments.
type analysisCache struct {
	entries map[string]cacheEntry
	stopCh  chan struct{}
	ttl     time.Duration
	mu      sync.RWMutex
	once    sync.Once
}

// newAnalysisCache creates a new cache with the specified TTL.
func newAnalysisCache(ttl time.Duration) *analysisCache {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}

	cache := &analysisCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

// analysisKey identifies a request by source and the sorted candidate ids.
func analysisKey(project string, sourceID int, candidateIDs []int) string {
	ids := append([]int(nil), candidateIDs...)
	sort.Ints(ids)

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.ToLower(project) + "#" + strconv.Itoa(sourceID) + ":" + strings.Join(parts, ",")
}

// get retrieves assessments if they exist and haven't expired.
func (c *analysisCache) get(key string) ([]Assessment, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}

	if time.Now().After(entry.expiry) {
		return nil, false
	}

	return append([]Assessment(nil), entry.assessments...), true
}

// set stores assessments in the cache.
func (c *analysisCache) set(key string, assessments []Assessment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		assessments: append([]Assessment(nil), assessments...),
		expiry:      time.Now().Add(c.ttl),
	}
}

// cleanup periodically removes expired entries.
func (c *analysisCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// clear removes all entries from the cache.
func (c *analysisCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// size returns the number of entries in the cache.
func (c *analysisCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (c *analysisCache) Close() {
	c.once.Do(func() { close(c.stopCh) })
}
