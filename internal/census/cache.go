package census

import (
	"sync"

	"funccensus/internal/models"
	"funccensus/internal/utils"
)

// Cache remembers the outcome for each file keyed by absolute path and the
// SHA-256 of its content, so repeated scans skip parsing unchanged files.
// It lives in memory only and is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	hits    int
	misses  int
}

type cacheEntry struct {
	hash    string
	outcome models.Outcome
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Entries int
	Hits    int
	Misses  int
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Lookup returns the stored outcome when code hashes to the value recorded
// for path.
func (c *Cache) Lookup(path string, code []byte) (models.Outcome, bool) {
	hash := utils.HashBytes(code)

	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[path]
	if !ok || entry.hash != hash {
		c.misses++
		return models.Outcome{}, false
	}
	c.hits++
	return entry.outcome, true
}

// Store records the outcome computed for code at path.
func (c *Cache) Store(path string, code []byte, outcome models.Outcome) {
	hash := utils.HashBytes(code)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = cacheEntry{hash: hash, outcome: outcome}
}

// Prune drops entries below root that are not in seen, so files deleted
// between scans do not linger.
func (c *Cache) Prune(root string, seen map[string]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for path := range c.entries {
		if utils.IsWithin(root, path) && !seen[path] {
			delete(c.entries, path)
		}
	}
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Entries: len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
	}
}
