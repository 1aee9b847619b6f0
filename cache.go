package genfile

import (
	"strconv"
	"sync"
	"time"
)

// ============================================================================
// Tree Cache
// ============================================================================

// TreeCache is an in-memory, TTL-based cache of provider trees.
//
// Providers own one cache each and clear it from ClearTreeCache and after any
// write. Trees are cloned on the way in and out, so callers may decorate the
// returned tree without touching the cached copy.
//
// It is safe for concurrent use.
type TreeCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]*treeEntry
	hits    int64
	misses  int64
	now     func() time.Time
}

// treeEntry represents a single cache entry with expiration.
type treeEntry struct {
	tree       *GenericFileTree
	expiration time.Time
}

// CacheStatistics contains cache performance metrics.
type CacheStatistics struct {
	Hits    int64
	Misses  int64
	Size    int64
	HitRate float64
}

// NewTreeCache creates a tree cache. A ttl of 0 disables expiration.
func NewTreeCache(ttl time.Duration) *TreeCache {
	return &TreeCache{
		ttl:     ttl,
		entries: make(map[string]*treeEntry),
		now:     time.Now,
	}
}

// TreeCacheKey builds the cache key for a tree request.
func TreeCacheKey(scope string, opts GetTreeOptions) string {
	return scope + "|" + opts.BasePath.String() + "|" + strconv.FormatBool(opts.IncludeMetadata)
}

// Get returns a copy of the cached tree for key.
func (c *TreeCache) Get(key string) (*GenericFileTree, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if ok && c.ttl > 0 && c.now().After(entry.expiration) {
		delete(c.entries, key)
		ok = false
	}
	if !ok {
		c.misses++
		return nil, false
	}

	c.hits++
	return entry.tree.Clone(), true
}

// Set stores a copy of tree under key.
func (c *TreeCache) Set(key string, tree *GenericFileTree) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &treeEntry{tree: tree.Clone()}
	if c.ttl > 0 {
		entry.expiration = c.now().Add(c.ttl)
	}
	c.entries[key] = entry
}

// Clear removes all entries.
func (c *TreeCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*treeEntry)
}

// Stats returns cache statistics.
func (c *TreeCache) Stats() CacheStatistics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := c.hits + c.misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	return CacheStatistics{
		Hits:    c.hits,
		Misses:  c.misses,
		Size:    int64(len(c.entries)),
		HitRate: hitRate,
	}
}
