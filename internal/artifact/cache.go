package artifact

import (
	"sync"
	"time"

	"portfoliorisk/internal/infrastructure"
)

// Artifact cache entry
type cacheEntry struct {
	createdAt time.Time
	usedAt    time.Time
	workbook  *Workbook
}

// Cache maps artifact paths to parsed workbooks. It holds at most max
// entries, evicting the least recently used one, and optionally expires
// entries after ttl. Failed loads are not cached.
type Cache struct {
	mu      sync.Mutex
	max     int
	ttl     time.Duration
	entries map[string]*cacheEntry
	load    func(string) (*Workbook, error)
	now     func() time.Time
}

// NewCache returns a cache holding up to max workbooks. ttl <= 0 disables
// time-based expiry.
func NewCache(max int, ttl time.Duration) *Cache {
	if max < 1 {
		max = 1
	}
	return &Cache{
		max:     max,
		ttl:     ttl,
		entries: map[string]*cacheEntry{},
		load:    Load,
		now:     time.Now,
	}
}

// Get returns the workbook for path, loading it on a miss.
func (c *Cache) Get(path string) (*Workbook, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if entry, ok := c.entries[path]; ok {
		if c.ttl <= 0 || now.Before(entry.createdAt.Add(c.ttl)) {
			entry.usedAt = now
			infrastructure.ArtifactCache.WithLabelValues("hit").Inc()
			return entry.workbook, nil
		}
		delete(c.entries, path)
	}
	infrastructure.ArtifactCache.WithLabelValues("miss").Inc()

	wb, err := c.load(path)
	if err != nil {
		return nil, err
	}
	if len(c.entries) >= c.max {
		c.evictOldest()
	}
	c.entries[path] = &cacheEntry{createdAt: now, usedAt: now, workbook: wb}
	return wb, nil
}

// Invalidate drops the entry for path so the next Get reloads from disk.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.mu.Lock()
	c.entries = map[string]*cacheEntry{}
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) evictOldest() {
	var oldest string
	var oldestAt time.Time
	for path, entry := range c.entries {
		if oldest == "" || entry.usedAt.Before(oldestAt) {
			oldest, oldestAt = path, entry.usedAt
		}
	}
	delete(c.entries, oldest)
}
