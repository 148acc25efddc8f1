package viewer

import (
	"sync"
	"time"
)

const chartCacheTTL = 10 * time.Minute

type chartCacheEntry struct {
	createdAt time.Time
	image     []byte
}

// chartCache holds rendered PNGs keyed by chart, artifact load and range.
type chartCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]chartCacheEntry
}

func newChartCache(ttl time.Duration) *chartCache {
	return &chartCache{ttl: ttl, entries: map[string]chartCacheEntry{}}
}

func (c *chartCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !time.Now().Before(entry.createdAt.Add(c.ttl)) {
		delete(c.entries, key)
		return nil, false
	}
	img := make([]byte, len(entry.image))
	copy(img, entry.image)
	return img, true
}

func (c *chartCache) set(key string, img []byte) {
	c.mu.Lock()
	c.entries[key] = chartCacheEntry{createdAt: time.Now(), image: img}
	c.mu.Unlock()
}

func (c *chartCache) purge() {
	c.mu.Lock()
	c.entries = map[string]chartCacheEntry{}
	c.mu.Unlock()
}
