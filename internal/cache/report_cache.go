// Package cache keeps recently fetched scan reports in memory.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// ReportCache holds scan report bodies for a short TTL. Keys are scoped to the
// caller's token so one user never sees another user's cached report.
type ReportCache struct {
	mu      sync.Mutex
	entries map[string]*entry
	maxSize int
	ttl     time.Duration
	now     func() time.Time

	hits   int
	misses int
}

type entry struct {
	body     []byte
	storedAt time.Time
}

// Stats is a point-in-time view of cache usage.
type Stats struct {
	Size    int `json:"size"`
	MaxSize int `json:"max_size"`
	Hits    int `json:"hits"`
	Misses  int `json:"misses"`
}

// New returns a cache of at most maxSize entries. A nil *ReportCache is valid
// and caches nothing, so callers can disable caching by passing ttl <= 0.
func New(maxSize int, ttl time.Duration) *ReportCache {
	if ttl <= 0 || maxSize <= 0 {
		return nil
	}
	return &ReportCache{
		entries: make(map[string]*entry, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Key derives the cache key for a token and scan id. The raw token is never
// kept in memory as a map key.
func Key(token, scanID string) string {
	sum := sha256.Sum256([]byte(token + "\x00" + scanID))
	return hex.EncodeToString(sum[:])
}

func (c *ReportCache) Get(key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if c.now().Sub(e.storedAt) > c.ttl {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}
	c.hits++
	return e.body, true
}

func (c *ReportCache) Set(key string, body []byte) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[key] = &entry{
		body:     append([]byte(nil), body...),
		storedAt: c.now(),
	}
}

// Purge drops every entry. Called when the backend's scan set changes.
func (c *ReportCache) Purge() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

func (c *ReportCache) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Size:    len(c.entries),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
	}
}

// evictOldest must be called with mu held.
func (c *ReportCache) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.storedAt.Before(oldest) {
			oldestKey = k
			oldest = e.storedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
