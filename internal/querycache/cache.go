package querycache

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"docchat/pkg/types"
)

const (
	// DefaultMaxEntries bounds the number of cached query results.
	DefaultMaxEntries = 100
	// DefaultTTL is how long a cached result stays valid.
	DefaultTTL = 10 * time.Minute
)

type entry struct {
	sessionID string
	result    *types.RetrievalResult
	storedAt  time.Time
}

// Cache memoizes retrieval results keyed by session, query text, and
// file filter. Entries expire lazily after a TTL and are evicted in
// least-recently-used order when the cache is full.
type Cache struct {
	mu  sync.Mutex
	lru *lru.Cache[string, *entry]
	ttl time.Duration
	now func() time.Time
}

// New creates a query cache. maxEntries <= 0 and ttl <= 0 fall back to
// the defaults.
func New(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	inner, err := lru.New[string, *entry](maxEntries)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &Cache{
		lru: inner,
		ttl: ttl,
		now: time.Now,
	}
}

// Key builds the canonical cache key for a lookup. The query is
// case-folded and trimmed, and file IDs are sorted, so equivalent
// lookups share an entry.
func Key(sessionID, query string, fileIDs []string) string {
	sorted := make([]string, len(fileIDs))
	copy(sorted, fileIDs)
	sort.Strings(sorted)

	payload := struct {
		Session string   `json:"session"`
		Query   string   `json:"query"`
		Files   []string `json:"files"`
	}{
		Session: sessionID,
		Query:   strings.ToLower(strings.TrimSpace(query)),
		Files:   sorted,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		// Marshaling a struct of strings cannot fail.
		panic(err)
	}
	return string(raw)
}

// Get returns the cached result for the key, or nil if absent or
// expired. Expired entries are removed on access. The returned result
// is a copy the caller may mutate freely.
func (c *Cache) Get(key string) *types.RetrievalResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(key)
	if !ok {
		return nil
	}
	if c.now().Sub(e.storedAt) > c.ttl {
		c.lru.Remove(key)
		return nil
	}
	return e.result.Clone()
}

// Set stores a result under the key, evicting the least recently used
// entry if the cache is full. The result is copied on the way in.
func (c *Cache) Set(key, sessionID string, result *types.RetrievalResult) {
	if result == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Add(key, &entry{
		sessionID: sessionID,
		result:    result.Clone(),
		storedAt:  c.now(),
	})
}

// InvalidateSession removes every entry belonging to the session and
// returns how many were dropped. Entries for other sessions are
// untouched.
func (c *Cache) InvalidateSession(sessionID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, key := range c.lru.Keys() {
		e, ok := c.lru.Peek(key)
		if ok && e.sessionID == sessionID {
			c.lru.Remove(key)
			removed++
		}
	}
	return removed
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Len reports the number of entries currently held, including ones
// that have expired but not yet been swept.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
