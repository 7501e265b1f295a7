package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// DefaultMaxEntries bounds the in-memory tier.
	DefaultMaxEntries = 10000
)

// DurableStore is the disk tier of the cache, keyed by content hash.
// Entries are immutable once written, so concurrent writes of the same
// key are idempotent.
type DurableStore interface {
	GetEmbedding(ctx context.Context, hash string) ([]float32, bool, error)
	PutEmbedding(ctx context.Context, hash string, vector []float32) error
	ClearEmbeddings(ctx context.Context) (int, error)
}

// Cache is a content-addressed embedding cache with an in-memory LRU
// tier and an optional durable tier. Storage failures are absorbed:
// retrieval correctness never depends on a cache write succeeding.
type Cache struct {
	mem   *lru.Cache[string, []float32]
	store DurableStore
	logf  func(format string, args ...interface{})
}

// New creates a cache. store may be nil for a memory-only cache.
func New(maxEntries int, store DurableStore) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	mem, err := lru.New[string, []float32](maxEntries)
	if err != nil {
		// Unreachable with a positive size.
		panic(err)
	}
	return &Cache{
		mem:   mem,
		store: store,
		logf:  log.Printf,
	}
}

// Hash computes the deterministic content address for text.
func Hash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// Get returns the cached embedding for text, checking memory first and
// promoting durable hits into memory. The second return is false on a
// total miss.
func (c *Cache) Get(ctx context.Context, text string) ([]float32, bool) {
	hash := Hash(text)

	if vec, ok := c.mem.Get(hash); ok {
		return copyVector(vec), true
	}

	if c.store == nil {
		return nil, false
	}

	vec, ok, err := c.store.GetEmbedding(ctx, hash)
	if err != nil {
		c.logf("embedcache: durable read for %s failed: %v", hash[:8], err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	c.mem.Add(hash, vec)
	return copyVector(vec), true
}

// Set stores an embedding in both tiers. It never fails the caller: a
// durable-tier error is logged and reported as false.
func (c *Cache) Set(ctx context.Context, text string, vector []float32) bool {
	hash := Hash(text)
	c.mem.Add(hash, copyVector(vector))

	if c.store == nil {
		return true
	}

	if err := c.store.PutEmbedding(ctx, hash, vector); err != nil {
		c.logf("embedcache: durable write for %s failed: %v", hash[:8], err)
		return false
	}
	return true
}

// GetBatch looks up each text; the result is index-aligned with texts
// and nil at miss positions.
func (c *Cache) GetBatch(ctx context.Context, texts []string) [][]float32 {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if vec, ok := c.Get(ctx, text); ok {
			vectors[i] = vec
		}
	}
	return vectors
}

// SetBatch stores each text/vector pair, returning the number stored in
// both tiers. A failure for one item never aborts the rest.
func (c *Cache) SetBatch(ctx context.Context, texts []string, vectors [][]float32) int {
	n := len(texts)
	if len(vectors) < n {
		n = len(vectors)
	}

	count := 0
	for i := 0; i < n; i++ {
		if c.Set(ctx, texts[i], vectors[i]) {
			count++
		}
	}
	return count
}

// ClearMemory drops the in-memory tier.
func (c *Cache) ClearMemory() {
	c.mem.Purge()
}

// ClearDisk removes all durable entries and returns the count removed.
func (c *Cache) ClearDisk(ctx context.Context) (int, error) {
	if c.store == nil {
		return 0, nil
	}
	return c.store.ClearEmbeddings(ctx)
}

// MemorySize returns the number of entries in the memory tier.
func (c *Cache) MemorySize() int {
	return c.mem.Len()
}

// copyVector prevents callers from mutating cached slices.
func copyVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
