// Package embedcache caches embeddings by content address (SHA-256 of
// the exact input text) so identical chunks are never re-embedded.
//
// The cache has two tiers: a bounded in-memory LRU and an optional
// durable store. Durable hits are promoted into memory. Entries never
// expire; content addressing makes them immutable once written, and
// they are removed only by explicit clears.
//
// The cache is fire-and-forget: all storage failures are logged and
// absorbed, degrading to recompute behavior rather than failing the
// caller.
package embedcache
