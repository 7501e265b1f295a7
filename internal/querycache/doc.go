// Package querycache provides an in-memory LRU cache for retrieval
// results with per-entry TTL expiry and whole-session invalidation.
package querycache
