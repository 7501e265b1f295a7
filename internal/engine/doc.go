// Package engine wires the pipeline together: chunking, embedding with
// a two-tier cache, per-session vector indexes with atomic persistence,
// query caching, and retrieval.
//
// Sessions are isolated. Each one owns an index guarded by its own
// read-write lock, so queries against one session never block indexing
// in another. Embedding always happens before a session lock is taken.
package engine
