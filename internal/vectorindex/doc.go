// Package vectorindex implements an exact inner-product similarity
// index with parallel metadata records, one index per session.
//
// Vectors are L2-normalized on insertion, so the inner product of any
// stored vector with a normalized query equals their cosine
// similarity. Search is exhaustive (no approximation) and returns hits
// in descending similarity, breaking ties by insertion order.
//
// # Persistence
//
// An index persists as two co-located files in a session directory:
// vectors.bin (binary, little-endian float32 with a magic/dimension/
// count header) and records.json. Save writes both to temporaries and
// renames them into place only after both writes succeed; a failed
// save rolls back the temporaries and leaves the previous state
// untouched. Load treats a missing pair as the recoverable no-index
// state and a half-present pair as corruption.
//
// The index itself is not goroutine-safe; callers serialize access
// with a per-session lock.
package vectorindex
