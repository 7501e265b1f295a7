package types

import "errors"

// Engine failure taxonomy. Structural index errors always propagate to
// the caller; cache failures never surface through these, they degrade
// to recompute behavior instead.
var (
	// ErrShapeMismatch means the vector and record counts passed to an
	// index mutation disagree. Caller bug, rejected immediately.
	ErrShapeMismatch = errors.New("vectors/records count mismatch")

	// ErrDimensionMismatch means a vector's length disagrees with the
	// index or engine dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrCorruptIndex means persisted state is partial or internally
	// inconsistent. Surfaced to the operator, never auto-repaired.
	ErrCorruptIndex = errors.New("corrupt persisted index")

	// ErrNoIndex means no persisted index exists for a session. This is
	// a recoverable empty state, not a failure.
	ErrNoIndex = errors.New("no persisted index")

	// ErrPersistence means an atomic save failed and was rolled back.
	// The prior persisted state is unaffected; the operation may be
	// retried.
	ErrPersistence = errors.New("index persistence failed")

	// ErrRetrievalFailed means embedding or index loading failed during
	// a query. Safe to retry; distinct from an empty result set.
	ErrRetrievalFailed = errors.New("retrieval failed")
)

// Record validation errors.
var (
	ErrInvalidChunkID = errors.New("invalid chunk ID")
	ErrMissingSession = errors.New("session ID is required")
)
