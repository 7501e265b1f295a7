package types

import (
	"time"
	"unicode/utf8"
)

// SnippetLimit caps the content carried by an IndexRecord so the
// persisted record list stays bounded regardless of chunk size.
const SnippetLimit = 1000

// Chunk is a bounded span of a document's text, the unit of retrieval.
// Chunks are immutable once produced; Sequence preserves document order
// so adjacent chunks can share lexical overlap.
type Chunk struct {
	Content  string
	Sequence int
	Length   int
}

// IndexRecord describes one vector in a session index. The record at
// position i in the record list always describes the vector at position
// i in the index.
type IndexRecord struct {
	ChunkID   string    `json:"chunk_id"`
	SessionID string    `json:"session_id"`
	FileID    string    `json:"file_id"`
	Filename  string    `json:"filename"`
	Content   string    `json:"content"`
	Sequence  int       `json:"sequence"`
	Page      *int      `json:"page,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks structural requirements on a record before it enters
// an index.
func (r *IndexRecord) Validate() error {
	if r.ChunkID == "" {
		return ErrInvalidChunkID
	}
	if r.SessionID == "" {
		return ErrMissingSession
	}
	return nil
}

// Snippet truncates s to SnippetLimit bytes, backing off to a rune
// boundary so the cut never splits a UTF-8 sequence.
func Snippet(s string) string {
	if len(s) <= SnippetLimit {
		return s
	}
	cut := SnippetLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
