package types

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexRecordValidate(t *testing.T) {
	rec := IndexRecord{ChunkID: "f1:0", SessionID: "s1"}
	require.NoError(t, rec.Validate())

	rec.ChunkID = ""
	assert.ErrorIs(t, rec.Validate(), ErrInvalidChunkID)

	rec.ChunkID = "f1:0"
	rec.SessionID = ""
	assert.ErrorIs(t, rec.Validate(), ErrMissingSession)
}

func TestSnippet_ShortStringUnchanged(t *testing.T) {
	assert.Equal(t, "hello", Snippet("hello"))
	assert.Equal(t, "", Snippet(""))
}

func TestSnippet_TruncatesAtLimit(t *testing.T) {
	long := strings.Repeat("a", SnippetLimit+50)
	got := Snippet(long)
	assert.Len(t, got, SnippetLimit)
}

func TestSnippet_NeverSplitsRune(t *testing.T) {
	// Multi-byte runes positioned so a byte-offset cut would land
	// mid-sequence.
	long := strings.Repeat("é", SnippetLimit)
	got := Snippet(long)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), SnippetLimit)
}

func TestRetrievalResultClone(t *testing.T) {
	orig := &RetrievalResult{
		Query: "what is x",
		Chunks: []RetrievedChunk{
			{ChunkID: "f1:0", Filename: "a.txt", Similarity: 0.9},
			{ChunkID: "f1:1", Filename: "a.txt", Similarity: 0.7},
		},
		Reranked: true,
	}

	clone := orig.Clone()
	require.Equal(t, orig, clone)

	clone.Chunks[0].Similarity = 0.1
	assert.Equal(t, float32(0.9), orig.Chunks[0].Similarity)
}

func TestRetrievalResultClone_Nil(t *testing.T) {
	var r *RetrievalResult
	assert.Nil(t, r.Clone())
}
