package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultSize(t *testing.T) {
	c := New(0)
	assert.Equal(t, DefaultChunkSize, c.chunkSize)

	c = New(-5)
	assert.Equal(t, DefaultChunkSize, c.chunkSize)
}

func TestChunk_EmptyInput(t *testing.T) {
	c := New(512)

	assert.Empty(t, c.Chunk(""))
	assert.Empty(t, c.Chunk("   \n\n  \t \n\n "))
}

func TestChunk_SingleParagraph(t *testing.T) {
	c := New(512)

	chunks := c.Chunk("The quick brown fox jumps over the lazy dog.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "The quick brown fox jumps over the lazy dog.", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Sequence)
	assert.Equal(t, len(chunks[0].Content), chunks[0].Length)
}

func TestChunk_DropsShortParagraphs(t *testing.T) {
	c := New(512)

	chunks := c.Chunk("ok\n\nThis paragraph is long enough to keep around.\n\nhi")
	require.Len(t, chunks, 1)
	assert.Equal(t, "This paragraph is long enough to keep around.", chunks[0].Content)
}

func TestChunk_SplitsAtChunkSize(t *testing.T) {
	para1 := strings.Repeat("alpha ", 20) + "end one"   // ~127 chars
	para2 := strings.Repeat("bravo ", 20) + "end two"   // ~127 chars
	para3 := strings.Repeat("charlie ", 20) + "end three"

	c := New(150)
	chunks := c.Chunk(para1 + "\n\n" + para2 + "\n\n" + para3)
	require.Len(t, chunks, 3)

	assert.Equal(t, 0, chunks[0].Sequence)
	assert.Equal(t, 1, chunks[1].Sequence)
	assert.Equal(t, 2, chunks[2].Sequence)
}

func TestChunk_AccumulatesUntilLimit(t *testing.T) {
	c := New(4096)

	chunks := c.Chunk("First paragraph with content.\n\nSecond paragraph with content.")
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Content, "First paragraph")
	assert.Contains(t, chunks[0].Content, "Second paragraph")
}

func TestChunk_OverlapPrefix(t *testing.T) {
	para1 := strings.Repeat("filler ", 15) + "one two three four five"
	para2 := "Second chunk begins with its own paragraph text here."

	c := New(100)
	chunks := c.Chunk(para1 + "\n\n" + para2)
	require.Len(t, chunks, 2)

	// Chunk 1 starts with the last 5 tokens of chunk 0.
	assert.True(t, strings.HasPrefix(chunks[1].Content, "one two three four five "),
		"expected overlap prefix, got: %q", chunks[1].Content[:40])
	assert.Contains(t, chunks[1].Content, para2)
}

func TestChunk_Restartable(t *testing.T) {
	c := New(200)
	text := strings.Repeat("some paragraph text here ", 10) + "\n\n" +
		strings.Repeat("more paragraph text here ", 10)

	first := c.Chunk(text)
	second := c.Chunk(text)
	assert.Equal(t, first, second)
}

func TestOverlapPrefix_ShortPrevious(t *testing.T) {
	assert.Equal(t, "one two", overlapPrefix("one two"))
	assert.Equal(t, "b c d e f", overlapPrefix("a b c d e f"))
}
