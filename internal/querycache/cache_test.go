package querycache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/pkg/types"
)

func result(query string) *types.RetrievalResult {
	return &types.RetrievalResult{
		Query: query,
		Chunks: []types.RetrievedChunk{
			{ChunkID: "c1", FileID: "f1", Filename: "a.txt", Content: "body", Similarity: 0.9},
		},
	}
}

func TestKey_Canonicalization(t *testing.T) {
	base := Key("s1", "what is go?", []string{"f1", "f2"})

	assert.Equal(t, base, Key("s1", "  What IS Go?  ", []string{"f2", "f1"}),
		"case, whitespace, and file order must not change the key")
	assert.NotEqual(t, base, Key("s2", "what is go?", []string{"f1", "f2"}))
	assert.NotEqual(t, base, Key("s1", "what is go?", []string{"f1"}))
	assert.NotEqual(t, base, Key("s1", "what is rust?", []string{"f1", "f2"}))
}

func TestKey_NilAndEmptyFilesDiffer(t *testing.T) {
	// A nil filter and an empty filter both mean "all files".
	assert.Equal(t, Key("s1", "q", nil), Key("s1", "q", []string{}))
}

func TestGetSet_RoundTrip(t *testing.T) {
	c := New(10, time.Minute)
	key := Key("s1", "q", nil)

	assert.Nil(t, c.Get(key))

	c.Set(key, "s1", result("q"))
	got := c.Get(key)
	require.NotNil(t, got)
	assert.Equal(t, "q", got.Query)
	require.Len(t, got.Chunks, 1)
	assert.Equal(t, "c1", got.Chunks[0].ChunkID)
}

func TestGet_ReturnsCopy(t *testing.T) {
	c := New(10, time.Minute)
	key := Key("s1", "q", nil)
	c.Set(key, "s1", result("q"))

	first := c.Get(key)
	require.NotNil(t, first)
	first.Chunks[0].Content = "mutated"

	second := c.Get(key)
	require.NotNil(t, second)
	assert.Equal(t, "body", second.Chunks[0].Content)
}

func TestSet_CopiesInput(t *testing.T) {
	c := New(10, time.Minute)
	key := Key("s1", "q", nil)

	r := result("q")
	c.Set(key, "s1", r)
	r.Chunks[0].Content = "mutated"

	got := c.Get(key)
	require.NotNil(t, got)
	assert.Equal(t, "body", got.Chunks[0].Content)
}

func TestGet_ExpiredEntryIsRemoved(t *testing.T) {
	c := New(10, time.Minute)
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	key := Key("s1", "q", nil)
	c.Set(key, "s1", result("q"))

	clock = clock.Add(time.Minute - time.Second)
	assert.NotNil(t, c.Get(key), "entry within TTL must be served")

	clock = clock.Add(2 * time.Second)
	assert.Nil(t, c.Get(key), "entry past TTL must not be served")
	assert.Equal(t, 0, c.Len(), "expired entry is removed on access")
}

func TestEviction_LRUOrder(t *testing.T) {
	c := New(2, time.Minute)

	k1 := Key("s1", "one", nil)
	k2 := Key("s1", "two", nil)
	k3 := Key("s1", "three", nil)

	c.Set(k1, "s1", result("one"))
	c.Set(k2, "s1", result("two"))

	// Touch k1 so k2 becomes the eviction candidate.
	require.NotNil(t, c.Get(k1))

	c.Set(k3, "s1", result("three"))

	assert.NotNil(t, c.Get(k1))
	assert.Nil(t, c.Get(k2))
	assert.NotNil(t, c.Get(k3))
}

func TestInvalidateSession(t *testing.T) {
	c := New(10, time.Minute)

	c.Set(Key("s1", "a", nil), "s1", result("a"))
	c.Set(Key("s1", "b", nil), "s1", result("b"))
	c.Set(Key("s2", "a", nil), "s2", result("a"))

	removed := c.InvalidateSession("s1")
	assert.Equal(t, 2, removed)

	assert.Nil(t, c.Get(Key("s1", "a", nil)))
	assert.Nil(t, c.Get(Key("s1", "b", nil)))
	assert.NotNil(t, c.Get(Key("s2", "a", nil)), "other sessions must survive")
}

func TestInvalidateSession_Unknown(t *testing.T) {
	c := New(10, time.Minute)
	c.Set(Key("s1", "a", nil), "s1", result("a"))

	assert.Equal(t, 0, c.InvalidateSession("nope"))
	assert.Equal(t, 1, c.Len())
}

func TestClear(t *testing.T) {
	c := New(10, time.Minute)
	c.Set(Key("s1", "a", nil), "s1", result("a"))
	c.Set(Key("s2", "b", nil), "s2", result("b"))

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Nil(t, c.Get(Key("s1", "a", nil)))
}

func TestNew_Defaults(t *testing.T) {
	c := New(0, 0)
	assert.Equal(t, DefaultTTL, c.ttl)

	key := Key("s1", "q", nil)
	c.Set(key, "s1", result("q"))
	assert.NotNil(t, c.Get(key))
}
