package types

// RetrievedChunk is a single scored retrieval hit.
type RetrievedChunk struct {
	ChunkID  string `json:"chunk_id"`
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
	Content  string `json:"content"`
	Sequence int    `json:"sequence"`

	// Similarity is the inner product between the unit-normalized query
	// and chunk vectors, i.e. cosine similarity in [-1, 1].
	Similarity float32 `json:"similarity"`

	// RerankScore is the cross-encoder relevance score when reranking
	// ran, zero otherwise.
	RerankScore float32 `json:"rerank_score,omitempty"`
}

// RetrievalResult is the value cached and returned for one query.
type RetrievalResult struct {
	Query    string           `json:"query"`
	Chunks   []RetrievedChunk `json:"chunks"`
	Reranked bool             `json:"reranked"`
}

// Clone returns a copy whose chunk slice is independent of the
// original, so cached results can be handed out safely.
func (r *RetrievalResult) Clone() *RetrievalResult {
	if r == nil {
		return nil
	}
	out := &RetrievalResult{
		Query:    r.Query,
		Reranked: r.Reranked,
		Chunks:   make([]RetrievedChunk, len(r.Chunks)),
	}
	copy(out.Chunks, r.Chunks)
	return out
}
