package retriever

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"docchat/internal/embedcache"
	"docchat/internal/embedder"
	"docchat/internal/vectorindex"
	"docchat/pkg/types"
)

const (
	// DefaultTopK is the number of chunks returned when the caller
	// does not ask for a specific count.
	DefaultTopK = 5
	// DefaultThreshold is the minimum similarity applied when none is
	// configured.
	DefaultThreshold = 0.5
	// CandidateMultiplier widens the index search so filtering and
	// deduplication still leave enough results.
	CandidateMultiplier = 3
	// MaxCandidates caps how many hits are pulled from the index per
	// query.
	MaxCandidates = 50
)

// Searcher runs a similarity search over a session's index.
type Searcher interface {
	Search(ctx context.Context, sessionID string, query []float32, k int) ([]vectorindex.Hit, error)
}

// Reranker rescores documents against a query. Scores are returned
// index-aligned with the input documents.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string) ([]float32, error)
}

// Options tune a single retrieval call.
type Options struct {
	// TopK is the number of chunks to return. Values <= 0 fall back
	// to DefaultTopK.
	TopK int
	// FileIDs restricts results to the named files. Empty means all
	// files in the session.
	FileIDs []string
	// MinScore overrides the retriever's similarity threshold when
	// non-nil. It is clamped to [0, 1].
	MinScore *float32
}

// Retriever turns a natural-language query into ranked chunks from a
// session's index.
type Retriever struct {
	embedder  embedder.Embedder
	cache     *embedcache.Cache
	searcher  Searcher
	reranker  Reranker
	threshold float32
	logf      func(format string, args ...any)
}

// Config holds retriever construction parameters.
type Config struct {
	// Threshold is the default minimum similarity, clamped to [0, 1].
	// Negative means use DefaultThreshold.
	Threshold float32
	// Reranker is optional. When set, retrieved chunks are reordered
	// by its scores; rerank failures fall back to similarity order.
	Reranker Reranker
}

// New creates a Retriever. cache may be nil, in which case every query
// is embedded fresh.
func New(emb embedder.Embedder, cache *embedcache.Cache, searcher Searcher, cfg Config) *Retriever {
	threshold := cfg.Threshold
	if threshold < 0 {
		threshold = DefaultThreshold
	}
	return &Retriever{
		embedder:  emb,
		cache:     cache,
		searcher:  searcher,
		reranker:  cfg.Reranker,
		threshold: clamp01(threshold),
		logf:      log.Printf,
	}
}

// Retrieve embeds the query, searches the session's index, and returns
// up to TopK chunks above the similarity threshold. Results are
// deduplicated by chunk ID and, when a reranker is configured,
// reordered by relevance.
func (r *Retriever) Retrieve(ctx context.Context, sessionID, query string, opts Options) (*types.RetrievalResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", types.ErrRetrievalFailed)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	threshold := r.threshold
	if opts.MinScore != nil {
		threshold = clamp01(*opts.MinScore)
	}

	vec, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %v", types.ErrRetrievalFailed, err)
	}

	candidates := topK * CandidateMultiplier
	if candidates > MaxCandidates {
		candidates = MaxCandidates
	}

	hits, err := r.searcher.Search(ctx, sessionID, vec, candidates)
	if err != nil {
		return nil, fmt.Errorf("%w: searching session %s: %v", types.ErrRetrievalFailed, sessionID, err)
	}

	allowed := fileSet(opts.FileIDs)
	seen := make(map[string]struct{}, topK)
	chunks := make([]types.RetrievedChunk, 0, topK)
	for _, hit := range hits {
		if len(chunks) == topK {
			break
		}
		if hit.Score < threshold {
			// Hits arrive sorted by score, nothing below passes.
			break
		}
		if allowed != nil {
			if _, ok := allowed[hit.Record.FileID]; !ok {
				continue
			}
		}
		if _, dup := seen[hit.Record.ChunkID]; dup {
			continue
		}
		seen[hit.Record.ChunkID] = struct{}{}
		chunks = append(chunks, types.RetrievedChunk{
			ChunkID:    hit.Record.ChunkID,
			FileID:     hit.Record.FileID,
			Filename:   hit.Record.Filename,
			Content:    hit.Record.Content,
			Sequence:   hit.Record.Sequence,
			Similarity: hit.Score,
		})
	}

	result := &types.RetrievalResult{
		Query:  query,
		Chunks: chunks,
	}
	if r.reranker != nil && len(chunks) > 1 {
		r.rerank(ctx, result)
	}
	return result, nil
}

// embedQuery serves the query vector from the embedding cache when
// possible.
func (r *Retriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if r.cache != nil {
		if vec, ok := r.cache.Get(ctx, query); ok {
			return vec, nil
		}
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		r.cache.Set(ctx, query, vec)
	}
	return vec, nil
}

// rerank reorders result.Chunks by reranker scores. A rerank failure
// leaves the similarity ordering in place and is never surfaced to the
// caller.
func (r *Retriever) rerank(ctx context.Context, result *types.RetrievalResult) {
	documents := make([]string, len(result.Chunks))
	for i, c := range result.Chunks {
		documents[i] = c.Content
	}

	scores, err := r.reranker.Rerank(ctx, result.Query, documents)
	if err != nil || len(scores) != len(documents) {
		r.logf("rerank failed, keeping similarity order: %v", err)
		return
	}

	for i := range result.Chunks {
		result.Chunks[i].RerankScore = scores[i]
	}
	// Stable sort keeps equal-score chunks in similarity order.
	sort.SliceStable(result.Chunks, func(i, j int) bool {
		return result.Chunks[i].RerankScore > result.Chunks[j].RerankScore
	})
	result.Reranked = true
}

func fileSet(ids []string) map[string]struct{} {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func clamp01(v float32) float32 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
