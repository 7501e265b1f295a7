package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"docchat/internal/chunker"
	"docchat/internal/embedcache"
	"docchat/internal/embedder"
	"docchat/internal/querycache"
	"docchat/internal/retriever"
	"docchat/internal/storage"
	"docchat/internal/vectorindex"
	"docchat/pkg/types"
)

const (
	// DefaultMaxConcurrentFiles bounds parallel document indexing.
	DefaultMaxConcurrentFiles = 3
	// DefaultQueryTimeout bounds a single retrieval.
	DefaultQueryTimeout = 30 * time.Second
)

// Document is a file submitted for indexing.
type Document struct {
	FileID   string
	Filename string
	Content  string
}

// IndexStats summarize one indexing operation.
type IndexStats struct {
	FileID    string
	Filename  string
	Chunks    int
	CacheHits int
	Duration  time.Duration
}

// SessionStats summarize what a session holds, plus current cache
// occupancy across the engine.
type SessionStats struct {
	SessionID string
	Files     []*storage.File
	Chunks    int
	Dimension int

	// CachedQueries counts live query-cache entries across all
	// sessions; MemoryEmbeddings and DurableEmbeddings count the two
	// embedding-cache tiers.
	CachedQueries     int
	MemoryEmbeddings  int
	DurableEmbeddings int
}

// Config contains engine construction parameters.
type Config struct {
	Embedder  embedder.Embedder
	Store     storage.Store
	DataDir   string
	Dimension int

	ChunkSize          int
	Threshold          float32
	Reranker           retriever.Reranker
	EmbedCacheSize     int
	QueryCacheSize     int
	QueryCacheTTL      time.Duration
	MaxConcurrentFiles int
	QueryTimeout       time.Duration
}

// session pairs an in-memory index with its lock. The engine mutex
// only guards the sessions map; each session's lock serializes access
// to its index. gen increments on every index mutation, letting a
// query detect that its result was computed against an older index.
type session struct {
	mu    sync.RWMutex
	index *vectorindex.Index
	gen   uint64
}

// Engine coordinates the full pipeline: chunk -> embed -> index on the
// write path, embed -> search -> filter -> rerank on the read path.
type Engine struct {
	embedder  embedder.Embedder
	chunker   *chunker.Chunker
	embCache  *embedcache.Cache
	queries   *querycache.Cache
	retriever *retriever.Retriever
	store     storage.Store
	dataDir   string
	dimension int

	maxConcurrent int64
	queryTimeout  time.Duration

	mu       sync.Mutex
	sessions map[string]*session
}

// New creates an Engine. Store may be nil, in which case the session
// registry and the durable embedding tier are disabled.
func New(cfg Config) (*Engine, error) {
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("engine: embedder is required")
	}
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("engine: data directory is required")
	}
	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = cfg.Embedder.Dimension()
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("engine: cannot determine embedding dimension")
	}

	maxConcurrent := int64(cfg.MaxConcurrentFiles)
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentFiles
	}
	queryTimeout := cfg.QueryTimeout
	if queryTimeout <= 0 {
		queryTimeout = DefaultQueryTimeout
	}

	var durable embedcache.DurableStore
	if cfg.Store != nil {
		durable = cfg.Store
	}
	embCache := embedcache.New(cfg.EmbedCacheSize, durable)

	e := &Engine{
		embedder:      cfg.Embedder,
		chunker:       chunker.New(cfg.ChunkSize),
		embCache:      embCache,
		queries:       querycache.New(cfg.QueryCacheSize, cfg.QueryCacheTTL),
		store:         cfg.Store,
		dataDir:       cfg.DataDir,
		dimension:     dimension,
		maxConcurrent: maxConcurrent,
		queryTimeout:  queryTimeout,
		sessions:      make(map[string]*session),
	}
	e.retriever = retriever.New(cfg.Embedder, embCache, e, retriever.Config{
		Threshold: cfg.Threshold,
		Reranker:  cfg.Reranker,
	})
	return e, nil
}

// CreateSession registers a new session and returns its ID.
func (e *Engine) CreateSession(ctx context.Context, name string) (string, error) {
	sessionID := uuid.NewString()
	if e.store != nil {
		if err := e.store.CreateSession(ctx, &storage.Session{ID: sessionID, Name: name}); err != nil {
			return "", fmt.Errorf("creating session: %w", err)
		}
	}
	return sessionID, nil
}

// IndexDocument chunks, embeds, and indexes one document into the
// session. The index swap is all-or-nothing: a failure anywhere leaves
// the session's previous state untouched.
func (e *Engine) IndexDocument(ctx context.Context, sessionID string, doc Document) (*IndexStats, error) {
	start := time.Now()
	if doc.FileID == "" {
		doc.FileID = uuid.NewString()
	}

	stats := &IndexStats{FileID: doc.FileID, Filename: doc.Filename}
	chunks := e.chunker.Chunk(doc.Content)
	if len(chunks) == 0 {
		stats.Duration = time.Since(start)
		return stats, nil
	}

	// Embedding happens before any lock is taken.
	vectors, cacheHits, err := e.embedChunks(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embedding %s: %w", doc.Filename, err)
	}

	records := make([]types.IndexRecord, len(chunks))
	for i, c := range chunks {
		records[i] = types.IndexRecord{
			ChunkID:   fmt.Sprintf("%s:%d", doc.FileID, c.Sequence),
			SessionID: sessionID,
			FileID:    doc.FileID,
			Filename:  doc.Filename,
			Content:   types.Snippet(c.Content),
			Sequence:  c.Sequence,
			CreatedAt: start,
		}
	}

	s, err := e.session(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	staged := s.index.Clone()
	if _, err := staged.Add(vectors, records); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("indexing %s: %w", doc.Filename, err)
	}
	if err := staged.Save(e.sessionDir(sessionID)); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("persisting session %s: %w", sessionID, err)
	}
	s.index = staged
	s.gen++
	s.mu.Unlock()

	e.queries.InvalidateSession(sessionID)

	if e.store != nil {
		file := &storage.File{
			ID:         doc.FileID,
			SessionID:  sessionID,
			Filename:   doc.Filename,
			SizeBytes:  int64(len(doc.Content)),
			ChunkCount: len(chunks),
			IndexedAt:  start,
		}
		if err := e.store.UpsertFile(ctx, file); err != nil {
			log.Printf("recording file %s: %v", doc.Filename, err)
		}
	}

	stats.Chunks = len(chunks)
	stats.CacheHits = cacheHits
	stats.Duration = time.Since(start)
	return stats, nil
}

// IndexFiles indexes several documents concurrently, bounded by the
// configured worker limit. The first failure cancels the rest.
func (e *Engine) IndexFiles(ctx context.Context, sessionID string, docs []Document) ([]*IndexStats, error) {
	sem := semaphore.NewWeighted(e.maxConcurrent)
	results := make([]*IndexStats, len(docs))

	g, ctx := errgroup.WithContext(ctx)
	for i, doc := range docs {
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			stats, err := e.IndexDocument(ctx, sessionID, doc)
			if err != nil {
				return err
			}
			results[i] = stats
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Query retrieves chunks relevant to the query from the session's
// index, serving repeated lookups from the query cache.
func (e *Engine) Query(ctx context.Context, sessionID, query string, opts retriever.Options) (*types.RetrievalResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	key := querycache.Key(sessionID, query, opts.FileIDs)
	if cached := e.queries.Get(key); cached != nil {
		return cached, nil
	}

	s, err := e.session(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrRetrievalFailed, err)
	}
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	result, err := e.retriever.Retrieve(ctx, sessionID, query, opts)
	if err != nil {
		return nil, err
	}

	// An upload that landed while this query ran has already
	// invalidated the session's cache entries. Caching the result now
	// would reintroduce a value computed against the older index.
	s.mu.RLock()
	unchanged := s.gen == gen
	s.mu.RUnlock()
	if unchanged {
		e.queries.Set(key, sessionID, result)
	}
	return result, nil
}

// Search implements retriever.Searcher over the session's index. A
// session with no index yields no hits.
func (e *Engine) Search(ctx context.Context, sessionID string, query []float32, k int) ([]vectorindex.Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := e.session(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Search(query, k)
}

// ClearSession drops the session's index, its cached queries, and its
// file records. The session itself stays registered.
func (e *Engine) ClearSession(ctx context.Context, sessionID string) error {
	s, err := e.session(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.index.Clear()
	dir := e.sessionDir(sessionID)
	if err := os.RemoveAll(dir); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: clearing session %s: %v", types.ErrPersistence, sessionID, err)
	}
	s.gen++
	s.mu.Unlock()

	e.queries.InvalidateSession(sessionID)

	if e.store != nil {
		if _, err := e.store.DeleteFilesBySession(ctx, sessionID); err != nil {
			return fmt.Errorf("clearing file records for %s: %w", sessionID, err)
		}
	}
	return nil
}

// Stats reports what the session currently holds.
func (e *Engine) Stats(ctx context.Context, sessionID string) (*SessionStats, error) {
	s, err := e.session(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	chunks := s.index.Len()
	s.mu.RUnlock()

	stats := &SessionStats{
		SessionID:        sessionID,
		Chunks:           chunks,
		Dimension:        e.dimension,
		CachedQueries:    e.queries.Len(),
		MemoryEmbeddings: e.embCache.MemorySize(),
	}
	if e.store != nil {
		files, err := e.store.ListFiles(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("listing files for %s: %w", sessionID, err)
		}
		stats.Files = files

		count, err := e.store.CountEmbeddings(ctx)
		if err != nil {
			return nil, fmt.Errorf("counting embeddings: %w", err)
		}
		stats.DurableEmbeddings = count
	}
	return stats, nil
}

// Close releases the embedder and the store.
func (e *Engine) Close() error {
	var firstErr error
	if err := e.embedder.Close(); err != nil {
		firstErr = err
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// session returns the in-memory state for sessionID, loading a
// persisted index from disk on first access.
func (e *Engine) session(sessionID string) (*session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s, ok := e.sessions[sessionID]; ok {
		return s, nil
	}

	idx, err := vectorindex.Load(e.sessionDir(sessionID), e.dimension)
	switch {
	case err == nil:
	case errors.Is(err, types.ErrNoIndex):
		idx, err = vectorindex.New(e.dimension)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("loading session %s: %w", sessionID, err)
	}

	s := &session{index: idx}
	e.sessions[sessionID] = s
	return s, nil
}

// embedChunks resolves chunk vectors through the embedding cache,
// embedding only the misses. Every vector is dimension-checked before
// it can reach an index.
func (e *Engine) embedChunks(ctx context.Context, chunks []types.Chunk) ([][]float32, int, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors := e.embCache.GetBatch(ctx, texts)
	missTexts := make([]string, 0)
	missIndexes := make([]int, 0)
	for i, v := range vectors {
		if v == nil {
			missTexts = append(missTexts, texts[i])
			missIndexes = append(missIndexes, i)
		}
	}
	cacheHits := len(texts) - len(missTexts)

	if len(missTexts) > 0 {
		embedded, err := e.embedder.EmbedBatch(ctx, missTexts)
		if err != nil {
			return nil, 0, err
		}
		if len(embedded) != len(missTexts) {
			return nil, 0, fmt.Errorf("embedder returned %d vectors for %d texts", len(embedded), len(missTexts))
		}
		for i, v := range embedded {
			vectors[missIndexes[i]] = v
		}
		e.embCache.SetBatch(ctx, missTexts, embedded)
	}

	for i, v := range vectors {
		if len(v) != e.dimension {
			return nil, 0, fmt.Errorf("%w: chunk %d has dimension %d, want %d",
				types.ErrDimensionMismatch, i, len(v), e.dimension)
		}
	}
	return vectors, cacheHits, nil
}

func (e *Engine) sessionDir(sessionID string) string {
	return filepath.Join(e.dataDir, sessionID)
}
