package vectorindex

import (
	"fmt"
	"math"
	"sort"

	"docchat/pkg/types"
)

// Hit is one search result: a record and its similarity to the query.
type Hit struct {
	// Score is the inner product of the unit-normalized query and
	// stored vectors, i.e. cosine similarity in [-1, 1].
	Score  float32
	Record types.IndexRecord
}

// Index is an exact inner-product similarity index for one session.
// Vectors and records are parallel, append-only sequences: the record
// at position i describes the vector at position i.
//
// Index does no internal locking. The engine serializes access with a
// per-session lock that guards both the in-memory index and its
// on-disk counterpart.
type Index struct {
	dim     int
	vectors [][]float32
	records []types.IndexRecord
}

// New creates an empty index with a fixed dimension.
func New(dim int) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", types.ErrDimensionMismatch, dim)
	}
	return &Index{dim: dim}, nil
}

// Dimension returns the fixed embedding dimension.
func (ix *Index) Dimension() int {
	return ix.dim
}

// Len returns the number of stored vectors.
func (ix *Index) Len() int {
	return len(ix.vectors)
}

// Add appends vectors and their records to the index. Each vector is
// L2-normalized on insertion so inner-product search behaves as cosine
// similarity. The vector and record counts must match, and every
// vector must have the index dimension.
func (ix *Index) Add(vectors [][]float32, records []types.IndexRecord) (int, error) {
	if len(vectors) != len(records) {
		return 0, fmt.Errorf("%w: %d vectors, %d records", types.ErrShapeMismatch, len(vectors), len(records))
	}

	normalized := make([][]float32, len(vectors))
	for i, vec := range vectors {
		if len(vec) != ix.dim {
			return 0, fmt.Errorf("%w: vector %d has dimension %d, want %d", types.ErrDimensionMismatch, i, len(vec), ix.dim)
		}
		if err := records[i].Validate(); err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
		normalized[i] = normalize(vec)
	}

	ix.vectors = append(ix.vectors, normalized...)
	ix.records = append(ix.records, records...)
	return len(vectors), nil
}

// Search returns up to k hits ordered by descending similarity. Ties
// preserve insertion order for determinism. An empty index returns no
// hits and no error; k is clamped to the vector count.
func (ix *Index) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != ix.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, want %d", types.ErrDimensionMismatch, len(query), ix.dim)
	}
	if len(ix.vectors) == 0 || k <= 0 {
		return nil, nil
	}
	if k > len(ix.vectors) {
		k = len(ix.vectors)
	}

	q := normalize(query)

	order := make([]int, len(ix.vectors))
	scores := make([]float32, len(ix.vectors))
	for i, vec := range ix.vectors {
		order[i] = i
		scores[i] = dot(q, vec)
	}

	// Stable sort keeps earlier-inserted vectors first on equal scores.
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	hits := make([]Hit, k)
	for i := 0; i < k; i++ {
		idx := order[i]
		hits[i] = Hit{Score: scores[idx], Record: ix.records[idx]}
	}
	return hits, nil
}

// Merge appends all vectors and records from other. Both indexes must
// have the same dimension. Other's vectors are already normalized, so
// they are copied as-is.
func (ix *Index) Merge(other *Index) error {
	if other == nil {
		return nil
	}
	if other.dim != ix.dim {
		return fmt.Errorf("%w: cannot merge dimension %d into %d", types.ErrDimensionMismatch, other.dim, ix.dim)
	}
	ix.vectors = append(ix.vectors, other.vectors...)
	ix.records = append(ix.records, other.records...)
	return nil
}

// Clear resets to an empty index of the same dimension.
func (ix *Index) Clear() {
	ix.vectors = nil
	ix.records = nil
}

// Clone returns a copy safe for staged mutation. Stored vectors are
// never modified after insertion, so the inner slices are shared; only
// the outer slices and records are copied.
func (ix *Index) Clone() *Index {
	out := &Index{
		dim:     ix.dim,
		vectors: make([][]float32, len(ix.vectors)),
		records: make([]types.IndexRecord, len(ix.records)),
	}
	copy(out.vectors, ix.vectors)
	copy(out.records, ix.records)
	return out
}

// Records returns a copy of the record list in insertion order.
func (ix *Index) Records() []types.IndexRecord {
	out := make([]types.IndexRecord, len(ix.records))
	copy(out, ix.records)
	return out
}

// normalize returns a unit-length copy of v. A zero vector is copied
// unchanged, since it cannot be normalized.
func normalize(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}

	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}

	norm := float32(math.Sqrt(sum))
	for i, val := range v {
		out[i] = val / norm
	}
	return out
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
