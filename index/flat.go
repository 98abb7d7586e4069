package index

import (
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/finvoc/termbase/core"
	"github.com/google/uuid"
)

// Record is a single (entryId, vector) pair for bulk insertion.
type Record struct {
	EntryID core.ID
	Vector  []float32
}

// Match is a single nearest-neighbor hit. Distance is cosine distance
// (1 - cosine similarity) over unit vectors, so it lies in [0,2] with 0
// meaning identical direction.
type Match struct {
	EntryID  core.ID
	Distance float32
}

// Flat is an exact nearest-neighbor index over unit vectors.
//
// Vectors are stored densely; position i in vectors corresponds to ids[i].
// Re-inserting an entry replaces its vector in place, so incremental upserts
// never leave two vectors competing for the same entry.
//
// Flat is safe for concurrent reads with a single writer; all methods take
// the internal lock.
type Flat struct {
	mu      sync.RWMutex
	dim     int
	modelID string
	buildID string
	builtAt time.Time
	vectors [][]float32
	ids     []core.ID
	byEntry map[core.ID]int // entryId -> dense position
}

// NewFlat creates an empty index for vectors of the given dimensionality,
// tagged with the embedding model id that produces them.
func NewFlat(dim int, modelID string) *Flat {
	return &Flat{
		dim:     dim,
		modelID: modelID,
		buildID: uuid.NewString(),
		builtAt: time.Now().UTC(),
		byEntry: make(map[core.ID]int),
	}
}

// Insert adds one vector, replacing any existing vector for the same entry.
// The vector is normalized to unit length; the caller's slice is not retained.
func (f *Flat) Insert(entryID core.ID, vector []float32) error {
	normalized, err := f.prepare(vector)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertLocked(entryID, normalized)
	return nil
}

// InsertBatch adds a batch of vectors. Either the whole batch is applied or,
// on the first invalid vector, nothing is (validation happens up front).
func (f *Flat) InsertBatch(records []Record) error {
	normalized := make([][]float32, len(records))
	for i, rec := range records {
		v, err := f.prepare(rec.Vector)
		if err != nil {
			return fmt.Errorf("record %d (entry %d): %w", i, rec.EntryID, err)
		}
		normalized[i] = v
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i, rec := range records {
		f.insertLocked(rec.EntryID, normalized[i])
	}
	return nil
}

// Search returns the k entries nearest to the query vector, sorted by
// ascending distance. Fewer than k matches are returned when the index holds
// fewer vectors. An empty index yields an empty result, not an error.
func (f *Flat) Search(query []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	normalized, err := f.prepare(query)
	if err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	matches := make([]Match, 0, len(f.vectors))
	for i, stored := range f.vectors {
		dist := 1 - dotProduct(normalized, stored)
		if dist < 0 {
			dist = 0 // rounding can push identical vectors slightly negative
		}
		matches = append(matches, Match{EntryID: f.ids[i], Distance: dist})
	}

	slices.SortFunc(matches, func(a, b Match) int {
		if a.Distance < b.Distance {
			return -1
		}
		if a.Distance > b.Distance {
			return 1
		}
		// Stable tiebreak so persisted and restored indexes rank identically.
		if a.EntryID < b.EntryID {
			return -1
		}
		if a.EntryID > b.EntryID {
			return 1
		}
		return 0
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Contains reports whether the index holds a vector for the entry.
func (f *Flat) Contains(entryID core.ID) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.byEntry[entryID]
	return ok
}

// Len returns the number of vectors in the index.
func (f *Flat) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

// Dim returns the index dimensionality.
func (f *Flat) Dim() int {
	return f.dim
}

// ModelID returns the embedding model id the index was built under.
func (f *Flat) ModelID() string {
	return f.modelID
}

// BuildID returns the unique id of this build, shared by the persisted file pair.
func (f *Flat) BuildID() string {
	return f.buildID
}

// BuiltAt returns when this index build was created.
func (f *Flat) BuiltAt() time.Time {
	return f.builtAt
}

// prepare validates dimensionality and returns a normalized copy.
func (f *Flat) prepare(vector []float32) ([]float32, error) {
	if len(vector) != f.dim {
		return nil, fmt.Errorf("%w: expected %d, received %d", ErrDimensionMismatch, f.dim, len(vector))
	}

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares == 0 {
		return nil, ErrZeroVector
	}

	norm := float32(math.Sqrt(sumSquares))
	normalized := make([]float32, len(vector))
	for i, v := range vector {
		normalized[i] = v / norm
	}
	return normalized, nil
}

// insertLocked appends or replaces. Caller holds the write lock.
func (f *Flat) insertLocked(entryID core.ID, normalized []float32) {
	if pos, ok := f.byEntry[entryID]; ok {
		f.vectors[pos] = normalized
		return
	}
	f.byEntry[entryID] = len(f.vectors)
	f.vectors = append(f.vectors, normalized)
	f.ids = append(f.ids, entryID)
}

// dotProduct calculates the dot product of two equal-length vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
