package search

import (
	"context"
	"testing"

	"github.com/finvoc/termbase/ai"
	"github.com/finvoc/termbase/ai/mock"
	"github.com/finvoc/termbase/cache"
	"github.com/finvoc/termbase/core"
	"github.com/finvoc/termbase/index"
	"github.com/finvoc/termbase/storage"
	badgerstore "github.com/finvoc/termbase/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchFixture struct {
	searcher *Searcher
	embedder *mock.MockEmbedder
	cache    *cache.QueryCache
	handle   *index.Handle
	entries  storage.EntryRepository
	ids      map[string]core.ID
}

// newSearchFixture seeds three embedded entries:
//
//	alpha: quality 0.9, indicator, equities, vector (1,0,0,0)
//	beta:  quality 0.2, indicator, equities, vector (0.9,0.1,0,0)
//	gamma: quality 0.9, risk, fx, vector (0,1,0,0)
func newSearchFixture(t *testing.T) *searchFixture {
	t.Helper()

	entryRepo, _, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	seed := []struct {
		term     string
		quality  float32
		category core.Category
		assets   []string
		vector   []float32
	}{
		{"alpha", 0.9, core.CategoryIndicator, []string{"equities"}, []float32{1, 0, 0, 0}},
		{"beta", 0.2, core.CategoryIndicator, []string{"equities"}, []float32{0.9, 0.1, 0, 0}},
		{"gamma", 0.9, core.CategoryRisk, []string{"fx"}, []float32{0, 1, 0, 0}},
	}

	flat := index.NewFlat(4, mock.DefaultModelID)
	ids := map[string]core.ID{}
	ctx := context.Background()
	for _, s := range seed {
		entry := &core.Entry{
			Term:           s.term,
			Definition:     "definition of " + s.term,
			Category:       s.category,
			QualityScore:   s.quality,
			AssetClasses:   s.assets,
			IsActive:       true,
			Vector:         s.vector,
			EmbeddingModel: mock.DefaultModelID,
		}
		stored, err := entryRepo.PutEntries(ctx, entry)
		require.NoError(t, err)
		ids[s.term] = stored[0].Id
		require.NoError(t, flat.Insert(stored[0].Id, s.vector))
	}

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0, 0, 0}, nil
	}

	handle := index.NewHandle(flat)
	queryCache := cache.NewQueryCache()

	searcher, err := NewSearcher(entryRepo, handle, queryCache, mock.NewMockProviderWithEmbedder(embedder), WithUsagePoolSize(1))
	require.NoError(t, err)
	t.Cleanup(searcher.Release)

	return &searchFixture{
		searcher: searcher,
		embedder: embedder,
		cache:    queryCache,
		handle:   handle,
		entries:  entryRepo,
		ids:      ids,
	}
}

func TestSearchRanksByDistance(t *testing.T) {
	f := newSearchFixture(t)

	results, err := f.searcher.Search(context.Background(), "average price", 3, Filters{})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "alpha", results[0].Term)
	assert.Equal(t, "beta", results[1].Term)
	assert.Equal(t, "gamma", results[2].Term)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Greater(t, results[1].Score, results[2].Score)
	for _, result := range results {
		assert.False(t, result.Cached)
		assert.Greater(t, result.Score, float32(0))
		assert.LessOrEqual(t, result.Score, float32(1))
	}
}

func TestSearchAppliesFilters(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	results, err := f.searcher.Search(ctx, "average price", 3, Filters{
		MinQuality: 0.5,
		Categories: []core.Category{core.CategoryIndicator},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "alpha", results[0].Term)

	results, err = f.searcher.Search(ctx, "average price", 3, Filters{AssetClasses: []string{"FX"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "gamma", results[0].Term)
}

func TestSearchLimitBound(t *testing.T) {
	f := newSearchFixture(t)

	results, err := f.searcher.Search(context.Background(), "average price", 2, Filters{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "alpha", results[0].Term)
}

func TestSearchCacheHit(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	first, err := f.searcher.Search(ctx, "average price", 3, Filters{})
	require.NoError(t, err)
	require.Equal(t, 1, f.embedder.CallCount())

	second, err := f.searcher.Search(ctx, "average price", 3, Filters{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.embedder.CallCount(), "cache hit must not re-embed")
	require.Len(t, second, len(first))
	for i := range second {
		assert.True(t, second[i].Cached)
		assert.Equal(t, first[i].EntryID, second[i].EntryID)
	}
}

func TestSearchCacheKeyIsNormalized(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	_, err := f.searcher.Search(ctx, "Average   Price", 3, Filters{})
	require.NoError(t, err)
	_, err = f.searcher.Search(ctx, "  average price ", 3, Filters{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.embedder.CallCount(), "case and whitespace variants must share a cache slot")

	// A different limit is a different key.
	_, err = f.searcher.Search(ctx, "average price", 2, Filters{})
	require.NoError(t, err)
	assert.Equal(t, 2, f.embedder.CallCount())
}

func TestSearchTagInvalidation(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	_, err := f.searcher.Search(ctx, "average price", 3, Filters{})
	require.NoError(t, err)
	require.Equal(t, 1, f.embedder.CallCount())

	removed := f.cache.Invalidate(cache.EntryTag(f.ids["alpha"]))
	assert.Equal(t, 1, removed)

	_, err = f.searcher.Search(ctx, "average price", 3, Filters{})
	require.NoError(t, err)
	assert.Equal(t, 2, f.embedder.CallCount(), "invalidated query must be recomputed")
}

func TestSearchEmptyIndex(t *testing.T) {
	f := newSearchFixture(t)

	f.handle.Swap(index.NewFlat(4, mock.DefaultModelID))

	results, err := f.searcher.Search(context.Background(), "anything", 3, Filters{})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, f.embedder.CallCount(), "empty index must not embed")
}

func TestSearchEmbeddingFailureIsLoud(t *testing.T) {
	f := newSearchFixture(t)

	f.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, ai.ErrEmbeddingUnavailable
	}

	_, err := f.searcher.Search(context.Background(), "average price", 3, Filters{})
	assert.ErrorIs(t, err, ai.ErrEmbeddingUnavailable)
}

func TestSearchSkipsStaleVectors(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	// A content edit clears the stored vector; the index still lists the
	// entry until the next rebuild, so search must drop it.
	entry, err := f.entries.GetEntry(ctx, f.ids["alpha"])
	require.NoError(t, err)
	entry.Definition = "edited definition"
	_, err = f.entries.PutEntries(ctx, entry)
	require.NoError(t, err)

	results, err := f.searcher.Search(ctx, "average price", 3, Filters{})
	require.NoError(t, err)
	for _, result := range results {
		assert.NotEqual(t, f.ids["alpha"], result.EntryID)
	}
}

func TestSearchSkipsDeactivatedEntries(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	require.NoError(t, f.entries.DeactivateEntries(ctx, f.ids["beta"]))

	results, err := f.searcher.Search(ctx, "average price", 3, Filters{})
	require.NoError(t, err)
	for _, result := range results {
		assert.NotEqual(t, f.ids["beta"], result.EntryID)
	}
}

func TestSearchInvalidArguments(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	_, err := f.searcher.Search(ctx, "   ", 3, Filters{})
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = f.searcher.Search(ctx, "average price", 0, Filters{})
	assert.ErrorIs(t, err, ErrInvalidLimit)

	_, err = f.searcher.Search(ctx, "average price", 3, Filters{MinQuality: 2})
	assert.ErrorIs(t, err, ErrInvalidMinQuality)
}

func TestNewSearcherRequiredArguments(t *testing.T) {
	entryRepo, _, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	handle := index.NewHandle(index.NewFlat(4, mock.DefaultModelID))
	queryCache := cache.NewQueryCache()
	provider := mock.NewMockProvider()

	_, err = NewSearcher(nil, handle, queryCache, provider)
	assert.ErrorIs(t, err, ErrEntryRepositoryRequired)
	_, err = NewSearcher(entryRepo, nil, queryCache, provider)
	assert.ErrorIs(t, err, ErrIndexRequired)
	_, err = NewSearcher(entryRepo, handle, nil, provider)
	assert.ErrorIs(t, err, ErrCacheRequired)
	_, err = NewSearcher(entryRepo, handle, queryCache, nil)
	assert.ErrorIs(t, err, ErrAIProviderRequired)
}
