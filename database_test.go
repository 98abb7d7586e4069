package termbase

import (
	"context"
	"testing"

	"github.com/finvoc/termbase/ai/mock"
	"github.com/finvoc/termbase/cache"
	"github.com/finvoc/termbase/core"
	"github.com/finvoc/termbase/graph"
	"github.com/finvoc/termbase/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase("", WithInMemoryStorage(), WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedEntries(t *testing.T, db *Database, terms ...string) map[string]core.ID {
	t.Helper()
	ids := map[string]core.ID{}
	ctx := context.Background()
	for _, term := range terms {
		stored, err := db.EntryRepository().PutEntries(ctx, &core.Entry{
			Term:         term,
			Definition:   "definition of " + term,
			Category:     core.CategoryGeneral,
			QualityScore: 0.8,
			IsActive:     true,
		})
		require.NoError(t, err)
		ids[term] = stored[0].Id
	}
	return ids
}

func TestDatabaseEndToEnd(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()
	ids := seedEntries(t, db, "limit order", "market order", "iceberg order")

	builder, err := db.NewIndexBuilder()
	require.NoError(t, err)
	stats, err := builder.RebuildFull(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Indexed)

	searcher, err := db.NewSearcher()
	require.NoError(t, err)
	defer searcher.Release()

	results, err := searcher.Search(ctx, "limit order", 3, search.Filters{})
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, result := range results {
		assert.Contains(t, ids, result.Term)
		assert.Greater(t, result.Score, float32(0))
		assert.LessOrEqual(t, result.Score, float32(1))
		if i > 0 {
			assert.GreaterOrEqual(t, results[i-1].Score, result.Score)
		}
	}

	// The same query served again comes from the cache.
	cached, err := searcher.Search(ctx, "limit order", 3, search.Filters{})
	require.NoError(t, err)
	require.Len(t, cached, 3)
	assert.True(t, cached[0].Cached)
}

func TestDatabaseGraph(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()
	ids := seedEntries(t, db, "margin", "leverage")

	err := db.EdgeRepository().PutEdges(ctx, &core.Edge{
		Source:   ids["margin"],
		Target:   ids["leverage"],
		Type:     core.EdgeTypeRelated,
		Strength: 0.9,
	})
	require.NoError(t, err)

	relations, err := db.Graph().RelatedTo(ctx, ids["margin"], graph.RelatedOptions{MaxDepth: 1})
	require.NoError(t, err)
	require.Len(t, relations, 1)
	assert.Equal(t, ids["leverage"], relations[0].EntryID)
}

func TestDatabaseInvalidateCache(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()
	ids := seedEntries(t, db, "basis", "spread")

	builder, err := db.NewIndexBuilder()
	require.NoError(t, err)
	_, err = builder.RebuildFull(ctx)
	require.NoError(t, err)

	searcher, err := db.NewSearcher()
	require.NoError(t, err)
	defer searcher.Release()

	_, err = searcher.Search(ctx, "basis", 2, search.Filters{})
	require.NoError(t, err)
	require.NotZero(t, db.Cache().Len())

	removed := db.InvalidateCache(cache.EntryTag(ids["basis"]))
	assert.Positive(t, removed)
}

func TestDatabaseSaveAndLoadIndex(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()
	seedEntries(t, db, "vwap", "twap")

	builder, err := db.NewIndexBuilder()
	require.NoError(t, err)
	_, err = builder.RebuildFull(ctx)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, db.SaveIndex(dir))

	savedBuildID := db.Index().Snapshot().BuildID()

	// A second database restores the same published index.
	other := newTestDatabase(t)
	require.NoError(t, other.LoadIndex(dir))
	assert.Equal(t, savedBuildID, other.Index().Snapshot().BuildID())
	assert.Equal(t, 2, other.Index().Snapshot().Len())
}
