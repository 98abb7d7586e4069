package indexer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/finvoc/termbase/ai/mock"
	"github.com/finvoc/termbase/cache"
	"github.com/finvoc/termbase/core"
	"github.com/finvoc/termbase/index"
	"github.com/finvoc/termbase/storage"
	badgerstore "github.com/finvoc/termbase/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type builderFixture struct {
	builder  *Builder
	embedder *mock.MockEmbedder
	handle   *index.Handle
	cache    *cache.QueryCache
	entries  storage.EntryRepository
}

func newBuilderFixture(t *testing.T, terms ...string) *builderFixture {
	t.Helper()

	entryRepo, _, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	ctx := context.Background()
	for _, term := range terms {
		_, err := entryRepo.PutEntries(ctx, &core.Entry{
			Term:       term,
			Definition: "definition of " + term,
			Category:   core.CategoryGeneral,
			IsActive:   true,
		})
		require.NoError(t, err)
	}

	embedder := mock.NewMockEmbedder()
	handle := index.NewHandle(index.NewFlat(mock.DefaultDimensions, mock.DefaultModelID))
	queryCache := cache.NewQueryCache()

	config := DefaultConfig()
	config.BatchSize = 2
	config.RetryDelay = time.Millisecond

	builder, err := NewBuilder(entryRepo, handle, mock.NewMockProviderWithEmbedder(embedder),
		WithConfig(config), WithQueryCache(queryCache))
	require.NoError(t, err)

	return &builderFixture{
		builder:  builder,
		embedder: embedder,
		handle:   handle,
		cache:    queryCache,
		entries:  entryRepo,
	}
}

func TestRebuildFullEmbedsAndPublishes(t *testing.T) {
	f := newBuilderFixture(t, "alpha", "beta", "gamma", "delta", "epsilon")
	ctx := context.Background()

	stats, err := f.builder.RebuildFull(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 5, stats.Embedded)
	assert.Equal(t, 5, stats.Indexed)
	assert.NotEmpty(t, stats.BuildID)

	snapshot := f.handle.Snapshot()
	require.NotNil(t, snapshot)
	assert.Equal(t, 5, snapshot.Len())
	assert.Equal(t, stats.BuildID, snapshot.BuildID())
	assert.Equal(t, mock.DefaultModelID, snapshot.ModelID())

	// Vectors were persisted back to the store.
	entry, err := f.entries.FindEntryByTerm(ctx, "alpha")
	require.NoError(t, err)
	assert.True(t, entry.HasCurrentVector(mock.DefaultModelID))
}

func TestRebuildSkipsCurrentVectors(t *testing.T) {
	f := newBuilderFixture(t, "alpha", "beta")
	ctx := context.Background()

	_, err := f.builder.RebuildFull(ctx)
	require.NoError(t, err)

	stats, err := f.builder.RebuildFull(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Embedded, "current vectors must not be re-embedded")
	assert.Equal(t, 2, stats.Indexed)
}

func TestRebuildReembedsStaleModel(t *testing.T) {
	f := newBuilderFixture(t)
	ctx := context.Background()

	staleVector := make([]float32, mock.DefaultDimensions)
	staleVector[0] = 1
	_, err := f.entries.PutEntries(ctx, &core.Entry{
		Term:           "carry trade",
		Definition:     "funding in a low-yield currency to invest in a higher-yield one",
		Category:       core.CategoryStrategy,
		IsActive:       true,
		Vector:         staleVector,
		EmbeddingModel: "retired-model",
	})
	require.NoError(t, err)

	stats, err := f.builder.RebuildFull(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Embedded)
	assert.Equal(t, 1, stats.Indexed)

	entry, err := f.entries.FindEntryByTerm(ctx, "carry trade")
	require.NoError(t, err)
	assert.Equal(t, mock.DefaultModelID, entry.EmbeddingModel)
}

func TestRebuildPurgesCache(t *testing.T) {
	f := newBuilderFixture(t, "alpha")
	ctx := context.Background()

	f.cache.Put(cache.Key("q"), "q", []*core.RankedResult{{EntryID: 1, Term: "alpha"}}, time.Minute, nil)
	require.Equal(t, 1, f.cache.Len())

	_, err := f.builder.RebuildFull(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, f.cache.Len(), "rebuild must purge cached results")
}

func TestRebuildFailureKeepsOldIndex(t *testing.T) {
	f := newBuilderFixture(t, "alpha")
	ctx := context.Background()

	before := f.handle.Snapshot()
	embedFailure := errors.New("embedding backend down")
	f.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, embedFailure
	}

	_, err := f.builder.RebuildFull(ctx)
	require.ErrorIs(t, err, embedFailure)

	after := f.handle.Snapshot()
	assert.Equal(t, before.BuildID(), after.BuildID(), "failed rebuild must not publish")
}

func TestRebuildRetriesTransientFailures(t *testing.T) {
	f := newBuilderFixture(t, "alpha")
	ctx := context.Background()

	attempts := 0
	f.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("transient")
		}
		vectors := make([][]float32, len(texts))
		for i := range texts {
			vector := make([]float32, mock.DefaultDimensions)
			vector[0] = 1
			vectors[i] = vector
		}
		return vectors, nil
	}

	stats, err := f.builder.RebuildFull(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Embedded)
	assert.Equal(t, 3, attempts)
}

func TestUpsertOne(t *testing.T) {
	f := newBuilderFixture(t)
	ctx := context.Background()

	stored, err := f.entries.PutEntries(ctx, &core.Entry{
		Term:       "dark pool",
		Definition: "a trading venue without pre-trade transparency",
		Category:   core.CategoryMarketStructure,
		IsActive:   true,
	})
	require.NoError(t, err)
	id := stored[0].Id

	f.cache.Put(cache.Key("q"), "q", []*core.RankedResult{{EntryID: id}}, time.Minute, []string{cache.EntryTag(id)})

	require.NoError(t, f.builder.UpsertOne(ctx, id))

	snapshot := f.handle.Snapshot()
	assert.True(t, snapshot.Contains(id))
	assert.Equal(t, 0, f.cache.Len(), "upsert must invalidate cached results naming the entry")

	entry, err := f.entries.GetEntry(ctx, id)
	require.NoError(t, err)
	assert.True(t, entry.HasCurrentVector(mock.DefaultModelID))
}

func TestUpsertOneInactive(t *testing.T) {
	f := newBuilderFixture(t)
	ctx := context.Background()

	stored, err := f.entries.PutEntries(ctx, &core.Entry{
		Term:       "open outcry",
		Definition: "floor trading by voice and hand signals",
		Category:   core.CategoryExecution,
		IsActive:   false,
	})
	require.NoError(t, err)

	require.NoError(t, f.builder.UpsertOne(ctx, stored[0].Id))
	assert.False(t, f.handle.Snapshot().Contains(stored[0].Id))
}

func TestUpsertOneUnknownEntry(t *testing.T) {
	f := newBuilderFixture(t)

	err := f.builder.UpsertOne(context.Background(), core.ID(777))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestNewBuilderRequiredArguments(t *testing.T) {
	entryRepo, _, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	handle := index.NewHandle(index.NewFlat(mock.DefaultDimensions, mock.DefaultModelID))
	provider := mock.NewMockProvider()

	_, err = NewBuilder(nil, handle, provider)
	assert.ErrorIs(t, err, ErrEntryRepositoryRequired)
	_, err = NewBuilder(entryRepo, nil, provider)
	assert.ErrorIs(t, err, ErrIndexRequired)
	_, err = NewBuilder(entryRepo, handle, nil)
	assert.ErrorIs(t, err, ErrAIProviderRequired)
}
