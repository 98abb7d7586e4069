package graph

import (
	"context"
	"testing"

	"github.com/finvoc/termbase/core"
	badgerstore "github.com/finvoc/termbase/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTestGraph seeds:
//
//	a --related(0.9)--> b
//	a --related(0.4)--> c
//	b --prerequisite(0.7)--> d
//	c --synonym(0.8, verified)--> d
//	e --related(0.6)--> a   (reverse edge into a)
func buildTestGraph(t *testing.T) (*Graph, map[string]core.ID, func()) {
	t.Helper()

	_, edgeRepo, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)

	ids := map[string]core.ID{
		"a": core.IDFromContent("a"),
		"b": core.IDFromContent("b"),
		"c": core.IDFromContent("c"),
		"d": core.IDFromContent("d"),
		"e": core.IDFromContent("e"),
	}

	ctx := context.Background()
	err = edgeRepo.PutEdges(ctx,
		&core.Edge{Source: ids["a"], Target: ids["b"], Type: core.EdgeTypeRelated, Strength: 0.9},
		&core.Edge{Source: ids["a"], Target: ids["c"], Type: core.EdgeTypeRelated, Strength: 0.4},
		&core.Edge{Source: ids["b"], Target: ids["d"], Type: core.EdgeTypePrerequisite, Strength: 0.7},
		&core.Edge{Source: ids["c"], Target: ids["d"], Type: core.EdgeTypeSynonym, Strength: 0.8, Verified: true},
		&core.Edge{Source: ids["e"], Target: ids["a"], Type: core.EdgeTypeRelated, Strength: 0.6},
	)
	require.NoError(t, err)

	return NewGraph(edgeRepo), ids, func() { backend.Close() }
}

func TestRelatedToSingleHop(t *testing.T) {
	g, ids, cleanup := buildTestGraph(t)
	defer cleanup()

	relations, err := g.RelatedTo(context.Background(), ids["a"], RelatedOptions{MaxDepth: 1})
	require.NoError(t, err)
	require.Len(t, relations, 2)

	// Strength descending within the level.
	assert.Equal(t, ids["b"], relations[0].EntryID)
	assert.Equal(t, ids["c"], relations[1].EntryID)
	assert.Equal(t, 1, relations[0].Depth)
	assert.Equal(t, 1, relations[1].Depth)
}

func TestRelatedToTwoHops(t *testing.T) {
	g, ids, cleanup := buildTestGraph(t)
	defer cleanup()

	relations, err := g.RelatedTo(context.Background(), ids["a"], RelatedOptions{MaxDepth: 2})
	require.NoError(t, err)
	require.Len(t, relations, 3)

	assert.Equal(t, ids["b"], relations[0].EntryID)
	assert.Equal(t, ids["c"], relations[1].EntryID)
	assert.Equal(t, ids["d"], relations[2].EntryID)
	assert.Equal(t, 2, relations[2].Depth)
}

func TestRelatedToDedupKeepsShallowest(t *testing.T) {
	g, ids, cleanup := buildTestGraph(t)
	defer cleanup()

	// d is reachable via both b and c at depth 2; it must appear once.
	relations, err := g.RelatedTo(context.Background(), ids["a"], RelatedOptions{MaxDepth: 3})
	require.NoError(t, err)

	count := 0
	for _, relation := range relations {
		if relation.EntryID == ids["d"] {
			count++
			assert.Equal(t, 2, relation.Depth)
		}
		assert.NotEqual(t, ids["a"], relation.EntryID, "root must not appear in results")
	}
	assert.Equal(t, 1, count)
}

func TestRelatedToTypeFilter(t *testing.T) {
	g, ids, cleanup := buildTestGraph(t)
	defer cleanup()

	relations, err := g.RelatedTo(context.Background(), ids["b"], RelatedOptions{
		MaxDepth: 1,
		Types:    []core.EdgeType{core.EdgeTypeSynonym},
	})
	require.NoError(t, err)
	assert.Empty(t, relations, "b has no synonym edges")

	relations, err = g.RelatedTo(context.Background(), ids["c"], RelatedOptions{
		MaxDepth: 1,
		Types:    []core.EdgeType{core.EdgeTypeSynonym},
	})
	require.NoError(t, err)
	require.Len(t, relations, 1)
	assert.Equal(t, ids["d"], relations[0].EntryID)
}

func TestRelatedToOnlyVerified(t *testing.T) {
	g, ids, cleanup := buildTestGraph(t)
	defer cleanup()

	relations, err := g.RelatedTo(context.Background(), ids["c"], RelatedOptions{
		MaxDepth:     1,
		OnlyVerified: true,
	})
	require.NoError(t, err)
	require.Len(t, relations, 1)
	assert.Equal(t, ids["d"], relations[0].EntryID)

	relations, err = g.RelatedTo(context.Background(), ids["a"], RelatedOptions{
		MaxDepth:     1,
		OnlyVerified: true,
	})
	require.NoError(t, err)
	assert.Empty(t, relations)
}

func TestRelatedToIncludeReverse(t *testing.T) {
	g, ids, cleanup := buildTestGraph(t)
	defer cleanup()

	relations, err := g.RelatedTo(context.Background(), ids["a"], RelatedOptions{
		MaxDepth:       1,
		IncludeReverse: true,
	})
	require.NoError(t, err)
	require.Len(t, relations, 3)

	found := false
	for _, relation := range relations {
		if relation.EntryID == ids["e"] {
			found = true
		}
	}
	assert.True(t, found, "reverse edge from e should be followed")
}

func TestRelatedToZeroDepth(t *testing.T) {
	g, ids, cleanup := buildTestGraph(t)
	defer cleanup()

	relations, err := g.RelatedTo(context.Background(), ids["a"], RelatedOptions{MaxDepth: 0})
	require.NoError(t, err)
	assert.Empty(t, relations)
}

func TestRelatedToUnknownEntry(t *testing.T) {
	g, _, cleanup := buildTestGraph(t)
	defer cleanup()

	relations, err := g.RelatedTo(context.Background(), core.IDFromContent("nowhere"), RelatedOptions{MaxDepth: 2})
	require.NoError(t, err)
	assert.Empty(t, relations)
}
