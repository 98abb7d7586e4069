package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDFromContent(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		a := IDFromContent("limit order")
		b := IDFromContent("limit order")
		assert.Equal(t, a, b)
	})

	t.Run("different content different id", func(t *testing.T) {
		a := IDFromContent("limit order")
		b := IDFromContent("market order")
		assert.NotEqual(t, a, b)
	})

	t.Run("case sensitive", func(t *testing.T) {
		a := IDFromContent("VWAP")
		b := IDFromContent("vwap")
		assert.NotEqual(t, a, b)
	})
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "instrument", CategoryInstrument.String())
	assert.Equal(t, "market_structure", CategoryMarketStructure.String())
	assert.Equal(t, "unknown", Category(99).String())

	for _, cat := range Categories {
		name := cat.String()
		assert.NotEqual(t, "unknown", name)

		parsed, ok := CategoryFromString(name)
		assert.True(t, ok)
		assert.Equal(t, cat, parsed)
	}

	_, ok := CategoryFromString("nonsense")
	assert.False(t, ok)
}

func TestEdgeTypeString(t *testing.T) {
	assert.Equal(t, "synonym", EdgeTypeSynonym.String())
	assert.Equal(t, "unknown", EdgeType(99).String())

	for _, et := range EdgeTypes {
		parsed, ok := EdgeTypeFromString(et.String())
		assert.True(t, ok)
		assert.Equal(t, et, parsed)
	}
}

func TestEntryEmbeddingText(t *testing.T) {
	t.Run("all fields", func(t *testing.T) {
		entry := &Entry{
			Term:       "stop-loss order",
			Aliases:    []string{"stop order", "stop"},
			Summary:    "An order that triggers at a set price.",
			Definition: "An instruction to close a position once price crosses a threshold.",
		}
		text := entry.EmbeddingText()
		assert.Contains(t, text, "stop-loss order")
		assert.Contains(t, text, "stop order, stop")
		assert.Contains(t, text, "triggers at a set price")
		assert.Contains(t, text, "crosses a threshold")
	})

	t.Run("term only", func(t *testing.T) {
		entry := &Entry{Term: "basis"}
		assert.Equal(t, "basis", entry.EmbeddingText())
	})
}

func TestEntryHasCurrentVector(t *testing.T) {
	entry := &Entry{
		Vector:         []float32{0.1, 0.2},
		EmbeddingModel: "model-a",
	}
	assert.True(t, entry.HasCurrentVector("model-a"))
	assert.False(t, entry.HasCurrentVector("model-b"))

	entry.Vector = nil
	assert.False(t, entry.HasCurrentVector("model-a"))
}
