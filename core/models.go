package core

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is derived from the canonical term via content-based hashing, so the
// same term always maps to the same entry identity.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Category classifies an entry within the closed taxonomy of trading
// terminology. Unknown categories are rejected at the boundary.
type Category int

const (
	// CategoryInstrument covers tradable products (futures, options, swaps).
	CategoryInstrument Category = iota + 1
	// CategoryStrategy covers trading strategies and styles.
	CategoryStrategy
	// CategoryIndicator covers technical and statistical indicators.
	CategoryIndicator
	// CategoryRisk covers risk measures and risk-management terms.
	CategoryRisk
	// CategoryMarketStructure covers venues, order types, and microstructure.
	CategoryMarketStructure
	// CategoryExecution covers order handling and execution terms.
	CategoryExecution
	// CategoryRegulation covers regulatory and compliance terms.
	CategoryRegulation
	// CategoryGeneral covers terms that fit no narrower category.
	CategoryGeneral
)

// Categories lists every valid category value.
var Categories = []Category{
	CategoryInstrument,
	CategoryStrategy,
	CategoryIndicator,
	CategoryRisk,
	CategoryMarketStructure,
	CategoryExecution,
	CategoryRegulation,
	CategoryGeneral,
}

var categoryNames = map[Category]string{
	CategoryInstrument:      "instrument",
	CategoryStrategy:        "strategy",
	CategoryIndicator:       "indicator",
	CategoryRisk:            "risk",
	CategoryMarketStructure: "market_structure",
	CategoryExecution:       "execution",
	CategoryRegulation:      "regulation",
	CategoryGeneral:         "general",
}

// String returns the stable label for the category. Labels are used as
// cache-invalidation tags, so they must not change between releases.
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "unknown"
}

// CategoryFromString resolves a category label back to its value.
// Returns CategoryGeneral, false for unknown labels.
func CategoryFromString(name string) (Category, bool) {
	for cat, label := range categoryNames {
		if label == name {
			return cat, true
		}
	}
	return CategoryGeneral, false
}

// EdgeType identifies the kind of relationship between two entries.
type EdgeType int

const (
	// EdgeTypeRelated is a generic topical association.
	EdgeTypeRelated EdgeType = iota + 1
	// EdgeTypeSynonym links terms with equivalent meaning.
	EdgeTypeSynonym
	// EdgeTypeOpposite links terms with contrary meaning.
	EdgeTypeOpposite
	// EdgeTypeComponent links a term to a concept it is part of.
	EdgeTypeComponent
	// EdgeTypePrerequisite links a term to one that should be understood first.
	EdgeTypePrerequisite
)

// EdgeTypes lists every valid edge type value.
var EdgeTypes = []EdgeType{
	EdgeTypeRelated,
	EdgeTypeSynonym,
	EdgeTypeOpposite,
	EdgeTypeComponent,
	EdgeTypePrerequisite,
}

var edgeTypeNames = map[EdgeType]string{
	EdgeTypeRelated:      "related",
	EdgeTypeSynonym:      "synonym",
	EdgeTypeOpposite:     "opposite",
	EdgeTypeComponent:    "component",
	EdgeTypePrerequisite: "prerequisite",
}

// String returns the stable label for the edge type.
func (t EdgeType) String() string {
	if name, ok := edgeTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// EdgeTypeFromString resolves an edge type label back to its value.
func EdgeTypeFromString(name string) (EdgeType, bool) {
	for et, label := range edgeTypeNames {
		if label == name {
			return et, true
		}
	}
	return EdgeTypeRelated, false
}

// Entry represents a single stored knowledge record: a trading term with its
// definition, quality metadata, and (once computed) its embedding vector.
//
// The record store is the source of truth for Entry content. The vector index
// holds only a derived projection and can always be rebuilt from entries.
type Entry struct {
	Id             ID
	Term           string
	Aliases        []string
	Summary        string
	Definition     string
	Category       Category
	QualityScore   float32  // confidence in content quality, in [0,1]
	AssetClasses   []string // e.g. "equities", "fx", "rates", "crypto"
	IsActive       bool
	Vector         []float32 // embedding, nil until computed
	EmbeddingModel string    // model id that produced Vector
	Version        uint64    // bumped on every content edit
	UseCount       uint64
	LastUsedAt     time.Time
	InsertedAt     time.Time
	UpdatedAt      time.Time
}

// EmbeddingText returns the text that is embedded for this entry.
// Aliases are included so that alias queries land near the canonical term.
func (e *Entry) EmbeddingText() string {
	parts := make([]string, 0, 4)
	parts = append(parts, e.Term)
	if len(e.Aliases) > 0 {
		parts = append(parts, strings.Join(e.Aliases, ", "))
	}
	if e.Summary != "" {
		parts = append(parts, e.Summary)
	}
	if e.Definition != "" {
		parts = append(parts, e.Definition)
	}
	return strings.Join(parts, ". ")
}

// HasCurrentVector reports whether the entry carries a vector produced by the
// given model. Entries with stale or missing vectors are excluded from search
// until re-embedded.
func (e *Entry) HasCurrentVector(modelID string) bool {
	return len(e.Vector) > 0 && e.EmbeddingModel == modelID
}

// Edge is a directed, typed, weighted relationship between two entries.
// The (Source, Target, Type) triple is unique; multiple edge types between
// the same pair are allowed.
type Edge struct {
	Source     ID
	Target     ID
	Type       EdgeType
	Strength   float32 // in [0,1]
	Verified   bool
	InsertedAt time.Time
}

// RankedResult is a single search hit, carrying enough entry content for
// display plus the normalized relevance score.
type RankedResult struct {
	EntryID    ID
	Term       string
	Summary    string
	Definition string
	Category   Category
	Score      float32
	Cached     bool
}
