package storage

import (
	"context"

	"github.com/finvoc/termbase/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// EntryRepository provides operations for managing knowledge entries.
//
// The repository is the source of truth for entry content. The vector index
// is a derived projection rebuilt from it, never the other way around.
type EntryRepository interface {
	Repository

	// PutEntries upserts one or more entries, keyed by content-derived ID.
	// For entries with ID=0, derives the ID from the canonical term.
	// Sets InsertedAt on first write and UpdatedAt on every write.
	// A content change (term, aliases, summary, definition, category) bumps
	// Version and clears the stored vector, forcing a re-embed before the
	// entry reappears in search.
	// Returns the entries with IDs and timestamps populated.
	PutEntries(ctx context.Context, entries ...*core.Entry) ([]*core.Entry, error)

	// GetEntry retrieves a single entry by ID.
	// Returns ErrNotFound if the entry doesn't exist.
	GetEntry(ctx context.Context, id core.ID) (*core.Entry, error)

	// GetEntries retrieves multiple entries by their IDs.
	// Returns only the entries that exist (no error for missing entries).
	GetEntries(ctx context.Context, ids ...core.ID) ([]*core.Entry, error)

	// FindEntryByTerm finds an entry by its canonical term.
	// Returns ErrNotFound if no matching entry exists.
	FindEntryByTerm(ctx context.Context, term string) (*core.Entry, error)

	// GetActiveEntries streams active entries in ID order, starting strictly
	// after afterID, up to limit. Used by the index builder to batch through
	// the store; pass the last returned ID to fetch the next page.
	GetActiveEntries(ctx context.Context, afterID core.ID, limit int) ([]*core.Entry, error)

	// CountActiveEntries returns the number of active entries.
	CountActiveEntries(ctx context.Context) (int, error)

	// DeactivateEntries marks entries inactive. Entries are never deleted:
	// deactivation preserves relationship-graph stability, and the isActive
	// filter hides them from search.
	// Returns ErrNotFound if any entry doesn't exist.
	DeactivateEntries(ctx context.Context, ids ...core.ID) error

	// BumpUsage increments UseCount and refreshes LastUsedAt for the given
	// entries. Missing entries are skipped without error; usage accounting
	// is best-effort.
	BumpUsage(ctx context.Context, ids ...core.ID) error
}

// EdgeRepository provides operations for managing relationship edges.
type EdgeRepository interface {
	Repository

	// PutEdges upserts edges. Each edge is validated (no self-loops, known
	// type, strength in [0,1]). The (source, target, type) triple is the
	// storage key, so duplicate triples collapse to the latest write.
	PutEdges(ctx context.Context, edges ...*core.Edge) error

	// DeleteEdge removes a single edge by its identifying triple.
	// Returns ErrNotFound if the edge doesn't exist.
	DeleteEdge(ctx context.Context, source, target core.ID, edgeType core.EdgeType) error

	// GetEdgesFrom retrieves all edges whose source is the given entry.
	GetEdgesFrom(ctx context.Context, id core.ID) ([]*core.Edge, error)

	// GetEdgesTo retrieves all edges whose target is the given entry.
	GetEdgesTo(ctx context.Context, id core.ID) ([]*core.Edge, error)
}
