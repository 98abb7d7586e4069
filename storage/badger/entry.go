package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/finvoc/termbase/core"
	"github.com/finvoc/termbase/storage"
)

// EntryRepository implements storage.EntryRepository for BadgerDB.
type EntryRepository struct {
	backend *Backend
}

var _ storage.EntryRepository = (*EntryRepository)(nil)

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(backend *Backend) (*EntryRepository, error) {
	return &EntryRepository{
		backend: backend,
	}, nil
}

// Close releases resources. EntryRepository has no resources to release.
func (r *EntryRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *EntryRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// PutEntries upserts entries keyed by content-derived ID.
// A content change bumps Version and clears the stored vector so the entry
// stays out of search until re-embedded.
func (r *EntryRepository) PutEntries(ctx context.Context, entries ...*core.Entry) ([]*core.Entry, error) {
	for _, entry := range entries {
		if err := core.ValidateEntry(entry); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, entry := range entries {
			if entry.Id == 0 {
				entry.Id = core.IDFromContent(entry.Term)
			}

			key := makeEntryKey(entry.Id)
			old, err := readEntry(tx, key)
			if err != nil {
				return err
			}

			if old == nil {
				entry.Version = 1
				entry.InsertedAt = now
			} else {
				entry.InsertedAt = old.InsertedAt
				entry.UseCount = old.UseCount
				entry.LastUsedAt = old.LastUsedAt

				if contentChanged(old, entry) {
					entry.Version = old.Version + 1
					entry.Vector = nil
					entry.EmbeddingModel = ""
				} else {
					entry.Version = old.Version
					if len(entry.Vector) == 0 {
						entry.Vector = old.Vector
						entry.EmbeddingModel = old.EmbeddingModel
					}
				}

				if old.Term != entry.Term {
					if err := tx.Delete(makeTermKey(old.Term)); err != nil {
						return err
					}
				}
			}
			entry.UpdatedAt = now

			if err := tx.Set(key, storage.MarshalEntry(entry)); err != nil {
				return err
			}
			if err := tx.Set(makeTermKey(entry.Term), storage.MarshalID(entry.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return entries, nil
}

// GetEntry retrieves a single entry by ID.
func (r *EntryRepository) GetEntry(ctx context.Context, id core.ID) (*core.Entry, error) {
	var result *core.Entry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readEntry(tx, makeEntryKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetEntries retrieves multiple entries by their IDs.
// Missing entries are silently skipped.
func (r *EntryRepository) GetEntries(ctx context.Context, ids ...core.ID) ([]*core.Entry, error) {
	var result []*core.Entry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			entry, err := readEntry(tx, makeEntryKey(id))
			if err != nil {
				return err
			}
			if entry != nil {
				result = append(result, entry)
			}
		}
		return nil
	}, false)
	return result, err
}

// FindEntryByTerm finds an entry by its canonical term.
func (r *EntryRepository) FindEntryByTerm(ctx context.Context, term string) (*core.Entry, error) {
	var result *core.Entry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeTermKey(term))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		var entryID core.ID
		err = item.Value(func(val []byte) error {
			entryID, err = storage.UnmarshalID(val)
			return err
		})
		if err != nil {
			return err
		}

		result, err = readEntry(tx, makeEntryKey(entryID))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetActiveEntries returns up to limit active entries in ID order, starting
// strictly after afterID.
func (r *EntryRepository) GetActiveEntries(ctx context.Context, afterID core.ID, limit int) ([]*core.Entry, error) {
	var results []*core.Entry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		prefix := []byte(entryRecordPrefix + ":")
		seekKey := makeEntryKey(afterID)
		for iter.Seek(seekKey); iter.Valid(); iter.Next() {
			item := iter.Item()
			key := item.Key()
			if !hasPrefix(key, prefix) {
				break
			}
			// Seek lands on afterID itself when it exists; strictly after.
			if string(key) == string(seekKey) {
				continue
			}

			var entry *core.Entry
			err := item.Value(func(val []byte) error {
				var err error
				entry, err = storage.UnmarshalEntry(val)
				return err
			})
			if err != nil {
				return err
			}
			if entry == nil || !entry.IsActive {
				continue
			}

			results = append(results, entry)
			if limit > 0 && len(results) >= limit {
				break
			}
		}
		return nil
	}, false)
	return results, err
}

// CountActiveEntries returns the number of active entries.
func (r *EntryRepository) CountActiveEntries(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		prefix := []byte(entryRecordPrefix + ":")
		for iter.Seek(prefix); iter.Valid(); iter.Next() {
			item := iter.Item()
			if !hasPrefix(item.Key(), prefix) {
				break
			}

			err := item.Value(func(val []byte) error {
				entry, err := storage.UnmarshalEntry(val)
				if err != nil {
					return err
				}
				if entry.IsActive {
					count++
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	return count, err
}

// DeactivateEntries marks entries inactive. Entries are never deleted.
func (r *EntryRepository) DeactivateEntries(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, id := range ids {
			key := makeEntryKey(id)
			entry, err := readEntry(tx, key)
			if err != nil {
				return err
			}
			if entry == nil {
				return storage.ErrNotFound
			}
			if !entry.IsActive {
				continue
			}

			entry.IsActive = false
			entry.UpdatedAt = now
			if err := tx.Set(key, storage.MarshalEntry(entry)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// BumpUsage increments usage counters. Missing entries are skipped.
func (r *EntryRepository) BumpUsage(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, id := range ids {
			key := makeEntryKey(id)
			entry, err := readEntry(tx, key)
			if err != nil {
				return err
			}
			if entry == nil {
				continue
			}

			entry.UseCount++
			entry.LastUsedAt = now
			if err := tx.Set(key, storage.MarshalEntry(entry)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// contentChanged reports whether the searchable content of an entry differs.
// Vector and usage fields are deliberately excluded.
func contentChanged(old, updated *core.Entry) bool {
	return old.Term != updated.Term ||
		!slices.Equal(old.Aliases, updated.Aliases) ||
		old.Summary != updated.Summary ||
		old.Definition != updated.Definition ||
		old.Category != updated.Category
}

// hasPrefix checks if a byte slice has a given prefix
func hasPrefix(s, prefix []byte) bool {
	return len(s) >= len(prefix) && string(s[:len(prefix)]) == string(prefix)
}

// readEntry reads an entry from the transaction.
func readEntry(tx *badger.Txn, key []byte) (*core.Entry, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var entry *core.Entry
	err = item.Value(func(val []byte) error {
		var err error
		entry, err = storage.UnmarshalEntry(val)
		return err
	})
	return entry, err
}
