package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/finvoc/termbase/core"
	"github.com/finvoc/termbase/storage"
)

// EdgeRepository implements storage.EdgeRepository for BadgerDB.
//
// Each edge is stored twice, under a forward key (source first) and a
// reverse key (target first), so traversal in either direction is a single
// prefix scan.
type EdgeRepository struct {
	backend *Backend
}

var _ storage.EdgeRepository = (*EdgeRepository)(nil)

// NewEdgeRepository creates a new EdgeRepository.
func NewEdgeRepository(backend *Backend) (*EdgeRepository, error) {
	return &EdgeRepository{
		backend: backend,
	}, nil
}

// Close releases resources. EdgeRepository has no resources to release.
func (r *EdgeRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *EdgeRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// PutEdges validates and upserts edges keyed by (source, target, type).
func (r *EdgeRepository) PutEdges(ctx context.Context, edges ...*core.Edge) error {
	for _, edge := range edges {
		if err := core.ValidateEdge(edge); err != nil {
			return err
		}
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, edge := range edges {
			if edge.InsertedAt.IsZero() {
				edge.InsertedAt = now
			}

			value := storage.MarshalEdge(edge)
			if err := tx.Set(makeEdgeFwdKey(edge.Source, edge.Target, edge.Type), value); err != nil {
				return err
			}
			if err := tx.Set(makeEdgeRevKey(edge.Source, edge.Target, edge.Type), value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// DeleteEdge removes an edge by its identifying triple.
func (r *EdgeRepository) DeleteEdge(ctx context.Context, source, target core.ID, edgeType core.EdgeType) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		fwdKey := makeEdgeFwdKey(source, target, edgeType)
		if _, err := tx.Get(fwdKey); err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		if err := tx.Delete(fwdKey); err != nil {
			return err
		}
		if err := tx.Delete(makeEdgeRevKey(source, target, edgeType)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetEdgesFrom retrieves all edges whose source is the given entry.
func (r *EdgeRepository) GetEdgesFrom(ctx context.Context, id core.ID) ([]*core.Edge, error) {
	return r.scanEdges(makePartialEdgeKey(edgeFwdPrefix, id))
}

// GetEdgesTo retrieves all edges whose target is the given entry.
func (r *EdgeRepository) GetEdgesTo(ctx context.Context, id core.ID) ([]*core.Edge, error) {
	return r.scanEdges(makePartialEdgeKey(edgeRevPrefix, id))
}

func (r *EdgeRepository) scanEdges(prefix []byte) ([]*core.Edge, error) {
	var results []*core.Edge
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var edge *core.Edge
			err := iter.Item().Value(func(val []byte) error {
				var err error
				edge, err = storage.UnmarshalEdge(val)
				return err
			})
			if err != nil {
				return err
			}
			if edge != nil {
				results = append(results, edge)
			}
		}
		return nil
	}, false)
	return results, err
}
