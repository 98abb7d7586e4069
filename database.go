// Copyright 2025 Finvoc Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package termbase

import (
	"log/slog"

	"github.com/finvoc/termbase/ai"
	"github.com/finvoc/termbase/ai/openai"
	"github.com/finvoc/termbase/cache"
	"github.com/finvoc/termbase/graph"
	"github.com/finvoc/termbase/index"
	"github.com/finvoc/termbase/indexer"
	"github.com/finvoc/termbase/search"
	"github.com/finvoc/termbase/storage"
	"github.com/finvoc/termbase/storage/badger"
)

// Database wires the engine together: the badger-backed record store, the
// embedding provider, the published vector index, the query cache and the
// relationship graph.
type Database struct {
	backend    *badger.Backend
	entryRepo  storage.EntryRepository
	edgeRepo   storage.EdgeRepository
	provider   ai.AIProvider
	handle     *index.Handle
	queryCache *cache.QueryCache
	relations  *graph.Graph
	logger     *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	provider ai.AIProvider
	inMemory bool
}

// WithAIConfig sets the embedding provider configuration.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithProvider injects a pre-built AI provider instead of constructing the
// OpenAI-compatible one. Used by tests and embedders with custom transports.
func WithProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithInMemoryStorage keeps the record store in memory. Used by tests.
func WithInMemoryStorage() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// NewDatabase opens or creates a database at filePath.
// The published index starts empty; load a saved one with LoadIndex or build
// one with NewIndexBuilder.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	entryRepo, err := badger.NewEntryRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	edgeRepo, err := badger.NewEdgeRepository(backend)
	if err != nil {
		entryRepo.Close()
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			edgeRepo.Close()
			entryRepo.Close()
			backend.Close()
			return nil, err
		}
	}

	embedder := provider.Embedder()

	return &Database{
		backend:    backend,
		entryRepo:  entryRepo,
		edgeRepo:   edgeRepo,
		provider:   provider,
		handle:     index.NewHandle(index.NewFlat(embedder.Dimensions(), embedder.ModelID())),
		queryCache: cache.NewQueryCache(),
		relations:  graph.NewGraph(edgeRepo),
		logger:     slog.Default(),
	}, nil
}

// Close shuts the database down.
func (db *Database) Close() error {
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	if err := db.edgeRepo.Close(); err != nil {
		db.logger.Error("error closing edge repository", "err", err)
		return err
	}
	if err := db.entryRepo.Close(); err != nil {
		db.logger.Error("error closing entry repository", "err", err)
		return err
	}

	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) EntryRepository() storage.EntryRepository {
	return db.entryRepo
}

func (db *Database) EdgeRepository() storage.EdgeRepository {
	return db.edgeRepo
}

// Graph returns the relationship graph over stored edges.
func (db *Database) Graph() *graph.Graph {
	return db.relations
}

// Cache returns the shared query cache.
func (db *Database) Cache() *cache.QueryCache {
	return db.queryCache
}

// Index returns the handle holding the currently published index.
func (db *Database) Index() *index.Handle {
	return db.handle
}

// NewSearcher creates a searcher over the database's store, index and cache.
func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(db.entryRepo, db.handle, db.queryCache, db.provider, opts...)
}

// NewIndexBuilder creates an index builder bound to the database's store,
// index handle and cache.
func (db *Database) NewIndexBuilder(opts ...indexer.Option) (*indexer.Builder, error) {
	opts = append([]indexer.Option{indexer.WithQueryCache(db.queryCache)}, opts...)
	return indexer.NewBuilder(db.entryRepo, db.handle, db.provider, opts...)
}

// InvalidateCache drops every cached result set carrying the given tag and
// returns the number removed.
func (db *Database) InvalidateCache(tag string) int {
	return db.queryCache.Invalidate(tag)
}

// SaveIndex persists the currently published index to dir as an atomic file
// pair.
func (db *Database) SaveIndex(dir string) error {
	return db.handle.Snapshot().Save(dir)
}

// LoadIndex restores a saved index from dir and publishes it. The saved
// index must have been produced by the configured embedding model.
func (db *Database) LoadIndex(dir string) error {
	flat, err := index.Load(dir, db.provider.Embedder().ModelID())
	if err != nil {
		return err
	}
	db.handle.Swap(flat)
	db.queryCache.Purge()
	return nil
}
