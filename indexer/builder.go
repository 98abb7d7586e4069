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


package indexer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/finvoc/termbase/ai"
	"github.com/finvoc/termbase/cache"
	"github.com/finvoc/termbase/core"
	"github.com/finvoc/termbase/index"
	"github.com/finvoc/termbase/storage"
)

// Config holds configuration for index builds.
type Config struct {
	// BatchSize is the number of entries fetched and embedded per batch
	BatchSize int

	// ReportInterval is how often to report progress (number of entries)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for a failed embedding call
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// RebuildStats summarizes one full rebuild.
type RebuildStats struct {
	Total    int    // active entries visited
	Embedded int    // entries re-embedded during the build
	Indexed  int    // entries inserted into the new index
	BuildID  string // identity of the published index
	Elapsed  time.Duration
}

// Builder constructs vector indexes from the entry store.
//
// A full rebuild assembles a complete replacement index off to the side and
// publishes it with a single pointer swap, so searches in flight keep their
// consistent snapshot. If any step fails, the previous index stays live.
type Builder struct {
	entries    storage.EntryRepository
	embedder   ai.Embedder
	handle     *index.Handle
	queryCache *cache.QueryCache
	config     *Config
	progress   io.Writer
	logger     *slog.Logger

	// mu serializes rebuilds and single-entry upserts.
	mu sync.Mutex
}

// Option configures a Builder.
type Option func(*Builder) error

// WithConfig replaces the default build configuration.
func WithConfig(config *Config) Option {
	return func(b *Builder) error {
		if config != nil {
			b.config = config
		}
		return nil
	}
}

// WithQueryCache attaches a query cache that is purged after each full
// rebuild and invalidated per entry on upserts.
func WithQueryCache(queryCache *cache.QueryCache) Option {
	return func(b *Builder) error {
		b.queryCache = queryCache
		return nil
	}
}

// WithProgressWriter sets where progress output is written.
// Default is io.Discard.
func WithProgressWriter(writer io.Writer) Option {
	return func(b *Builder) error {
		if writer == nil {
			writer = io.Discard
		}
		b.progress = writer
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

// NewBuilder creates an index builder over the given store and index handle.
func NewBuilder(
	entries storage.EntryRepository,
	handle *index.Handle,
	provider ai.AIProvider,
	opts ...Option,
) (*Builder, error) {
	if entries == nil {
		return nil, ErrEntryRepositoryRequired
	}
	if handle == nil {
		return nil, ErrIndexRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	b := &Builder{
		entries:  entries,
		embedder: provider.Embedder(),
		handle:   handle,
		config:   DefaultConfig(),
		progress: io.Discard,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// RebuildFull re-embeds every active entry whose vector is missing or was
// produced by a different model, assembles a fresh index, and publishes it.
func (b *Builder) RebuildFull(ctx context.Context) (*RebuildStats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	total, err := b.entries.CountActiveEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count active entries: %w", err)
	}

	modelID := b.embedder.ModelID()
	fresh := index.NewFlat(b.embedder.Dimensions(), modelID)
	stats := &RebuildStats{Total: total, BuildID: fresh.BuildID()}

	if total == 0 {
		b.handle.Swap(fresh)
		if b.queryCache != nil {
			b.queryCache.Purge()
		}
		b.logger.Info("published empty index", "buildID", fresh.BuildID())
		return stats, nil
	}

	fmt.Fprintf(b.progress, "Starting rebuild of %d entries (batch size: %d)\n",
		total, b.config.BatchSize)
	tracker := NewProgressTracker(b.progress, total, b.config.ReportInterval)
	tracker.Start()

	processed := 0
	var afterID core.ID
	for {
		page, err := b.entries.GetActiveEntries(ctx, afterID, b.config.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch entries after %d: %w", afterID, err)
		}
		if len(page) == 0 {
			break
		}
		afterID = page[len(page)-1].Id

		embedded, err := b.embedBatch(ctx, page, modelID)
		if err != nil {
			return nil, err
		}
		stats.Embedded += embedded

		records := make([]index.Record, 0, len(page))
		for _, entry := range page {
			if !entry.HasCurrentVector(modelID) {
				continue
			}
			records = append(records, index.Record{EntryID: entry.Id, Vector: entry.Vector})
		}
		if err := fresh.InsertBatch(records); err != nil {
			return nil, fmt.Errorf("failed to index batch: %w", err)
		}
		stats.Indexed += len(records)

		processed += len(page)
		tracker.Update(processed)
	}
	tracker.Finish()
	stats.Elapsed = tracker.Elapsed()

	b.handle.Swap(fresh)
	purged := 0
	if b.queryCache != nil {
		purged = b.queryCache.Purge()
	}

	b.logger.Info("published rebuilt index",
		"buildID", fresh.BuildID(),
		"model", modelID,
		"indexed", stats.Indexed,
		"embedded", stats.Embedded,
		"purgedCacheEntries", purged,
		"elapsed", stats.Elapsed.Round(time.Millisecond))

	return stats, nil
}

// UpsertOne re-embeds a single entry if needed and inserts it into the live
// index without a full rebuild. Cached results naming the entry are
// invalidated.
func (b *Builder) UpsertOne(ctx context.Context, id core.ID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, err := b.entries.GetEntry(ctx, id)
	if err != nil {
		return err
	}

	if b.queryCache != nil {
		defer b.queryCache.Invalidate(cache.EntryTag(id))
	}

	// Inactive entries stay in the index until the next rebuild; search
	// filters them out via the store.
	if !entry.IsActive {
		return nil
	}

	modelID := b.embedder.ModelID()
	if !entry.HasCurrentVector(modelID) {
		if _, err := b.embedBatch(ctx, []*core.Entry{entry}, modelID); err != nil {
			return err
		}
	}

	snapshot := b.handle.Snapshot()
	if snapshot == nil {
		snapshot = index.NewFlat(b.embedder.Dimensions(), modelID)
		b.handle.Swap(snapshot)
	}
	return snapshot.Insert(entry.Id, entry.Vector)
}

// embedBatch embeds every entry in the batch that lacks a current vector and
// persists the refreshed vectors. Returns the number of entries embedded.
func (b *Builder) embedBatch(ctx context.Context, batch []*core.Entry, modelID string) (int, error) {
	stale := make([]*core.Entry, 0, len(batch))
	texts := make([]string, 0, len(batch))
	for _, entry := range batch {
		if entry.HasCurrentVector(modelID) {
			continue
		}
		stale = append(stale, entry)
		texts = append(texts, entry.EmbeddingText())
	}
	if len(stale) == 0 {
		return 0, nil
	}

	var vectors [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var embedErr error
		vectors, embedErr = b.embedder.EmbedTexts(ctx, texts)
		return embedErr
	}, b.config.MaxRetries, b.config.RetryDelay)
	if err != nil {
		return 0, fmt.Errorf("failed to embed %d entries: %w", len(stale), err)
	}
	if len(vectors) != len(stale) {
		return 0, fmt.Errorf("%w: want %d, got %d", ErrEmbeddingCountMismatch, len(stale), len(vectors))
	}

	for i, entry := range stale {
		entry.Vector = vectors[i]
		entry.EmbeddingModel = modelID
	}
	if _, err := b.entries.PutEntries(ctx, stale...); err != nil {
		return 0, fmt.Errorf("failed to persist refreshed vectors: %w", err)
	}
	return len(stale), nil
}
