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


package search

import (
	"context"
	"log/slog"
	"math"
	"runtime"
	"slices"
	"strconv"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/finvoc/termbase/ai"
	"github.com/finvoc/termbase/cache"
	"github.com/finvoc/termbase/core"
	"github.com/finvoc/termbase/index"
	"github.com/finvoc/termbase/storage"
)

const (
	// DefaultScoreScale controls how fast relevance decays with cosine
	// distance: score = exp(-distance/scale).
	DefaultScoreScale = 0.35

	// DefaultCacheTTL is how long a cached result set stays valid.
	DefaultCacheTTL = 5 * time.Minute

	// defaultOversample is how many index candidates are fetched per
	// requested result, leaving headroom for post-scan filtering.
	defaultOversample = 2
)

// Searcher answers semantic queries over the entry store: embed the query,
// scan the current index snapshot, filter, score, and cache.
type Searcher struct {
	entries    storage.EntryRepository
	handle     *index.Handle
	queryCache *cache.QueryCache
	embedder   ai.Embedder
	usagePool  *ants.Pool
	logger     *slog.Logger
	scoreScale float64
	oversample int
	cacheTTL   time.Duration
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithScoreScale sets the distance-to-score decay constant.
func WithScoreScale(scale float64) Option {
	return func(s *Searcher) error {
		if scale > 0 {
			s.scoreScale = scale
		}
		return nil
	}
}

// WithOversample sets how many index candidates are fetched per requested
// result. Minimum is 1.
func WithOversample(factor int) Option {
	return func(s *Searcher) error {
		if factor < 1 {
			factor = 1
		}
		s.oversample = factor
		return nil
	}
}

// WithCacheTTL sets the lifetime of cached result sets.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Searcher) error {
		s.cacheTTL = ttl
		return nil
	}
}

// WithUsagePoolSize sets the worker pool size for async usage accounting.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithUsagePoolSize(size int) Option {
	return func(s *Searcher) error {
		if size < 1 {
			size = 1
		}
		if s.usagePool != nil {
			s.usagePool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		s.usagePool = pool
		return nil
	}
}

// NewSearcher creates a new searcher over the given store, index handle and
// query cache.
func NewSearcher(
	entries storage.EntryRepository,
	handle *index.Handle,
	queryCache *cache.QueryCache,
	provider ai.AIProvider,
	opts ...Option,
) (*Searcher, error) {
	if entries == nil {
		return nil, ErrEntryRepositoryRequired
	}
	if handle == nil {
		return nil, ErrIndexRequired
	}
	if queryCache == nil {
		return nil, ErrCacheRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	s := &Searcher{
		entries:    entries,
		handle:     handle,
		queryCache: queryCache,
		embedder:   provider.Embedder(),
		usagePool:  pool,
		logger:     slog.Default(),
		scoreScale: DefaultScoreScale,
		oversample: defaultOversample,
		cacheTTL:   DefaultCacheTTL,
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			s.Release()
			return nil, err
		}
	}

	return s, nil
}

// Release releases the usage-accounting worker pool.
// The searcher should not be used after calling Release.
func (s *Searcher) Release() {
	if s.usagePool != nil {
		s.usagePool.Release()
	}
}

// Search returns up to limit entries relevant to the query, best first.
func (s *Searcher) Search(ctx context.Context, query string, limit int, filters Filters) ([]*core.RankedResult, error) {
	return s.SearchWithMonitor(ctx, query, limit, filters, nil)
}

// SearchWithMonitor is Search with per-stage callbacks.
//
// The flow is: cache lookup, query embedding, index snapshot scan with
// oversampling, entry filtering, scoring, cache fill. A query whose
// embedding cannot be computed fails rather than degrading to unrelated
// results.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, limit int, filters Filters, monitor SearchMonitor) ([]*core.RankedResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	normalized := cache.NormalizeQuery(query)
	if normalized == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	monitor.Start(normalized)

	// The scale participates in the key because it changes scores, and
	// searchers with different scales share the cache.
	key := cache.Key("search", normalized, strconv.Itoa(limit), filters.cacheKeyPart(),
		strconv.FormatFloat(s.scoreScale, 'g', -1, 64))
	if results, ok := s.queryCache.Get(key); ok {
		monitor.CacheHit(key)
		monitor.Finish(results)
		return results, nil
	}

	snapshot := s.handle.Snapshot()
	if snapshot == nil || snapshot.Len() == 0 {
		monitor.Finish(nil)
		return []*core.RankedResult{}, nil
	}

	vector, err := s.embedder.EmbedText(ctx, normalized)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", normalized, "err", err)
		return nil, err
	}
	monitor.AfterEmbedding(len(vector))

	matches, err := snapshot.Search(vector, limit*s.oversample)
	if err != nil {
		return nil, err
	}

	ids := make([]core.ID, 0, len(matches))
	rawIds := make([]uint64, 0, len(matches))
	for _, match := range matches {
		ids = append(ids, match.EntryID)
		rawIds = append(rawIds, uint64(match.EntryID))
	}
	monitor.AfterIndexScan(rawIds)

	records, err := s.entries.GetEntries(ctx, ids...)
	if err != nil {
		s.logger.Error("error retrieving entries", "entryCount", len(ids), "err", err)
		return nil, err
	}
	byID := make(map[core.ID]*core.Entry, len(records))
	for _, entry := range records {
		byID[entry.Id] = entry
	}

	results := make([]*core.RankedResult, 0, len(matches))
	dropped := 0
	for _, match := range matches {
		entry, ok := byID[match.EntryID]
		if !ok || !entry.IsActive || !entry.HasCurrentVector(snapshot.ModelID()) || !filters.Match(entry) {
			dropped++
			continue
		}
		results = append(results, &core.RankedResult{
			EntryID:    entry.Id,
			Term:       entry.Term,
			Summary:    entry.Summary,
			Definition: entry.Definition,
			Category:   entry.Category,
			Score:      float32(math.Exp(-float64(match.Distance) / s.scoreScale)),
		})
	}
	monitor.AfterFiltering(len(results), dropped)

	slices.SortFunc(results, func(a, b *core.RankedResult) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		if a.EntryID < b.EntryID {
			return -1
		}
		if a.EntryID > b.EntryID {
			return 1
		}
		return 0
	})
	if len(results) > limit {
		results = results[:limit]
	}

	s.queryCache.Put(key, normalized, results, s.cacheTTL, resultTags(results))
	s.bumpUsageAsync(results)

	monitor.Finish(results)
	return results, nil
}

// resultTags builds the invalidation tags for a cached result set: one tag
// per returned entry and one per distinct category.
func resultTags(results []*core.RankedResult) []string {
	tags := make([]string, 0, len(results)+4)
	seenCategories := map[core.Category]bool{}
	for _, result := range results {
		tags = append(tags, cache.EntryTag(result.EntryID))
		if !seenCategories[result.Category] {
			seenCategories[result.Category] = true
			tags = append(tags, cache.CategoryTag(result.Category))
		}
	}
	return tags
}

// bumpUsageAsync submits usage accounting for returned entries to the worker
// pool. Failures are logged, never surfaced to the caller.
func (s *Searcher) bumpUsageAsync(results []*core.RankedResult) {
	if len(results) == 0 {
		return
	}
	ids := make([]core.ID, len(results))
	for i, result := range results {
		ids[i] = result.EntryID
	}

	err := s.usagePool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.entries.BumpUsage(ctx, ids...); err != nil {
			s.logger.Warn("usage accounting failed", "entryCount", len(ids), "err", err)
		}
	})
	if err != nil {
		s.logger.Warn("could not submit usage accounting task", "err", err)
	}
}
