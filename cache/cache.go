package cache

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/finvoc/termbase/core"
)

const defaultShardCount = 16

// Entry is one cached result set. Entries are immutable once written except
// for the hit metadata, which is updated on every hit. Expiry is absolute
// from creation; hits do not extend it, so staleness is deterministically
// bounded by the TTL chosen at Put time.
type Entry struct {
	Key          string
	Query        string // normalized query text, kept for introspection
	Results      []*core.RankedResult
	CreatedAt    time.Time
	ExpiresAt    time.Time
	HitCount     uint64
	LastAccessed time.Time
	Tags         []string
}

// Stats is a point-in-time snapshot of cache activity counters.
type Stats struct {
	Entries   int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// QueryCache maps normalized-query keys to ranked result lists.
//
// The cache is sharded for concurrent access and keeps a secondary tag ->
// keys index so invalidation does not scan every entry. It is always an
// optimization, never a source of truth: anomalies are absorbed as misses.
//
// Lock ordering: the tag index lock is never acquired while a shard lock is
// held.
type QueryCache struct {
	shards    []*shard
	tagMu     sync.Mutex
	tagIndex  map[string]map[string]struct{} // tag -> set of keys
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
	now       func() time.Time
	logger    *slog.Logger
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

// Option configures a QueryCache.
type Option func(*QueryCache)

// WithShardCount sets the number of shards. Default is 16.
func WithShardCount(n int) Option {
	return func(c *QueryCache) {
		if n < 1 {
			n = 1
		}
		c.shards = make([]*shard, n)
	}
}

// WithClock sets the time source, used by tests to control expiry.
func WithClock(now func() time.Time) Option {
	return func(c *QueryCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *QueryCache) {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
	}
}

// NewQueryCache creates an empty cache.
func NewQueryCache(opts ...Option) *QueryCache {
	c := &QueryCache{
		shards:   make([]*shard, defaultShardCount),
		tagIndex: make(map[string]map[string]struct{}),
		now:      time.Now,
		logger:   slog.Default().With("component", "query-cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	for i := range c.shards {
		c.shards[i] = &shard{entries: make(map[string]*Entry)}
	}
	return c
}

// Get returns the cached results for key, or nil, false on a miss.
//
// A hit increments the entry's hit count and refreshes its last-accessed time
// but never extends expiry. Expired or malformed entries are dropped and
// reported as misses. Returned results are copies with Cached set to true;
// callers may mutate them freely.
func (c *QueryCache) Get(key string) ([]*core.RankedResult, bool) {
	sh := c.shardFor(key)
	now := c.now()

	sh.mu.Lock()
	entry, ok := sh.entries[key]
	if !ok {
		sh.mu.Unlock()
		c.misses.Add(1)
		return nil, false
	}

	if entry.Results == nil || entry.ExpiresAt.IsZero() || !entry.ExpiresAt.After(now) {
		// Expired, or malformed enough that serving it would be wrong.
		sh.mu.Unlock()
		c.dropEntry(sh, key, entry)
		c.misses.Add(1)
		return nil, false
	}

	entry.HitCount++
	entry.LastAccessed = now
	results := copyResults(entry.Results, true)
	sh.mu.Unlock()

	c.hits.Add(1)
	return results, true
}

// Put stores results under key, overwriting any previous entry for the key.
// tags name the entry IDs and category labels whose mutation must invalidate
// this entry.
func (c *QueryCache) Put(key, normalizedQuery string, results []*core.RankedResult, ttl time.Duration, tags []string) {
	if ttl <= 0 {
		return
	}
	now := c.now()
	entry := &Entry{
		Key:       key,
		Query:     normalizedQuery,
		Results:   copyResults(results, false),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Tags:      append([]string(nil), tags...),
	}

	// Tag lock outlives the shard update so a concurrent Invalidate can
	// never observe the entry without its tags being indexed.
	c.tagMu.Lock()
	sh := c.shardFor(key)
	sh.mu.Lock()
	old := sh.entries[key]
	sh.entries[key] = entry
	sh.mu.Unlock()

	if old != nil {
		for _, tag := range old.Tags {
			c.removeTagKeyLocked(tag, key)
		}
	}
	for _, tag := range entry.Tags {
		keys, ok := c.tagIndex[tag]
		if !ok {
			keys = make(map[string]struct{})
			c.tagIndex[tag] = keys
		}
		keys[key] = struct{}{}
	}
	c.tagMu.Unlock()
}

// Invalidate removes every entry whose tag set contains tag and returns the
// number of entries removed. Called when an entry's content or quality
// changes, or when a category is bulk-updated.
func (c *QueryCache) Invalidate(tag string) int {
	c.tagMu.Lock()
	defer c.tagMu.Unlock()

	keys, ok := c.tagIndex[tag]
	if !ok {
		return 0
	}
	delete(c.tagIndex, tag)

	removed := 0
	for key := range keys {
		sh := c.shardFor(key)
		sh.mu.Lock()
		entry, ok := sh.entries[key]
		if ok {
			delete(sh.entries, key)
		}
		sh.mu.Unlock()
		if !ok {
			continue
		}
		removed++
		for _, other := range entry.Tags {
			if other != tag {
				c.removeTagKeyLocked(other, key)
			}
		}
	}

	c.evictions.Add(uint64(removed))
	if removed > 0 {
		c.logger.Debug("invalidated cache entries", "tag", tag, "removed", removed)
	}
	return removed
}

// Purge removes every entry and returns the number removed. Called after a
// full index rebuild, when all cached scores are potentially stale.
func (c *QueryCache) Purge() int {
	c.tagMu.Lock()
	defer c.tagMu.Unlock()

	removed := 0
	for _, sh := range c.shards {
		sh.mu.Lock()
		removed += len(sh.entries)
		sh.entries = make(map[string]*Entry)
		sh.mu.Unlock()
	}
	c.tagIndex = make(map[string]map[string]struct{})

	c.evictions.Add(uint64(removed))
	return removed
}

// SweepExpired removes every entry whose expiry has passed and returns the
// number removed. Intended to run periodically; expiry is also enforced
// lazily on Get, so sweeping only reclaims memory earlier.
func (c *QueryCache) SweepExpired() int {
	now := c.now()
	removed := 0

	for _, sh := range c.shards {
		var dead []*Entry
		sh.mu.Lock()
		for _, entry := range sh.entries {
			if !entry.ExpiresAt.After(now) {
				dead = append(dead, entry)
			}
		}
		sh.mu.Unlock()

		for _, entry := range dead {
			if c.dropEntry(sh, entry.Key, entry) {
				removed++
			}
		}
	}

	return removed
}

// Len returns the number of entries currently held, including not yet swept
// expired ones.
func (c *QueryCache) Len() int {
	total := 0
	for _, sh := range c.shards {
		sh.mu.Lock()
		total += len(sh.entries)
		sh.mu.Unlock()
	}
	return total
}

// Stats returns a snapshot of activity counters.
func (c *QueryCache) Stats() Stats {
	return Stats{
		Entries:   c.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

func (c *QueryCache) shardFor(key string) *shard {
	// Keys are uniformly distributed blake2b digests; fold a few bytes.
	var sum uint32
	for i := 0; i < len(key); i++ {
		sum = sum*31 + uint32(key[i])
	}
	return c.shards[int(sum)%len(c.shards)]
}

// dropEntry removes a dead entry and its tag index references, taking the tag
// lock before the shard lock like Put does. The shard is re-checked under
// both locks: a concurrent Put may have replaced the entry in the window
// since the caller observed it, and the replacement and its tags must stay
// untouched. Reports whether the entry was actually removed.
func (c *QueryCache) dropEntry(sh *shard, key string, dead *Entry) bool {
	c.tagMu.Lock()
	defer c.tagMu.Unlock()

	sh.mu.Lock()
	current, ok := sh.entries[key]
	if !ok || current != dead {
		sh.mu.Unlock()
		return false
	}
	delete(sh.entries, key)
	sh.mu.Unlock()

	for _, tag := range dead.Tags {
		c.removeTagKeyLocked(tag, key)
	}
	c.evictions.Add(1)
	return true
}

// removeTagKeyLocked removes key from a tag's key set. Caller holds tagMu.
func (c *QueryCache) removeTagKeyLocked(tag, key string) {
	keys, ok := c.tagIndex[tag]
	if !ok {
		return
	}
	delete(keys, key)
	if len(keys) == 0 {
		delete(c.tagIndex, tag)
	}
}

func copyResults(results []*core.RankedResult, cached bool) []*core.RankedResult {
	out := make([]*core.RankedResult, len(results))
	for i, r := range results {
		cp := *r
		cp.Cached = cached
		out[i] = &cp
	}
	return out
}
