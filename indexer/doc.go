// Package indexer builds vector indexes from the entry store: full rebuilds
// with batched re-embedding, retry with backoff, and progress reporting, plus
// incremental single-entry upserts. A rebuild publishes its result with one
// atomic swap and never disturbs searches in flight.
package indexer
