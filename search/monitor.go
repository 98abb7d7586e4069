package search

import "github.com/finvoc/termbase/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	CacheHit(key string)
	AfterEmbedding(dimensions int)
	AfterIndexScan(ids []uint64)
	AfterFiltering(kept, dropped int)
	Finish(results []*core.RankedResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                  {}
func (n *noopMonitor) CacheHit(_ string)               {}
func (n *noopMonitor) AfterEmbedding(_ int)            {}
func (n *noopMonitor) AfterIndexScan(_ []uint64)       {}
func (n *noopMonitor) AfterFiltering(_, _ int)         {}
func (n *noopMonitor) Finish(_ []*core.RankedResult)   {}
