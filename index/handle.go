package index

import "sync/atomic"

// Handle publishes the live index to concurrent readers.
//
// A full rebuild constructs a fresh Flat off to the side and calls Swap once
// it is complete; in-flight searches keep using the snapshot they already
// hold, so they never observe a partially built index. A rebuild that fails
// never reaches Swap, so a partial index is never published.
type Handle struct {
	ptr atomic.Pointer[Flat]
}

// NewHandle creates a handle publishing the given initial index.
func NewHandle(initial *Flat) *Handle {
	h := &Handle{}
	h.ptr.Store(initial)
	return h
}

// Snapshot returns the currently published index. The returned index is
// complete and self-consistent; callers should hold onto it for the duration
// of one logical operation rather than re-fetching mid-operation.
func (h *Handle) Snapshot() *Flat {
	return h.ptr.Load()
}

// Swap publishes next and returns the previously published index.
func (h *Handle) Swap(next *Flat) *Flat {
	return h.ptr.Swap(next)
}
