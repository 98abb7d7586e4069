package badger

import (
	"encoding/binary"

	"github.com/finvoc/termbase/core"
)

// Key prefixes for different data types
const (
	entryRecordPrefix = "entrec"
	entryTermPrefix   = "entterm"
	edgeFwdPrefix     = "edgfwd"
	edgeRevPrefix     = "edgrev"
)

// makeEntryKey generates a key for an entry by ID.
// The ID is written BigEndian so lexicographic key order equals ID order,
// which keyed pagination over active entries relies on.
func makeEntryKey(id core.ID) []byte {
	prefix := entryRecordPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeTermKey generates a key for the canonical-term index.
// Format: prefix:term
func makeTermKey(term string) []byte {
	prefix := entryTermPrefix + ":"
	buf := make([]byte, len(prefix)+len(term))
	offset := copy(buf, prefix)
	copy(buf[offset:], term)
	return buf
}

// makeEdgeFwdKey generates a key for an edge in the forward direction.
// Format: prefix:source:target:type
func makeEdgeFwdKey(source, target core.ID, edgeType core.EdgeType) []byte {
	return makeEdgeTripleKey(edgeFwdPrefix, source, target, edgeType)
}

// makeEdgeRevKey generates a key for an edge in the reverse direction.
// Format: prefix:target:source:type
func makeEdgeRevKey(source, target core.ID, edgeType core.EdgeType) []byte {
	return makeEdgeTripleKey(edgeRevPrefix, target, source, edgeType)
}

// makePartialEdgeKey generates a partial key for scanning all edges anchored
// at one entry, in either direction.
func makePartialEdgeKey(prefix string, id core.ID) []byte {
	p := prefix + ":"
	buf := make([]byte, len(p)+8)
	offset := copy(buf, p)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

func makeEdgeTripleKey(prefix string, first, second core.ID, edgeType core.EdgeType) []byte {
	p := prefix + ":"
	buf := make([]byte, len(p)+17)
	offset := copy(buf, p)
	// BigEndian so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(first))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(second))
	offset += 8
	buf[offset] = byte(edgeType)
	return buf
}
