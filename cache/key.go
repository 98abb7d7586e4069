package cache

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/go-crypt/x/blake2b"

	"github.com/finvoc/termbase/core"
)

// NormalizeQuery canonicalizes query text for cache keying: case-folded with
// runs of whitespace collapsed to single spaces. Queries that differ only in
// formatting share a cache slot.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// Key derives a stable cache key from the given parts (normalized query text,
// canonical filter encoding, and anything else that changes the result set,
// such as the score scale). A separator byte goes between parts before
// hashing so that ("ab","c") and ("a","bc") cannot collide.
func Key(parts ...string) string {
	h, _ := blake2b.New(16, nil)
	sep := [1]byte{0x1f}
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write(sep[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// EntryTag is the invalidation tag covering one entry's cached results.
// Writers and searchers must agree on this format for tag invalidation to
// connect them.
func EntryTag(id core.ID) string {
	return "entry:" + strconv.FormatUint(uint64(id), 10)
}

// CategoryTag is the invalidation tag covering one category's cached results.
func CategoryTag(category core.Category) string {
	return "category:" + category.String()
}
