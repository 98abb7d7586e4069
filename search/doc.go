// Package search implements the single query path of the engine: normalize
// the query, consult the cache, embed, scan the current index snapshot,
// filter and score the candidates, then cache the ranked results.
package search
