// Package graph provides breadth-first traversal over the typed relationship
// edges between entries: synonyms, opposites, components, prerequisites and
// free-form relatedness.
package graph
