// Package mock provides deterministic test doubles for the ai interfaces.
// The default embedder hashes the input text into a stable unit vector, so
// tests get reproducible similarity orderings without a network dependency.
package mock
