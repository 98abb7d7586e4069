package indexer

import "errors"

var (
	// ErrEntryRepositoryRequired is returned when no entry repository is provided.
	ErrEntryRepositoryRequired = errors.New("entry repository is required")

	// ErrIndexRequired is returned when no index handle is provided.
	ErrIndexRequired = errors.New("index handle is required")

	// ErrAIProviderRequired is returned when no AI provider is provided.
	ErrAIProviderRequired = errors.New("AI provider is required")

	// ErrInvalidMaxAttempts is returned when a retry attempt count is not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be greater than zero")

	// ErrEmbeddingCountMismatch is returned when the embedder returns a
	// different number of vectors than texts submitted.
	ErrEmbeddingCountMismatch = errors.New("embedder returned wrong number of vectors")
)
