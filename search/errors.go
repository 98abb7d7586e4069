package search

import "errors"

var (
	// ErrEntryRepositoryRequired is returned when no entry repository is provided.
	ErrEntryRepositoryRequired = errors.New("entry repository is required")

	// ErrIndexRequired is returned when no index handle is provided.
	ErrIndexRequired = errors.New("index handle is required")

	// ErrCacheRequired is returned when no query cache is provided.
	ErrCacheRequired = errors.New("query cache is required")

	// ErrAIProviderRequired is returned when no AI provider is provided.
	ErrAIProviderRequired = errors.New("AI provider is required")

	// ErrEmptyQuery is returned when the query is empty after normalization.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrInvalidLimit is returned when the requested result limit is not positive.
	ErrInvalidLimit = errors.New("limit must be positive")

	// ErrInvalidMinQuality is returned when a quality floor is outside [0, 1].
	ErrInvalidMinQuality = errors.New("minimum quality must be in [0, 1]")
)
