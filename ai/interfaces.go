package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
//
// For a fixed model id, embedding is a pure function of the input text: the
// same text must always yield the same vector. This is required for cache-key
// stability and index reproducibility. If the underlying model is unreachable,
// implementations return an error wrapping ErrEmbeddingUnavailable; they must
// never substitute a synthetic vector.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector has exactly Dimensions() elements.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// ModelID identifies the model that produces the vectors. Vectors produced
	// under different model ids are not comparable; swapping models invalidates
	// any persisted index.
	ModelID() string

	// Dimensions is the fixed output vector length for this embedder instance.
	Dimensions() int
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
