// Package embeddings defines the interface for text embedding providers.
package embeddings

import "context"

// Embedder produces dense vectors for text. Vectors for different languages
// live in one shared space, so a Hindi query can land near an English FAQ.
type Embedder interface {
	// Embed returns the embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Model identifies the embedding model, recorded in built indexes so a
	// mismatched index is rejected at load time.
	Model() string
}
