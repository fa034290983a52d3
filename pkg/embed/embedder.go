// Package embed defines the embedding collaborator contract consumed by
// the retrieval engine, plus a caching wrapper and a deterministic
// offline embedder.
package embed

import (
	"context"
	"math"
)

// Embedder generates dense vector embeddings for text. Implementations
// must be safe for concurrent use and must return vectors of a fixed
// dimensionality. Errors from the underlying model propagate unmodified;
// retry and circuit-breaking policy belongs to the calling layer.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimensionality.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string
}

// NormalizeVector scales a vector to unit length. Zero vectors are
// returned unchanged.
func NormalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}
	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
