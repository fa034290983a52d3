// Package vector defines the vector store contract used for dense
// retrieval, plus an in-memory brute-force reference implementation.
// Index-backed implementations (on-disk, ANN) can be substituted without
// changing callers.
package vector

import (
	"context"
	"fmt"

	"github.com/telltale-labs/fathom/pkg/model"
)

// Store holds embedded chunks and answers similarity queries.
//
// All chunks in one store share a single embedding dimensionality,
// established by the first successful Add and reset by Clear.
// Implementations must be safe for concurrent readers; concurrent
// mutations of the same instance are serialized internally or by the
// caller.
type Store interface {
	// Add stores chunks keyed by ID, overwriting duplicates, and returns
	// the stored IDs. Fails with MissingEmbeddingError if any chunk lacks
	// an embedding and with DimensionMismatchError on a dimensionality
	// conflict; a failed batch leaves the store untouched.
	Add(ctx context.Context, chunks []*model.Chunk) ([]string, error)

	// Search returns up to limit chunks most similar to the query
	// embedding, optionally restricted to chunks whose metadata matches
	// every filter pair. Scores are cosine similarities clamped to >= 0.
	Search(ctx context.Context, embedding []float32, limit int, filter model.Metadata) ([]model.SearchResult, error)

	// Delete removes chunks by ID and returns how many existed. Unknown
	// IDs are ignored.
	Delete(ctx context.Context, ids []string) (int, error)

	// Clear removes everything and resets the dimensionality constraint.
	Clear(ctx context.Context) error

	// Count returns the number of stored chunks.
	Count() int

	// Get returns the chunk with the given ID, or false if absent.
	Get(ctx context.Context, id string) (*model.Chunk, bool)
}

// MissingEmbeddingError reports a chunk that reached Add without an
// embedding. Validation errors abort the whole batch.
type MissingEmbeddingError struct {
	ChunkID string
}

func (e MissingEmbeddingError) Error() string {
	return fmt.Sprintf("chunk %q has no embedding", e.ChunkID)
}

// DimensionMismatchError reports an embedding whose length differs from
// the store's established dimensionality.
type DimensionMismatchError struct {
	Expected int
	Got      int
	ChunkID  string
}

func (e DimensionMismatchError) Error() string {
	if e.ChunkID != "" {
		return fmt.Sprintf("dimension mismatch for chunk %q: expected %d, got %d", e.ChunkID, e.Expected, e.Got)
	}
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
