package vector

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/telltale-labs/fathom/pkg/model"
)

// MemoryStore is the brute-force in-memory Store implementation. Cosine
// similarity against every stored vector is O(N) per query, which is fine
// up to roughly 10k vectors; beyond that an index-backed Store should be
// substituted.
type MemoryStore struct {
	mu     sync.RWMutex
	chunks map[string]*model.Chunk
	order  []string // insertion order, for deterministic tie-breaking
	dim    int      // 0 until the first successful Add
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory vector store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{chunks: make(map[string]*model.Chunk)}
}

// Add validates the whole batch before mutating anything, so a faulty
// batch never corrupts previously stored state.
func (s *MemoryStore) Add(ctx context.Context, chunks []*model.Chunk) ([]string, error) {
	if len(chunks) == 0 {
		return []string{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.dim
	for _, c := range chunks {
		if !c.HasEmbedding() {
			return nil, MissingEmbeddingError{ChunkID: c.ID}
		}
		if dim == 0 {
			dim = len(c.Embedding)
		} else if len(c.Embedding) != dim {
			return nil, DimensionMismatchError{Expected: dim, Got: len(c.Embedding), ChunkID: c.ID}
		}
	}

	s.dim = dim
	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		id := c.EnsureID()
		if _, exists := s.chunks[id]; !exists {
			s.order = append(s.order, id)
		}
		s.chunks[id] = c
		ids = append(ids, id)
	}
	return ids, nil
}

// Search brute-forces cosine similarity over every stored chunk. Results
// are sorted descending; ties keep insertion order. An empty store or a
// filter that matches nothing yields an empty slice.
func (s *MemoryStore) Search(ctx context.Context, embedding []float32, limit int, filter model.Metadata) ([]model.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || len(s.chunks) == 0 {
		return []model.SearchResult{}, nil
	}
	if s.dim != 0 && len(embedding) != s.dim {
		return nil, DimensionMismatchError{Expected: s.dim, Got: len(embedding)}
	}

	results := make([]model.SearchResult, 0, len(s.chunks))
	for _, id := range s.order {
		c := s.chunks[id]
		if len(filter) > 0 && !c.Metadata.Matches(filter) {
			continue
		}
		score := CosineSimilarity(embedding, c.Embedding)
		if score < 0 {
			score = 0
		}
		results = append(results, model.SearchResult{
			Chunk:  c,
			Score:  score,
			Source: model.SourceVector,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Delete removes chunks by ID; absent IDs are no-ops and do not count.
func (s *MemoryStore) Delete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := s.chunks[id]; ok {
			delete(s.chunks, id)
			drop[id] = struct{}{}
			deleted++
		}
	}
	if deleted > 0 {
		kept := s.order[:0]
		for _, id := range s.order {
			if _, gone := drop[id]; !gone {
				kept = append(kept, id)
			}
		}
		s.order = kept
	}
	return deleted, nil
}

// Clear removes all chunks and resets the dimensionality constraint.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = make(map[string]*model.Chunk)
	s.order = nil
	s.dim = 0
	return nil
}

// Count returns the number of stored chunks.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Get returns the stored chunk for id.
func (s *MemoryStore) Get(ctx context.Context, id string) (*model.Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chunks[id]
	return c, ok
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Zero vectors and length mismatches yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
