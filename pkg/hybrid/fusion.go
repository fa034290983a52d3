// Package hybrid composes the vector store, the BM25 index, and an
// optional reranker into a single query pipeline. Ranked lists from the
// two retrieval paths are merged with Reciprocal Rank Fusion (RRF).
package hybrid

import (
	"sort"

	"github.com/telltale-labs/fathom/pkg/model"
)

// DefaultRRFK is the standard RRF smoothing constant; k=60 is the
// empirically validated value used across search engines.
const DefaultRRFK = 60

// WeightedList is one ranked result list entering fusion, with the
// weight its rank contributions are multiplied by.
type WeightedList struct {
	Results []model.SearchResult
	Weight  float64
}

// Fusion merges ranked lists using Reciprocal Rank Fusion:
//
//	score(chunk) = Σ_i weight_i / (k + rank_i)
//
// where rank_i is the chunk's 1-based position in list i. Chunks present
// in several lists sum their contributions; chunks absent from a list
// simply receive nothing from it.
type Fusion struct {
	k int
}

// NewFusion creates an RRF fuser. k <= 0 falls back to DefaultRRFK.
func NewFusion(k int) *Fusion {
	if k <= 0 {
		k = DefaultRRFK
	}
	return &Fusion{k: k}
}

// Fuse merges the lists into one ranking tagged SourceHybrid. The chunk
// object kept for a given ID is the one from the first list it was
// encountered in, so callers control precedence by list order. Results
// are sorted by fused score descending; ties keep first-encountered
// order.
func (f *Fusion) Fuse(lists ...WeightedList) []model.SearchResult {
	scores := make(map[string]float64)
	chunks := make(map[string]*model.Chunk)
	var order []string

	for _, list := range lists {
		for rank, res := range list.Results {
			id := res.Chunk.ID
			if _, seen := chunks[id]; !seen {
				chunks[id] = res.Chunk
				order = append(order, id)
			}
			scores[id] += list.Weight / float64(f.k+rank+1)
		}
	}
	if len(order) == 0 {
		return []model.SearchResult{}
	}

	fused := make([]model.SearchResult, 0, len(order))
	for _, id := range order {
		fused = append(fused, model.SearchResult{
			Chunk:  chunks[id],
			Score:  scores[id],
			Source: model.SourceHybrid,
		})
	}
	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].Score > fused[j].Score
	})
	return fused
}
