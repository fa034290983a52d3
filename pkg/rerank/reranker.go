// Package rerank provides second-pass reranking of retrieved candidates
// using a higher-precision relevance signal: either a pairwise
// (cross-encoder style) scoring model or an LLM judge.
package rerank

import (
	"context"
	"sort"

	"github.com/telltale-labs/fathom/pkg/model"
)

// Reranker re-scores an already-retrieved candidate set and returns the
// top candidates under the new ordering.
type Reranker interface {
	// Rerank scores results against the query and returns up to topN of
	// them sorted by the new score descending, tagged SourceReranked.
	// topN <= 0 means return all. An empty input returns an empty slice
	// without invoking the underlying scorer.
	Rerank(ctx context.Context, query string, results []model.SearchResult, topN int) ([]model.SearchResult, error)
}

// finalize sorts scored results descending (stable on the candidate
// order), clamps scores to >= 0, and truncates to topN.
func finalize(results []model.SearchResult, scores []float64, topN int) []model.SearchResult {
	out := make([]model.SearchResult, len(results))
	for i, r := range results {
		score := scores[i]
		if score < 0 {
			score = 0
		}
		out[i] = model.SearchResult{Chunk: r.Chunk, Score: score, Source: model.SourceReranked}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}
