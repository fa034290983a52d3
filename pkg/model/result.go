package model

import (
	"strings"
	"time"
)

// Source identifies which retrieval path produced a search result.
type Source string

const (
	SourceVector   Source = "vector"
	SourceBM25     Source = "bm25"
	SourceHybrid   Source = "hybrid"
	SourceReranked Source = "reranked"
)

// SearchResult pairs a chunk with a relevance score. The chunk pointer is
// shared with the owning store so deletions and metadata stay coherent
// across retrieval paths. Scores are non-negative; the scale depends on
// Source (BM25 and vector scores are normalized to [0,1], RRF scores are
// raw cumulative contributions).
type SearchResult struct {
	Chunk  *Chunk
	Score  float64
	Source Source
}

// RetrievalResult is the top-level answer to a hybrid search call:
// the ranked results plus timing breakdown.
type RetrievalResult struct {
	// Query is the original query string.
	Query string

	// Results are ordered by relevance; index 0 is the best match.
	Results []SearchResult

	// RetrievalTime covers embedding, both retrieval paths, and fusion.
	RetrievalTime time.Duration

	// RerankTime covers the optional second-pass reranker.
	RerankTime time.Duration

	// TotalTime is the full pipeline duration.
	TotalTime time.Duration
}

// Contexts returns the content of each result chunk in rank order.
func (r *RetrievalResult) Contexts() []string {
	out := make([]string, 0, len(r.Results))
	for _, res := range r.Results {
		if res.Chunk != nil {
			out = append(out, res.Chunk.Content)
		}
	}
	return out
}

// ContextString joins the result contents for prompt construction.
func (r *RetrievalResult) ContextString() string {
	return strings.Join(r.Contexts(), "\n\n")
}
