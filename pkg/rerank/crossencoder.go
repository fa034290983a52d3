package rerank

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/telltale-labs/fathom/pkg/model"
)

// PairScorer jointly scores (query, document) pairs through a pairwise
// relevance model, one batch per call. Scores are used raw; the model's
// own scale carries through to the reranked results.
type PairScorer interface {
	ScorePairs(ctx context.Context, query string, documents []string) ([]float64, error)
}

// ErrNilScorer is returned when a reranker is constructed without its
// scoring collaborator.
var ErrNilScorer = errors.New("nil scorer")

// CrossEncoderReranker reranks candidates with a pairwise relevance
// model. Cross-encoders see query and document together, which scores
// relevance more accurately than comparing independent embeddings, at a
// per-pair inference cost.
type CrossEncoderReranker struct {
	scorer PairScorer
}

var _ Reranker = (*CrossEncoderReranker)(nil)

// NewCrossEncoderReranker creates a cross-encoder reranker.
func NewCrossEncoderReranker(scorer PairScorer) (*CrossEncoderReranker, error) {
	if scorer == nil {
		return nil, ErrNilScorer
	}
	return &CrossEncoderReranker{scorer: scorer}, nil
}

// Rerank scores every candidate's content against the query in one batch
// and returns the topN by model score.
func (r *CrossEncoderReranker) Rerank(ctx context.Context, query string, results []model.SearchResult, topN int) ([]model.SearchResult, error) {
	if len(results) == 0 {
		return []model.SearchResult{}, nil
	}

	start := time.Now()
	documents := make([]string, len(results))
	for i, res := range results {
		documents[i] = res.Chunk.Content
	}

	scores, err := r.scorer.ScorePairs(ctx, query, documents)
	if err != nil {
		return nil, fmt.Errorf("score pairs: %w", err)
	}
	if len(scores) != len(results) {
		return nil, fmt.Errorf("scorer returned %d scores for %d candidates", len(scores), len(results))
	}

	out := finalize(results, scores, topN)
	slog.Debug("cross_encoder_rerank",
		slog.Int("candidates", len(results)),
		slog.Int("returned", len(out)),
		slog.Duration("took", time.Since(start)))
	return out, nil
}
