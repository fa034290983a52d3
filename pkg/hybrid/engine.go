package hybrid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/telltale-labs/fathom/pkg/bm25"
	"github.com/telltale-labs/fathom/pkg/embed"
	"github.com/telltale-labs/fathom/pkg/model"
	"github.com/telltale-labs/fathom/pkg/rerank"
	"github.com/telltale-labs/fathom/pkg/vector"
)

// ErrNilDependency is returned when a required engine dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// Config configures the hybrid search pipeline.
type Config struct {
	// RRFK is the RRF smoothing constant (default: 60).
	RRFK int

	// VectorWeight and BM25Weight scale each path's rank contributions
	// during fusion (default: 1.0 each).
	VectorWeight float64
	BM25Weight   float64

	// VectorCandidates and BM25Candidates are how many chunks each
	// retrieval path contributes to fusion (default: 25 each).
	VectorCandidates int
	BM25Candidates   int

	// DefaultLimit applies when a search passes no limit (default: 10).
	DefaultLimit int
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		RRFK:             DefaultRRFK,
		VectorWeight:     1.0,
		BM25Weight:       1.0,
		VectorCandidates: 25,
		BM25Candidates:   25,
		DefaultLimit:     10,
	}
}

// SearchOptions configures a single search call.
type SearchOptions struct {
	// Limit is the maximum number of results (default: Config.DefaultLimit).
	Limit int

	// Filter restricts the vector path by exact metadata equality.
	// The BM25 path does not see the filter.
	Filter model.Metadata

	// Rerank applies the configured reranker to the fused candidate set.
	// Ignored when no reranker is configured.
	Rerank bool
}

// Engine is the top-level retrieval entry point. It fans chunk mutations
// out to both stores and turns a text query into a ranked, optionally
// reranked RetrievalResult.
//
// Searches may run concurrently; mutations (Add, Delete, Clear) are
// serialized by an internal mutex so the two stores never diverge under
// concurrent writers.
type Engine struct {
	vector   vector.Store
	bm25     *bm25.Index
	embedder embed.Embedder
	reranker rerank.Reranker
	fusion   *Fusion
	cfg      Config
	mu       sync.Mutex
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithReranker attaches a second-pass reranker. Searches opt in per call
// via SearchOptions.Rerank.
func WithReranker(r rerank.Reranker) Option {
	return func(e *Engine) { e.reranker = r }
}

// NewEngine creates a hybrid search engine. The vector store, BM25 index,
// and embedder are required.
func NewEngine(store vector.Store, index *bm25.Index, embedder embed.Embedder, cfg Config, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: vector store is required", ErrNilDependency)
	}
	if index == nil {
		return nil, fmt.Errorf("%w: bm25 index is required", ErrNilDependency)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrNilDependency)
	}
	if cfg.RRFK <= 0 {
		cfg.RRFK = DefaultRRFK
	}
	if cfg.VectorWeight <= 0 {
		cfg.VectorWeight = 1.0
	}
	if cfg.BM25Weight <= 0 {
		cfg.BM25Weight = 1.0
	}
	if cfg.VectorCandidates <= 0 {
		cfg.VectorCandidates = 25
	}
	if cfg.BM25Candidates <= 0 {
		cfg.BM25Candidates = 25
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	e := &Engine{
		vector:   store,
		bm25:     index,
		embedder: embedder,
		fusion:   NewFusion(cfg.RRFK),
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Search runs the full pipeline: embed the query, retrieve candidates
// from both paths concurrently, fuse with RRF, optionally rerank the
// entire fused set, and truncate to the limit. Empty or whitespace-only
// queries return an empty result without calling the embedder.
// Collaborator failures (embedding, judge scoring) propagate unmodified.
func (e *Engine) Search(ctx context.Context, query string, opts SearchOptions) (*model.RetrievalResult, error) {
	totalStart := time.Now()

	query = strings.TrimSpace(query)
	result := &model.RetrievalResult{Query: query, Results: []model.SearchResult{}}
	if query == "" {
		return result, nil
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}

	var (
		vecResults  []model.SearchResult
		bm25Results []model.SearchResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		embedding, err := e.embedder.Embed(gctx, query)
		if err != nil {
			return fmt.Errorf("embed query: %w", err)
		}
		vecResults, err = e.vector.Search(gctx, embedding, e.cfg.VectorCandidates, opts.Filter)
		if err != nil {
			return fmt.Errorf("vector search: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		bm25Results = e.bm25.Search(gctx, query, e.cfg.BM25Candidates)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Vector list first: on duplicates the fused result keeps the chunk
	// from the vector path.
	fused := e.fusion.Fuse(
		WeightedList{Results: vecResults, Weight: e.cfg.VectorWeight},
		WeightedList{Results: bm25Results, Weight: e.cfg.BM25Weight},
	)
	result.RetrievalTime = time.Since(totalStart)

	if opts.Rerank && e.reranker != nil {
		rerankStart := time.Now()
		// The reranker sees the entire fused candidate set, not just the
		// caller's limit, and returns at most limit results.
		reranked, err := e.reranker.Rerank(ctx, query, fused, limit)
		if err != nil {
			return nil, fmt.Errorf("rerank: %w", err)
		}
		result.Results = reranked
		result.RerankTime = time.Since(rerankStart)
	} else {
		if len(fused) > limit {
			fused = fused[:limit]
		}
		result.Results = fused
	}

	result.TotalTime = time.Since(totalStart)
	slog.Debug("hybrid_search",
		slog.Int("vector_candidates", len(vecResults)),
		slog.Int("bm25_candidates", len(bm25Results)),
		slog.Int("results", len(result.Results)),
		slog.Bool("reranked", opts.Rerank && e.reranker != nil),
		slog.Duration("took", result.TotalTime))
	return result, nil
}

// Add embeds chunks that lack an embedding (one batch call), assigns
// missing IDs, and fans the chunks out to both stores. Both stores hold
// the same chunk pointers, so presence stays coherent across paths.
func (e *Engine) Add(ctx context.Context, chunks []*model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var (
		missing []int
		texts   []string
	)
	for i, c := range chunks {
		c.EnsureID()
		if !c.HasEmbedding() {
			missing = append(missing, i)
			texts = append(texts, c.Content)
		}
	}
	if len(texts) > 0 {
		embeddings, err := e.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks: %w", err)
		}
		if len(embeddings) != len(texts) {
			return fmt.Errorf("embedder returned %d vectors for %d texts", len(embeddings), len(texts))
		}
		for j, i := range missing {
			chunks[i].Embedding = embeddings[j]
		}
	}

	if _, err := e.vector.Add(ctx, chunks); err != nil {
		return fmt.Errorf("add to vector store: %w", err)
	}
	if err := e.bm25.AddChunks(ctx, chunks); err != nil {
		return fmt.Errorf("add to bm25 index: %w", err)
	}
	return nil
}

// Delete removes chunks by ID from both stores.
func (e *Engine) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.vector.Delete(ctx, ids); err != nil {
		return fmt.Errorf("delete from vector store: %w", err)
	}
	if err := e.bm25.RemoveChunks(ctx, ids); err != nil {
		return fmt.Errorf("delete from bm25 index: %w", err)
	}
	return nil
}

// Clear empties both stores.
func (e *Engine) Clear(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.vector.Clear(ctx); err != nil {
		return fmt.Errorf("clear vector store: %w", err)
	}
	if err := e.bm25.Clear(ctx); err != nil {
		return fmt.Errorf("clear bm25 index: %w", err)
	}
	return nil
}

// Stats reports the chunk counts of both stores.
type Stats struct {
	VectorCount int
	BM25Count   int
}

// Stats returns current store sizes.
func (e *Engine) Stats() Stats {
	return Stats{
		VectorCount: e.vector.Count(),
		BM25Count:   e.bm25.Count(),
	}
}
