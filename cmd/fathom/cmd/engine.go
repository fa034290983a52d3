package cmd

import (
	"fmt"

	"github.com/telltale-labs/fathom/internal/config"
	"github.com/telltale-labs/fathom/pkg/bm25"
	"github.com/telltale-labs/fathom/pkg/embed"
	"github.com/telltale-labs/fathom/pkg/hybrid"
	"github.com/telltale-labs/fathom/pkg/provider/openai"
	"github.com/telltale-labs/fathom/pkg/rerank"
	"github.com/telltale-labs/fathom/pkg/vector"
)

// buildEmbedder constructs the configured embedding provider, wrapped in
// an LRU cache when caching is enabled.
func buildEmbedder(cfg *config.Config) (embed.Embedder, error) {
	var (
		embedder embed.Embedder
		err      error
	)
	switch cfg.Embeddings.Provider {
	case "openai":
		embedder, err = openai.NewEmbedder(openai.Config{
			BaseURL:             cfg.Embeddings.BaseURL,
			Token:               cfg.Embeddings.Token,
			EmbeddingModel:      cfg.Embeddings.Model,
			EmbeddingDimensions: cfg.Embeddings.Dimensions,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
	default:
		embedder = embed.NewStaticEmbedder()
	}

	if cfg.Embeddings.CacheSize > 0 {
		embedder = embed.NewCachedEmbedder(embedder, cfg.Embeddings.CacheSize)
	}
	return embedder, nil
}

// buildEngine wires the vector store, lexical index, embedder, and
// optional judge reranker into a retrieval engine.
func buildEngine(cfg *config.Config) (*hybrid.Engine, error) {
	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	index := bm25.New(bm25.Config{
		K1:        cfg.BM25.K1,
		B:         cfg.BM25.B,
		StopWords: cfg.BM25.StopWords,
	})
	store := vector.NewMemoryStore()

	engineCfg := hybrid.Config{
		RRFK:             cfg.Search.RRFConstant,
		VectorWeight:     cfg.Search.VectorWeight,
		BM25Weight:       cfg.Search.BM25Weight,
		VectorCandidates: cfg.Search.VectorCandidates,
		BM25Candidates:   cfg.Search.BM25Candidates,
		DefaultLimit:     cfg.Search.MaxResults,
	}

	var opts []hybrid.Option
	if cfg.Reranker.Enabled {
		completer, err := openai.NewCompleter(openai.Config{
			BaseURL:         cfg.Embeddings.BaseURL,
			Token:           cfg.Embeddings.Token,
			CompletionModel: cfg.Reranker.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create judge completer: %w", err)
		}
		judge, err := rerank.NewJudgeReranker(completer,
			rerank.WithJudgeConcurrency(cfg.Reranker.Concurrency))
		if err != nil {
			return nil, fmt.Errorf("failed to create reranker: %w", err)
		}
		opts = append(opts, hybrid.WithReranker(judge))
	}

	return hybrid.NewEngine(store, index, embedder, engineCfg, opts...)
}
