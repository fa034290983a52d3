package hybrid

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telltale-labs/fathom/pkg/bm25"
	"github.com/telltale-labs/fathom/pkg/embed"
	"github.com/telltale-labs/fathom/pkg/model"
	"github.com/telltale-labs/fathom/pkg/rerank"
	"github.com/telltale-labs/fathom/pkg/vector"
)

// trackingEmbedder counts calls and optionally fails.
type trackingEmbedder struct {
	inner      *embed.StaticEmbedder
	mu         sync.Mutex
	embedCalls int
	err        error
}

func newTrackingEmbedder() *trackingEmbedder {
	return &trackingEmbedder{inner: embed.NewStaticEmbedder()}
}

func (e *trackingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.embedCalls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	return e.inner.Embed(ctx, text)
}

func (e *trackingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.inner.EmbedBatch(ctx, texts)
}

func (e *trackingEmbedder) Dimensions() int    { return e.inner.Dimensions() }
func (e *trackingEmbedder) ModelName() string { return e.inner.ModelName() }

// capturingReranker records the candidate set it was handed and returns
// it reversed.
type capturingReranker struct {
	gotQuery string
	gotSize  int
	gotTopN  int
}

func (r *capturingReranker) Rerank(ctx context.Context, query string, results []model.SearchResult, topN int) ([]model.SearchResult, error) {
	r.gotQuery = query
	r.gotSize = len(results)
	r.gotTopN = topN

	out := make([]model.SearchResult, 0, len(results))
	for i := len(results) - 1; i >= 0; i-- {
		out = append(out, model.SearchResult{
			Chunk:  results[i].Chunk,
			Score:  float64(len(results) - i),
			Source: model.SourceReranked,
		})
	}
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *trackingEmbedder) {
	t.Helper()
	embedder := newTrackingEmbedder()
	engine, err := NewEngine(vector.NewMemoryStore(), bm25.New(bm25.DefaultConfig()), embedder, DefaultConfig(), opts...)
	require.NoError(t, err)
	return engine, embedder
}

func docChunk(id, content string, meta model.Metadata) *model.Chunk {
	return &model.Chunk{ID: id, Content: content, DocumentID: "doc", Metadata: meta}
}

func TestNewEngineRequiresDependencies(t *testing.T) {
	store := vector.NewMemoryStore()
	index := bm25.New(bm25.DefaultConfig())
	embedder := embed.NewStaticEmbedder()

	_, err := NewEngine(nil, index, embedder, Config{})
	assert.ErrorIs(t, err, ErrNilDependency)
	_, err = NewEngine(store, nil, embedder, Config{})
	assert.ErrorIs(t, err, ErrNilDependency)
	_, err = NewEngine(store, index, nil, Config{})
	assert.ErrorIs(t, err, ErrNilDependency)
}

func TestAddPopulatesBothStores(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	chunks := []*model.Chunk{
		docChunk("", "hybrid retrieval combines lexical and dense signals", nil),
		docChunk("", "reciprocal rank fusion merges ranked lists", nil),
	}
	require.NoError(t, engine.Add(ctx, chunks))

	for _, c := range chunks {
		assert.NotEmpty(t, c.ID, "missing IDs are assigned during Add")
		assert.True(t, c.HasEmbedding(), "missing embeddings are computed during Add")
	}

	stats := engine.Stats()
	assert.Equal(t, 2, stats.VectorCount)
	assert.Equal(t, 2, stats.BM25Count)
}

func TestAddKeepsExistingEmbeddings(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	pre := make([]float32, embed.StaticDimensions)
	pre[0] = 1
	c := docChunk("pre", "already embedded", nil)
	c.Embedding = pre

	require.NoError(t, engine.Add(ctx, []*model.Chunk{c}))
	assert.Equal(t, pre, c.Embedding, "existing embeddings are not recomputed")
}

func TestSearchFusesBothPaths(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	require.NoError(t, engine.Add(ctx, []*model.Chunk{
		docChunk("1", "error handling with retries and backoff", nil),
		docChunk("2", "structured logging for request tracing", nil),
		docChunk("3", "retries require idempotent handlers", nil),
	}))

	result, err := engine.Search(ctx, "error retries", SearchOptions{Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, result.Results)

	assert.Equal(t, "error retries", result.Query)
	assert.Equal(t, "1", result.Results[0].Chunk.ID)
	for _, r := range result.Results {
		assert.Equal(t, model.SourceHybrid, r.Source)
	}
	assert.GreaterOrEqual(t, result.TotalTime, result.RetrievalTime)
	assert.Zero(t, result.RerankTime)
}

func TestSearchEmptyQuerySkipsEmbedding(t *testing.T) {
	ctx := context.Background()
	engine, embedder := newTestEngine(t)

	require.NoError(t, engine.Add(ctx, []*model.Chunk{docChunk("1", "content", nil)}))

	for _, query := range []string{"", "   ", "\n"} {
		result, err := engine.Search(ctx, query, SearchOptions{})
		require.NoError(t, err)
		assert.Empty(t, result.Results)
	}
	assert.Equal(t, 0, embedder.embedCalls)
}

func TestSearchAppliesDefaultLimit(t *testing.T) {
	ctx := context.Background()
	embedder := newTrackingEmbedder()
	cfg := DefaultConfig()
	cfg.DefaultLimit = 2
	engine, err := NewEngine(vector.NewMemoryStore(), bm25.New(bm25.DefaultConfig()), embedder, cfg)
	require.NoError(t, err)

	chunks := make([]*model.Chunk, 0, 5)
	for i := 0; i < 5; i++ {
		chunks = append(chunks, docChunk(fmt.Sprintf("%d", i), fmt.Sprintf("shared topic variant %d", i), nil))
	}
	require.NoError(t, engine.Add(ctx, chunks))

	result, err := engine.Search(ctx, "shared topic", SearchOptions{})
	require.NoError(t, err)
	assert.Len(t, result.Results, 2)
}

func TestSearchMetadataFilterRestrictsVectorPath(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	require.NoError(t, engine.Add(ctx, []*model.Chunk{
		docChunk("md", "deployment guide for the staging cluster", model.Metadata{"ext": model.String(".md")}),
		docChunk("txt", "deployment checklist for production", model.Metadata{"ext": model.String(".txt")}),
	}))

	result, err := engine.Search(ctx, "deployment", SearchOptions{
		Limit:  10,
		Filter: model.Metadata{"ext": model.String(".md")},
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Results)

	// The BM25 path ignores the filter, so the .txt chunk can still fuse
	// in; the filtered vector path just contributes nothing for it.
	ids := make(map[string]bool)
	for _, r := range result.Results {
		ids[r.Chunk.ID] = true
	}
	assert.True(t, ids["md"])
}

func TestSearchRerankSeesFullFusedSet(t *testing.T) {
	ctx := context.Background()
	reranker := &capturingReranker{}
	engine, _ := newTestEngine(t, WithReranker(reranker))

	chunks := make([]*model.Chunk, 0, 6)
	for i := 0; i < 6; i++ {
		chunks = append(chunks, docChunk(fmt.Sprintf("%d", i), fmt.Sprintf("common theme number %d", i), nil))
	}
	require.NoError(t, engine.Add(ctx, chunks))

	result, err := engine.Search(ctx, "common theme", SearchOptions{Limit: 2, Rerank: true})
	require.NoError(t, err)

	assert.Equal(t, "common theme", reranker.gotQuery)
	assert.Equal(t, 6, reranker.gotSize, "the reranker receives every fused candidate, not just the limit")
	assert.Equal(t, 2, reranker.gotTopN)
	assert.Len(t, result.Results, 2)
	assert.Equal(t, model.SourceReranked, result.Results[0].Source)
	assert.GreaterOrEqual(t, result.RerankTime.Nanoseconds(), int64(0))
}

func TestSearchRerankFlagWithoutReranker(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	require.NoError(t, engine.Add(ctx, []*model.Chunk{docChunk("1", "some indexed text", nil)}))

	result, err := engine.Search(ctx, "indexed text", SearchOptions{Rerank: true})
	require.NoError(t, err)
	require.NotEmpty(t, result.Results)
	assert.Equal(t, model.SourceHybrid, result.Results[0].Source)
}

func TestSearchPropagatesEmbedderError(t *testing.T) {
	ctx := context.Background()
	engine, embedder := newTestEngine(t)

	require.NoError(t, engine.Add(ctx, []*model.Chunk{docChunk("1", "content", nil)}))

	wantErr := errors.New("embedding service down")
	embedder.err = wantErr

	_, err := engine.Search(ctx, "content", SearchOptions{})
	require.ErrorIs(t, err, wantErr)
}

func TestDeleteRemovesFromBothStores(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	require.NoError(t, engine.Add(ctx, []*model.Chunk{
		docChunk("keep", "kept content", nil),
		docChunk("drop", "dropped content", nil),
	}))

	require.NoError(t, engine.Delete(ctx, []string{"drop"}))
	stats := engine.Stats()
	assert.Equal(t, 1, stats.VectorCount)
	assert.Equal(t, 1, stats.BM25Count)

	result, err := engine.Search(ctx, "dropped content", SearchOptions{Limit: 10})
	require.NoError(t, err)
	for _, r := range result.Results {
		assert.NotEqual(t, "drop", r.Chunk.ID)
	}
}

func TestClearEmptiesBothStores(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	require.NoError(t, engine.Add(ctx, []*model.Chunk{docChunk("1", "content", nil)}))
	require.NoError(t, engine.Clear(ctx))

	stats := engine.Stats()
	assert.Equal(t, 0, stats.VectorCount)
	assert.Equal(t, 0, stats.BM25Count)
}

func TestEngineEndToEndWithJudge(t *testing.T) {
	ctx := context.Background()

	judge, err := rerank.NewJudgeReranker(completerFunc(func(ctx context.Context, prompt string) (string, error) {
		return "7", nil
	}))
	require.NoError(t, err)

	engine, _ := newTestEngine(t, WithReranker(judge))
	require.NoError(t, engine.Add(ctx, []*model.Chunk{
		docChunk("1", "vector similarity search over embeddings", nil),
		docChunk("2", "lexical search with term statistics", nil),
	}))

	result, err := engine.Search(ctx, "similarity search", SearchOptions{Limit: 2, Rerank: true})
	require.NoError(t, err)
	require.NotEmpty(t, result.Results)
	for _, r := range result.Results {
		assert.Equal(t, model.SourceReranked, r.Source)
		assert.InDelta(t, 0.7, r.Score, 1e-9)
	}

	assert.NotEmpty(t, result.ContextString())
}

// completerFunc adapts a function to rerank.Completer.
type completerFunc func(ctx context.Context, prompt string) (string, error)

func (f completerFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
