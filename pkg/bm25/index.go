package bm25

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/telltale-labs/fathom/pkg/model"
)

// Default BM25 parameters. k1 controls term-frequency saturation, b
// controls document-length normalization.
const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// Config configures the BM25 index.
type Config struct {
	// K1 is the term-frequency saturation parameter (default: 1.5).
	K1 float64

	// B is the length-normalization parameter (default: 0.75).
	B float64

	// StopWords lists words excluded from tokenization. Nil means
	// DefaultStopWords; an explicit empty slice disables filtering.
	StopWords []string
}

// DefaultConfig returns the default BM25 configuration.
func DefaultConfig() Config {
	return Config{K1: DefaultK1, B: DefaultB, StopWords: DefaultStopWords}
}

// document holds the per-chunk statistics computed at index time.
type document struct {
	chunk  *model.Chunk
	tf     map[string]int
	length int
}

// Index is an in-memory BM25 inverted index over chunks.
//
// Reads and writes to the same instance are serialized internally, but a
// full rebuild (Index, AddChunks, RemoveChunks) holds the write lock for
// its entire O(N) duration; callers doing many small mutations should
// batch chunks and call Index directly.
type Index struct {
	mu        sync.RWMutex
	k1        float64
	b         float64
	stopWords map[string]struct{}

	docs     []document
	postings map[string][]int // term -> doc positions, in indexing order
	df       map[string]int   // term -> number of docs containing it
	avgdl    float64
}

// New creates a BM25 index with the given configuration.
func New(cfg Config) *Index {
	if cfg.K1 <= 0 {
		cfg.K1 = DefaultK1
	}
	if cfg.B < 0 || cfg.B > 1 {
		cfg.B = DefaultB
	}
	if cfg.StopWords == nil {
		cfg.StopWords = DefaultStopWords
	}
	idx := &Index{
		k1:        cfg.K1,
		b:         cfg.B,
		stopWords: BuildStopWordMap(cfg.StopWords),
	}
	idx.rebuild(nil)
	return idx
}

// Index replaces the entire index with the given chunks. Empty input
// yields an empty, queryable index.
func (idx *Index) Index(ctx context.Context, chunks []*model.Chunk) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.rebuild(chunks)
	slog.Debug("bm25_index_rebuilt",
		slog.Int("chunks", len(idx.docs)),
		slog.Int("terms", len(idx.df)))
	return nil
}

// AddChunks adds chunks by rebuilding the full index. A chunk whose ID is
// already indexed replaces the previous version. This is an O(N) rebuild;
// see the type comment before calling it in a tight loop.
func (idx *Index) AddChunks(ctx context.Context, chunks []*model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	replaced := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		replaced[c.ID] = struct{}{}
	}
	merged := make([]*model.Chunk, 0, len(idx.docs)+len(chunks))
	for _, d := range idx.docs {
		if _, dup := replaced[d.chunk.ID]; !dup {
			merged = append(merged, d.chunk)
		}
	}
	merged = append(merged, chunks...)
	idx.rebuild(merged)
	return nil
}

// RemoveChunks removes chunks by ID, rebuilding the full index. Unknown
// IDs are ignored.
func (idx *Index) RemoveChunks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := make([]*model.Chunk, 0, len(idx.docs))
	for _, d := range idx.docs {
		if _, gone := drop[d.chunk.ID]; !gone {
			kept = append(kept, d.chunk)
		}
	}
	idx.rebuild(kept)
	return nil
}

// Clear empties the index.
func (idx *Index) Clear(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.rebuild(nil)
	return nil
}

// Count returns the number of indexed chunks.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs)
}

// rebuild recomputes all statistics from scratch. Caller holds the lock.
func (idx *Index) rebuild(chunks []*model.Chunk) {
	idx.docs = make([]document, 0, len(chunks))
	idx.postings = make(map[string][]int)
	idx.df = make(map[string]int)
	idx.avgdl = 0

	var totalLen int
	for _, c := range chunks {
		tokens := Tokenize(c.Content, idx.stopWords)
		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		pos := len(idx.docs)
		for t := range tf {
			idx.postings[t] = append(idx.postings[t], pos)
			idx.df[t]++
		}
		idx.docs = append(idx.docs, document{chunk: c, tf: tf, length: len(tokens)})
		totalLen += len(tokens)
	}
	if len(idx.docs) > 0 {
		idx.avgdl = float64(totalLen) / float64(len(idx.docs))
	}
}

// Search scores indexed chunks against the query using Okapi BM25:
//
//	score = Σ_t idf(t) * tf(t,d)*(k1+1) / (tf(t,d) + k1*(1 - b + b*|d|/avgdl))
//	idf(t) = ln((N - n(t) + 0.5)/(n(t) + 0.5) + 1)
//
// Chunks with no overlapping terms are excluded. Results are ordered by
// score descending, ties broken by indexing order, truncated to limit,
// and then normalized so the top score is exactly 1.0. Empty or fully
// filtered queries and empty indexes return an empty slice, never an
// error.
func (idx *Index) Search(ctx context.Context, query string, limit int) []model.SearchResult {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if limit <= 0 || len(idx.docs) == 0 {
		return []model.SearchResult{}
	}
	terms := Tokenize(query, idx.stopWords)
	if len(terms) == 0 {
		return []model.SearchResult{}
	}

	n := float64(len(idx.docs))
	scores := make(map[int]float64)
	// The summation runs over query tokens, so a term repeated in the
	// query contributes once per occurrence.
	for _, t := range terms {
		positions := idx.postings[t]
		if len(positions) == 0 {
			continue
		}
		nt := float64(idx.df[t])
		idf := math.Log((n-nt+0.5)/(nt+0.5) + 1)
		for _, pos := range positions {
			d := idx.docs[pos]
			tf := float64(d.tf[t])
			denom := tf + idx.k1*(1-idx.b+idx.b*float64(d.length)/idx.avgdl)
			scores[pos] += idf * tf * (idx.k1 + 1) / denom
		}
	}
	if len(scores) == 0 {
		return []model.SearchResult{}
	}

	// Deterministic ordering: collect by indexing order, then stable
	// sort by score descending.
	order := make([]int, 0, len(scores))
	for pos := range scores {
		order = append(order, pos)
	}
	sort.Ints(order)
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})

	if len(order) > limit {
		order = order[:limit]
	}
	top := scores[order[0]]
	results := make([]model.SearchResult, 0, len(order))
	for _, pos := range order {
		results = append(results, model.SearchResult{
			Chunk:  idx.docs[pos].chunk,
			Score:  scores[pos] / top,
			Source: model.SourceBM25,
		})
	}
	return results
}
