package rerank

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telltale-labs/fathom/pkg/model"
)

// scriptedCompleter returns canned responses keyed by chunk content.
type scriptedCompleter struct {
	mu        sync.Mutex
	responses map[string]string
	err       error
	calls     int
}

func (s *scriptedCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	for needle, response := range s.responses {
		if strings.Contains(prompt, needle) {
			return response, nil
		}
	}
	return "5", nil
}

func candidate(id, content string) model.SearchResult {
	return model.SearchResult{
		Chunk:  &model.Chunk{ID: id, Content: content},
		Score:  0.5,
		Source: model.SourceHybrid,
	}
}

func TestParseJudgeScore(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     float64
	}{
		{"bare integer", "8", 8},
		{"decimal", "7.5", 7.5},
		{"number inside prose", "I would rate this 9 out of 10.", 9},
		{"leading whitespace", "  6\n", 6},
		{"no number defaults", "highly relevant", judgeDefaultScore},
		{"empty defaults", "", judgeDefaultScore},
		{"above scale clamps", "42", 10},
		{"zero", "0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseJudgeScore(tt.response))
		})
	}
}

func TestJudgeRerankOrdersByScore(t *testing.T) {
	completer := &scriptedCompleter{responses: map[string]string{
		"doc one":   "3",
		"doc two":   "9",
		"doc three": "6",
	}}
	judge, err := NewJudgeReranker(completer)
	require.NoError(t, err)

	results, err := judge.Rerank(context.Background(), "query", []model.SearchResult{
		candidate("1", "doc one"),
		candidate("2", "doc two"),
		candidate("3", "doc three"),
	}, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "2", results[0].Chunk.ID)
	assert.Equal(t, "3", results[1].Chunk.ID)
	assert.Equal(t, "1", results[2].Chunk.ID)

	// Scores normalize from the 0-10 scale to [0,1].
	assert.InDelta(t, 0.9, results[0].Score, 1e-9)
	for _, r := range results {
		assert.Equal(t, model.SourceReranked, r.Source)
	}
}

func TestJudgeRerankTruncatesToTopN(t *testing.T) {
	completer := &scriptedCompleter{responses: map[string]string{}}
	judge, err := NewJudgeReranker(completer)
	require.NoError(t, err)

	in := make([]model.SearchResult, 0, 5)
	for i := 0; i < 5; i++ {
		in = append(in, candidate(fmt.Sprintf("%d", i), fmt.Sprintf("doc %d", i)))
	}

	results, err := judge.Rerank(context.Background(), "query", in, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, 5, completer.calls, "every candidate is scored before truncation")
}

func TestJudgeRerankEmptyInput(t *testing.T) {
	completer := &scriptedCompleter{}
	judge, err := NewJudgeReranker(completer)
	require.NoError(t, err)

	results, err := judge.Rerank(context.Background(), "query", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, completer.calls)
}

func TestJudgeRerankPropagatesCompleterError(t *testing.T) {
	wantErr := errors.New("model unavailable")
	judge, err := NewJudgeReranker(&scriptedCompleter{err: wantErr})
	require.NoError(t, err)

	_, err = judge.Rerank(context.Background(), "query", []model.SearchResult{
		candidate("1", "doc one"),
	}, 0)
	require.ErrorIs(t, err, wantErr)
}

func TestJudgeRerankTieKeepsCandidateOrder(t *testing.T) {
	// Every response parses to the default score, so the incoming order
	// must survive the stable sort.
	completer := &scriptedCompleter{responses: map[string]string{}}
	judge, err := NewJudgeReranker(completer, WithJudgeConcurrency(2))
	require.NoError(t, err)

	results, err := judge.Rerank(context.Background(), "query", []model.SearchResult{
		candidate("first", "doc a"),
		candidate("second", "doc b"),
		candidate("third", "doc c"),
	}, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "first", results[0].Chunk.ID)
	assert.Equal(t, "second", results[1].Chunk.ID)
	assert.Equal(t, "third", results[2].Chunk.ID)
}

func TestNewJudgeRerankerNilCompleter(t *testing.T) {
	_, err := NewJudgeReranker(nil)
	assert.ErrorIs(t, err, ErrNilScorer)
}

func TestExcerpt(t *testing.T) {
	long := strings.Repeat("é", 600)
	got := excerpt(long, judgeExcerptLimit)
	assert.Equal(t, judgeExcerptLimit, len([]rune(got)))

	assert.Equal(t, "short", excerpt("  short  ", judgeExcerptLimit))
}
