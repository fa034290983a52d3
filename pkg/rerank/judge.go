package rerank

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/telltale-labs/fathom/pkg/model"
)

// Completer is the generative scoring collaborator for judge reranking:
// one prompt in, free-form text out. The judge parses a rating from the
// response.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const (
	// judgeExcerptLimit caps how much chunk content goes into a prompt.
	judgeExcerptLimit = 500

	// judgeDefaultScore is assumed when the response contains no number.
	judgeDefaultScore = 5.0

	// DefaultJudgeConcurrency bounds the scoring fan-out.
	DefaultJudgeConcurrency = 8
)

const judgePromptTemplate = `Rate the relevance of the following document to the query on a scale of 0 to 10.
Respond with only the number.

Query: %s

Document: %s

Relevance score:`

// judgeScoreRegex matches the first decimal number in a response.
var judgeScoreRegex = regexp.MustCompile(`\d+(?:\.\d+)?`)

// JudgeReranker asks a generative model to rate each candidate's
// relevance on a 0-10 scale, normalized to [0,1]. Scoring calls are
// independent and run concurrently.
type JudgeReranker struct {
	completer   Completer
	concurrency int
}

var _ Reranker = (*JudgeReranker)(nil)

// JudgeOption configures a JudgeReranker.
type JudgeOption func(*JudgeReranker)

// WithJudgeConcurrency bounds how many scoring calls run at once.
func WithJudgeConcurrency(n int) JudgeOption {
	return func(j *JudgeReranker) {
		if n > 0 {
			j.concurrency = n
		}
	}
}

// NewJudgeReranker creates a judge reranker.
func NewJudgeReranker(completer Completer, opts ...JudgeOption) (*JudgeReranker, error) {
	if completer == nil {
		return nil, ErrNilScorer
	}
	j := &JudgeReranker{completer: completer, concurrency: DefaultJudgeConcurrency}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Rerank issues one scoring call per candidate, fanned out concurrently,
// and orders candidates by the parsed scores once all calls complete.
// A scoring-call failure propagates unmodified.
func (j *JudgeReranker) Rerank(ctx context.Context, query string, results []model.SearchResult, topN int) ([]model.SearchResult, error) {
	if len(results) == 0 {
		return []model.SearchResult{}, nil
	}

	start := time.Now()
	scores := make([]float64, len(results))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)
	for i, res := range results {
		g.Go(func() error {
			prompt := fmt.Sprintf(judgePromptTemplate, query, excerpt(res.Chunk.Content, judgeExcerptLimit))
			response, err := j.completer.Complete(gctx, prompt)
			if err != nil {
				return fmt.Errorf("judge candidate %q: %w", res.Chunk.ID, err)
			}
			scores[i] = parseJudgeScore(response) / 10.0
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := finalize(results, scores, topN)
	slog.Debug("judge_rerank",
		slog.Int("candidates", len(results)),
		slog.Int("returned", len(out)),
		slog.Duration("took", time.Since(start)))
	return out, nil
}

// parseJudgeScore extracts the first decimal number from a judge
// response, defaulting to 5.0 and clamping to [0,10].
func parseJudgeScore(response string) float64 {
	match := judgeScoreRegex.FindString(response)
	if match == "" {
		return judgeDefaultScore
	}
	score, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return judgeDefaultScore
	}
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}

// excerpt truncates content to at most limit characters.
func excerpt(content string, limit int) string {
	content = strings.TrimSpace(content)
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit])
}
