package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/telltale-labs/fathom/internal/config"
	"github.com/telltale-labs/fathom/internal/ingest"
	"github.com/telltale-labs/fathom/pkg/hybrid"
	"github.com/telltale-labs/fathom/pkg/model"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	dir     string
	limit   int
	format  string
	rerank  bool
	filters []string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Index a directory and run a hybrid query against it",
		Long: `Index the documents under --dir, then run a hybrid query.

Keyword (BM25) and embedding results are fused by reciprocal rank.
With --rerank, an LLM judge rescores the fused candidates.

Examples:
  fathom search "error handling" --dir ./docs
  fathom search "retry policy" --dir ./docs --limit 5 --format json
  fathom search "deployment" --dir ./docs --filter ext=.md --rerank`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.dir, "dir", "d", ".", "Directory of documents to index")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (0 = configured default)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.rerank, "rerank", false, "Rerank fused results with the configured judge model")
	cmd.Flags().StringSliceVar(&opts.filters, "filter", nil, "Metadata filter as key=value (repeatable, vector results only)")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	cfg, err := config.Load(opts.dir)
	if err != nil {
		return err
	}
	if opts.rerank && !cfg.Reranker.Enabled {
		return fmt.Errorf("--rerank requires reranker.enabled and reranker.model in .fathom.yaml")
	}

	filter, err := parseFilters(opts.filters)
	if err != nil {
		return err
	}

	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	loader := ingest.NewLoader(
		ingest.NewChunkerWithOptions(ingest.ChunkerOptions{MaxChunkSize: cfg.Ingest.MaxChunkSize}),
		cfg.Ingest.Extensions,
	)
	chunks, err := loader.LoadDir(ctx, opts.dir)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return fmt.Errorf("no documents found under %s", opts.dir)
	}

	if err := engine.Add(ctx, chunks); err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	stats := engine.Stats()
	slog.Info("index_built", "chunks", stats.VectorCount)

	result, err := engine.Search(ctx, query, hybrid.SearchOptions{
		Limit:  opts.limit,
		Filter: filter,
		Rerank: opts.rerank,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	slog.Info("search_complete",
		"results", len(result.Results),
		"retrieval_ms", result.RetrievalTime.Milliseconds(),
		"total_ms", result.TotalTime.Milliseconds())

	switch opts.format {
	case "json":
		return formatJSON(cmd, result)
	default:
		return formatText(cmd, result)
	}
}

// parseFilters converts key=value pairs to typed metadata. Values that
// parse as booleans or numbers are typed accordingly.
func parseFilters(pairs []string) (model.Metadata, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	filter := make(model.Metadata, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q, expected key=value", pair)
		}
		switch {
		case raw == "true" || raw == "false":
			filter[key] = model.Bool(raw == "true")
		default:
			if n, err := strconv.ParseFloat(raw, 64); err == nil {
				filter[key] = model.Number(n)
			} else {
				filter[key] = model.String(raw)
			}
		}
	}
	return filter, nil
}

// formatText outputs results in human-readable format.
func formatText(cmd *cobra.Command, result *model.RetrievalResult) error {
	out := cmd.OutOrStdout()

	if len(result.Results) == 0 {
		fmt.Fprintf(out, "No results found for %q\n", result.Query)
		return nil
	}

	fmt.Fprintf(out, "Found %d results for %q (%.0fms):\n\n",
		len(result.Results), result.Query, float64(result.TotalTime.Milliseconds()))

	for i, r := range result.Results {
		if r.Chunk == nil {
			continue
		}
		fmt.Fprintf(out, "%d. %s (score: %.4f, source: %s)\n", i+1, r.Chunk.DocumentID, r.Score, r.Source)
		for _, line := range snippet(r.Chunk.Content, 3) {
			fmt.Fprintf(out, "   %s\n", line)
		}
		fmt.Fprintln(out)
	}
	return nil
}

// formatJSON outputs results in JSON format.
func formatJSON(cmd *cobra.Command, result *model.RetrievalResult) error {
	type jsonResult struct {
		ID         string  `json:"id"`
		DocumentID string  `json:"document_id"`
		Score      float64 `json:"score"`
		Source     string  `json:"source"`
		Content    string  `json:"content"`
	}

	out := make([]jsonResult, 0, len(result.Results))
	for _, r := range result.Results {
		if r.Chunk == nil {
			continue
		}
		out = append(out, jsonResult{
			ID:         r.Chunk.ID,
			DocumentID: r.Chunk.DocumentID,
			Score:      r.Score,
			Source:     string(r.Source),
			Content:    r.Chunk.Content,
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// snippet returns the first n lines of content.
func snippet(content string, n int) []string {
	lines := strings.Split(content, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
