// Package openai provides collaborator adapters for OpenAI-compatible
// APIs (OpenAI, Ollama, LocalAI, vLLM): an embed.Embedder and a
// rerank.Completer, both built on langchaingo. Collaborators are
// constructed eagerly so missing configuration fails at startup instead
// of on the first query.
package openai

import (
	"context"
	"errors"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/telltale-labs/fathom/pkg/embed"
	"github.com/telltale-labs/fathom/pkg/rerank"
)

// Config holds connection settings for an OpenAI-compatible service.
type Config struct {
	// BaseURL is the API base, e.g. "http://localhost:11434/v1".
	BaseURL string

	// Token is the API key. Local services usually accept any value;
	// "none" is substituted when empty for those.
	Token string

	// EmbeddingModel is the embedding model identifier.
	EmbeddingModel string

	// EmbeddingDimensions is the dimensionality the model produces.
	EmbeddingDimensions int

	// CompletionModel is the chat model used for judge scoring.
	CompletionModel string
}

// Normalize appends the /v1 suffix expected by OpenAI-compatible APIs
// when missing.
func (c *Config) Normalize() {
	if c.BaseURL != "" && !strings.HasSuffix(c.BaseURL, "/v1") {
		c.BaseURL = strings.TrimSuffix(c.BaseURL, "/") + "/v1"
	}
	if c.Token == "" {
		c.Token = "none"
	}
}

// Embedder adapts an OpenAI-compatible embeddings API to embed.Embedder.
type Embedder struct {
	embedder   embeddings.Embedder
	model      string
	dimensions int
}

var _ embed.Embedder = (*Embedder)(nil)

// NewEmbedder creates an embedder for the configured service. BaseURL,
// EmbeddingModel, and EmbeddingDimensions are required.
func NewEmbedder(cfg Config) (*Embedder, error) {
	cfg.Normalize()
	if cfg.BaseURL == "" {
		return nil, errors.New("openai: BaseURL is required")
	}
	if cfg.EmbeddingModel == "" {
		return nil, errors.New("openai: EmbeddingModel is required")
	}
	if cfg.EmbeddingDimensions <= 0 {
		return nil, errors.New("openai: EmbeddingDimensions is required")
	}

	client, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(cfg.Token),
		openai.WithEmbeddingModel(cfg.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}
	return &Embedder{
		embedder:   embedder,
		model:      cfg.EmbeddingModel,
		dimensions: cfg.EmbeddingDimensions,
	}, nil
}

// Embed generates an embedding for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.embedder.EmbedQuery(ctx, text)
}

// EmbedBatch generates embeddings for multiple texts in one request.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return e.embedder.EmbedDocuments(ctx, texts)
}

// Dimensions returns the configured embedding dimensionality.
func (e *Embedder) Dimensions() int { return e.dimensions }

// ModelName returns the embedding model identifier.
func (e *Embedder) ModelName() string { return e.model }

// Completer adapts an OpenAI-compatible chat API to rerank.Completer.
type Completer struct {
	llm *openai.LLM
}

var _ rerank.Completer = (*Completer)(nil)

// NewCompleter creates a completion client for judge reranking. BaseURL
// and CompletionModel are required.
func NewCompleter(cfg Config) (*Completer, error) {
	cfg.Normalize()
	if cfg.BaseURL == "" {
		return nil, errors.New("openai: BaseURL is required")
	}
	if cfg.CompletionModel == "" {
		return nil, errors.New("openai: CompletionModel is required")
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(cfg.Token),
		openai.WithModel(cfg.CompletionModel),
	)
	if err != nil {
		return nil, err
	}
	return &Completer{llm: llm}, nil
}

// Complete sends a single prompt and returns the model's text response.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, c.llm, prompt)
}
