// Package config loads and validates fathom configuration from YAML
// files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/telltale-labs/fathom/internal/logging"
)

// Config represents the complete fathom configuration.
type Config struct {
	Search     SearchConfig     `yaml:"search"`
	BM25       BM25Config       `yaml:"bm25"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Reranker   RerankerConfig   `yaml:"reranker"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Logging    logging.Config   `yaml:"logging"`
}

// SearchConfig configures hybrid retrieval parameters.
type SearchConfig struct {
	// VectorWeight scales the vector list's reciprocal-rank contributions.
	VectorWeight float64 `yaml:"vector_weight"`

	// BM25Weight scales the lexical list's reciprocal-rank contributions.
	BM25Weight float64 `yaml:"bm25_weight"`

	// RRFConstant is the rank-fusion smoothing parameter (k).
	// Higher values reduce the impact of rank differences.
	RRFConstant int `yaml:"rrf_constant"`

	// VectorCandidates is how many results each query requests from the
	// vector store before fusion.
	VectorCandidates int `yaml:"vector_candidates"`

	// BM25Candidates is how many results each query requests from the
	// lexical index before fusion.
	BM25Candidates int `yaml:"bm25_candidates"`

	// MaxResults is the default result limit per query.
	MaxResults int `yaml:"max_results"`
}

// BM25Config configures the lexical index.
type BM25Config struct {
	K1 float64 `yaml:"k1"`
	B  float64 `yaml:"b"`

	// StopWords overrides the built-in English stop word list when set.
	StopWords []string `yaml:"stop_words"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider is "static" (local hash embeddings) or "openai"
	// (any OpenAI-compatible endpoint).
	Provider   string `yaml:"provider"`
	BaseURL    string `yaml:"base_url"`
	Token      string `yaml:"token"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`

	// CacheSize is the LRU embedding cache capacity. Zero disables caching.
	CacheSize int `yaml:"cache_size"`
}

// RerankerConfig configures the optional second retrieval stage.
type RerankerConfig struct {
	// Enabled turns on reranking for queries that request it.
	Enabled bool `yaml:"enabled"`

	// Model is the judge completion model identifier.
	Model string `yaml:"model"`

	// Concurrency bounds parallel judge calls.
	Concurrency int `yaml:"concurrency"`
}

// IngestConfig configures document loading for the CLI.
type IngestConfig struct {
	// Extensions lists file suffixes to ingest (default: .txt, .md).
	Extensions []string `yaml:"extensions"`

	// MaxChunkSize is the paragraph merge ceiling in characters.
	MaxChunkSize int `yaml:"max_chunk_size"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Search: SearchConfig{
			VectorWeight:     1.0,
			BM25Weight:       1.0,
			RRFConstant:      60,
			VectorCandidates: 25,
			BM25Candidates:   25,
			MaxResults:       10,
		},
		BM25: BM25Config{
			K1: 1.5,
			B:  0.75,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "static",
			BaseURL:    "http://localhost:11434",
			Dimensions: 256,
			CacheSize:  1000,
		},
		Reranker: RerankerConfig{
			Enabled:     false,
			Concurrency: 8,
		},
		Ingest: IngestConfig{
			Extensions:   []string{".txt", ".md"},
			MaxChunkSize: 1200,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load builds configuration for dir: defaults, then .fathom.yaml or
// .fathom.yml in dir, then FATHOM_* environment overrides.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .fathom.yaml or .fathom.yml.
func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{".fathom.yaml", ".fathom.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return c.loadYAML(path)
		}
	}
	// No config file is fine, use defaults.
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Search.VectorWeight != 0 {
		c.Search.VectorWeight = other.Search.VectorWeight
	}
	if other.Search.BM25Weight != 0 {
		c.Search.BM25Weight = other.Search.BM25Weight
	}
	if other.Search.RRFConstant != 0 {
		c.Search.RRFConstant = other.Search.RRFConstant
	}
	if other.Search.VectorCandidates != 0 {
		c.Search.VectorCandidates = other.Search.VectorCandidates
	}
	if other.Search.BM25Candidates != 0 {
		c.Search.BM25Candidates = other.Search.BM25Candidates
	}
	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}

	if other.BM25.K1 != 0 {
		c.BM25.K1 = other.BM25.K1
	}
	if other.BM25.B != 0 {
		c.BM25.B = other.BM25.B
	}
	if len(other.BM25.StopWords) > 0 {
		c.BM25.StopWords = other.BM25.StopWords
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.BaseURL != "" {
		c.Embeddings.BaseURL = other.Embeddings.BaseURL
	}
	if other.Embeddings.Token != "" {
		c.Embeddings.Token = other.Embeddings.Token
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}

	if other.Reranker.Enabled {
		c.Reranker.Enabled = true
	}
	if other.Reranker.Model != "" {
		c.Reranker.Model = other.Reranker.Model
	}
	if other.Reranker.Concurrency != 0 {
		c.Reranker.Concurrency = other.Reranker.Concurrency
	}

	if len(other.Ingest.Extensions) > 0 {
		c.Ingest.Extensions = other.Ingest.Extensions
	}
	if other.Ingest.MaxChunkSize != 0 {
		c.Ingest.MaxChunkSize = other.Ingest.MaxChunkSize
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.Format != "" {
		c.Logging.Format = other.Logging.Format
	}
}

// applyEnvOverrides applies FATHOM_* environment variables, which take
// precedence over file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("FATHOM_VECTOR_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.Search.VectorWeight = f
		}
	}
	if v := os.Getenv("FATHOM_BM25_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.Search.BM25Weight = f
		}
	}
	if v := os.Getenv("FATHOM_RRF_CONSTANT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.RRFConstant = n
		}
	}
	if v := os.Getenv("FATHOM_EMBED_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("FATHOM_EMBED_BASE_URL"); v != "" {
		c.Embeddings.BaseURL = v
	}
	if v := os.Getenv("FATHOM_EMBED_TOKEN"); v != "" {
		c.Embeddings.Token = v
	}
	if v := os.Getenv("FATHOM_EMBED_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("FATHOM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the configuration for values that would break retrieval.
func (c *Config) Validate() error {
	if c.Search.VectorWeight <= 0 {
		return fmt.Errorf("search.vector_weight must be positive, got %v", c.Search.VectorWeight)
	}
	if c.Search.BM25Weight <= 0 {
		return fmt.Errorf("search.bm25_weight must be positive, got %v", c.Search.BM25Weight)
	}
	if c.Search.RRFConstant <= 0 {
		return fmt.Errorf("search.rrf_constant must be positive, got %d", c.Search.RRFConstant)
	}
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be positive, got %d", c.Search.MaxResults)
	}
	if c.BM25.K1 < 0 {
		return fmt.Errorf("bm25.k1 must be non-negative, got %v", c.BM25.K1)
	}
	if c.BM25.B < 0 || c.BM25.B > 1 {
		return fmt.Errorf("bm25.b must be in [0, 1], got %v", c.BM25.B)
	}
	switch c.Embeddings.Provider {
	case "static", "openai":
	default:
		return fmt.Errorf("embeddings.provider must be \"static\" or \"openai\", got %q", c.Embeddings.Provider)
	}
	if c.Embeddings.Provider == "openai" {
		if c.Embeddings.Model == "" {
			return fmt.Errorf("embeddings.model is required for the openai provider")
		}
		if c.Embeddings.Dimensions <= 0 {
			return fmt.Errorf("embeddings.dimensions must be positive, got %d", c.Embeddings.Dimensions)
		}
	}
	if c.Reranker.Enabled && c.Reranker.Model == "" {
		return fmt.Errorf("reranker.model is required when reranker.enabled is true")
	}
	if c.Reranker.Concurrency < 0 {
		return fmt.Errorf("reranker.concurrency must be non-negative, got %d", c.Reranker.Concurrency)
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}
