package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 1.0, cfg.Search.VectorWeight)
	assert.Equal(t, 1.0, cfg.Search.BM25Weight)
	assert.Equal(t, 60, cfg.Search.RRFConstant)
	assert.Equal(t, 10, cfg.Search.MaxResults)
	assert.Equal(t, 1.5, cfg.BM25.K1)
	assert.Equal(t, 0.75, cfg.BM25.B)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
	assert.False(t, cfg.Reranker.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)

	require.NoError(t, cfg.Validate())
}

func TestLoadWithoutConfigFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoadMergesProjectFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
search:
  rrf_constant: 90
  max_results: 5
bm25:
  k1: 1.2
embeddings:
  provider: openai
  model: nomic-embed-text
  dimensions: 768
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".fathom.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 90, cfg.Search.RRFConstant)
	assert.Equal(t, 5, cfg.Search.MaxResults)
	assert.Equal(t, 1.2, cfg.BM25.K1)
	assert.Equal(t, "openai", cfg.Embeddings.Provider)
	assert.Equal(t, 768, cfg.Embeddings.Dimensions)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Untouched keys keep their defaults.
	assert.Equal(t, 0.75, cfg.BM25.B)
	assert.Equal(t, 1.0, cfg.Search.VectorWeight)
}

func TestLoadPrefersYamlOverYml(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".fathom.yaml"), []byte("search:\n  max_results: 7\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".fathom.yml"), []byte("search:\n  max_results: 3\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Search.MaxResults)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".fathom.yaml"), []byte("search: ["), 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FATHOM_RRF_CONSTANT", "120")
	t.Setenv("FATHOM_EMBED_PROVIDER", "openai")
	t.Setenv("FATHOM_EMBED_MODEL", "env-model")
	t.Setenv("FATHOM_LOG_LEVEL", "warn")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 120, cfg.Search.RRFConstant)
	assert.Equal(t, "openai", cfg.Embeddings.Provider)
	assert.Equal(t, "env-model", cfg.Embeddings.Model)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"negative vector weight", func(c *Config) { c.Search.VectorWeight = -1 }, "vector_weight"},
		{"zero rrf constant", func(c *Config) { c.Search.RRFConstant = 0 }, "rrf_constant"},
		{"zero max results", func(c *Config) { c.Search.MaxResults = 0 }, "max_results"},
		{"b above one", func(c *Config) { c.BM25.B = 1.5 }, "bm25.b"},
		{"unknown provider", func(c *Config) { c.Embeddings.Provider = "magic" }, "provider"},
		{"openai without model", func(c *Config) {
			c.Embeddings.Provider = "openai"
			c.Embeddings.Model = ""
		}, "embeddings.model"},
		{"reranker without model", func(c *Config) { c.Reranker.Enabled = true }, "reranker.model"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".fathom.yaml")

	cfg := NewConfig()
	cfg.Search.MaxResults = 42
	require.NoError(t, cfg.WriteYAML(path))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.Search.MaxResults)
}
