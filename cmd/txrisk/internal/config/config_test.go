package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"TXRISK_DATASET", "TXRISK_STORE_DIR", "TXRISK_COLLECTION", "TXRISK_TOP_K", "TXRISK_RAG",
	"TXRISK_EMBEDDINGS_URL", "TXRISK_EMBEDDINGS_KEY", "TXRISK_EMBEDDINGS_MODEL", "TXRISK_EMBEDDINGS_BATCH",
	"TXRISK_OLLAMA_URL", "TXRISK_MODEL", "TXRISK_INFERENCE_TIMEOUT",
	"TXRISK_LOG_LEVEL", "TXRISK_LOG_FORMAT", "TXRISK_METRICS_FILE",
}

// isolate clears config variables and moves into an empty directory so no
// .env file is picked up.
func isolate(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
	t.Chdir(t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultDatasetPath, cfg.DatasetPath)
	assert.Equal(t, DefaultStoreDir, cfg.StoreDir)
	assert.Equal(t, DefaultCollection, cfg.Collection)
	assert.Equal(t, 5, cfg.TopK)
	assert.True(t, cfg.RAGEnabled)
	assert.Equal(t, DefaultEmbeddingsURL, cfg.EmbeddingsURL)
	assert.Equal(t, "mxbai-embed-large", cfg.EmbeddingsModel)
	assert.Equal(t, DefaultOllamaURL, cfg.OllamaURL)
	assert.Equal(t, "llama3.2", cfg.Model)
	assert.Equal(t, 5*time.Minute, cfg.InferenceTimeout)
	assert.Empty(t, cfg.MetricsFile)
}

func TestLoadFromEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("TXRISK_TOP_K", "3")
	t.Setenv("TXRISK_RAG", "false")
	t.Setenv("TXRISK_MODEL", "mistral")
	t.Setenv("TXRISK_INFERENCE_TIMEOUT", "90s")
	t.Setenv("TXRISK_LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.TopK)
	assert.False(t, cfg.RAGEnabled)
	assert.Equal(t, "mistral", cfg.Model)
	assert.Equal(t, 90*time.Second, cfg.InferenceTimeout)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadDotEnv(t *testing.T) {
	isolate(t)
	for _, key := range configKeys {
		require.NoError(t, os.Unsetenv(key))
	}
	require.NoError(t, os.WriteFile(filepath.Join(".", ".env"), []byte("TXRISK_COLLECTION=from_dotenv\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("TXRISK_COLLECTION") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from_dotenv", cfg.Collection)
}

func TestInvalidValuesFallBack(t *testing.T) {
	isolate(t)
	t.Setenv("TXRISK_TOP_K", "five")
	t.Setenv("TXRISK_RAG", "maybe")
	t.Setenv("TXRISK_INFERENCE_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, cfg.TopK)
	assert.True(t, cfg.RAGEnabled)
	assert.Equal(t, DefaultInferenceTimeout, cfg.InferenceTimeout)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			StoreDir:        DefaultStoreDir,
			Collection:      DefaultCollection,
			TopK:            5,
			RAGEnabled:      true,
			EmbeddingsURL:   DefaultEmbeddingsURL,
			EmbeddingsModel: DefaultEmbeddingsModel,
			EmbeddingsBatch: 8,
			OllamaURL:       DefaultOllamaURL,
			Model:           DefaultModel,
			LogFormat:       "text",
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing model", func(c *Config) { c.Model = "" }, "TXRISK_MODEL"},
		{"zero top k", func(c *Config) { c.TopK = 0 }, "TXRISK_TOP_K"},
		{"zero batch", func(c *Config) { c.EmbeddingsBatch = 0 }, "TXRISK_EMBEDDINGS_BATCH"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "TXRISK_LOG_FORMAT"},
		{"negative timeout", func(c *Config) { c.InferenceTimeout = -time.Second }, "TXRISK_INFERENCE_TIMEOUT"},
		{"missing embeddings model", func(c *Config) { c.EmbeddingsModel = "" }, "TXRISK_EMBEDDINGS_MODEL"},
	}

	require.NoError(t, valid().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("rag disabled skips store checks", func(t *testing.T) {
		cfg := valid()
		cfg.RAGEnabled = false
		cfg.TopK = 0
		cfg.EmbeddingsModel = ""
		assert.NoError(t, cfg.Validate())
	})
}
