// Package config handles configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all tool configuration
type Config struct {
	// Historical data and similarity store
	DatasetPath string
	StoreDir    string
	Collection  string
	TopK        int
	RAGEnabled  bool // false runs without a retriever ("not provided" context)

	// Embeddings (OpenAI-compatible API; Ollama serves one under /v1)
	EmbeddingsURL   string
	EmbeddingsKey   string
	EmbeddingsModel string
	EmbeddingsBatch int

	// Text generation (Ollama)
	OllamaURL        string
	Model            string
	InferenceTimeout time.Duration

	// Observability
	LogLevel    string
	LogFormat   string // "text" or "json"
	MetricsFile string // node-exporter textfile, optional
}

// Defaults
const (
	DefaultDatasetPath      = "merged_dataset.csv"
	DefaultStoreDir         = "./fraud_store"
	DefaultCollection       = "transaction_records"
	DefaultTopK             = 5
	DefaultEmbeddingsURL    = "http://localhost:11434/v1"
	DefaultEmbeddingsModel  = "mxbai-embed-large"
	DefaultEmbeddingsBatch  = 32
	DefaultOllamaURL        = "http://localhost:11434"
	DefaultModel            = "llama3.2"
	DefaultInferenceTimeout = 5 * time.Minute
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
)

// Load reads configuration from environment variables.
// It loads a .env file if present (for local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatasetPath:      getEnv("TXRISK_DATASET", DefaultDatasetPath),
		StoreDir:         getEnv("TXRISK_STORE_DIR", DefaultStoreDir),
		Collection:       getEnv("TXRISK_COLLECTION", DefaultCollection),
		TopK:             getEnvInt("TXRISK_TOP_K", DefaultTopK),
		RAGEnabled:       getEnvBool("TXRISK_RAG", true),
		EmbeddingsURL:    getEnv("TXRISK_EMBEDDINGS_URL", DefaultEmbeddingsURL),
		EmbeddingsKey:    os.Getenv("TXRISK_EMBEDDINGS_KEY"), // Optional, Ollama needs none
		EmbeddingsModel:  getEnv("TXRISK_EMBEDDINGS_MODEL", DefaultEmbeddingsModel),
		EmbeddingsBatch:  getEnvInt("TXRISK_EMBEDDINGS_BATCH", DefaultEmbeddingsBatch),
		OllamaURL:        getEnv("TXRISK_OLLAMA_URL", DefaultOllamaURL),
		Model:            getEnv("TXRISK_MODEL", DefaultModel),
		InferenceTimeout: getEnvDuration("TXRISK_INFERENCE_TIMEOUT", DefaultInferenceTimeout),
		LogLevel:         getEnv("TXRISK_LOG_LEVEL", DefaultLogLevel),
		LogFormat:        getEnv("TXRISK_LOG_FORMAT", DefaultLogFormat),
		MetricsFile:      os.Getenv("TXRISK_METRICS_FILE"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("TXRISK_MODEL is required")
	}
	if c.OllamaURL == "" {
		return fmt.Errorf("TXRISK_OLLAMA_URL is required")
	}
	if c.InferenceTimeout < 0 {
		return fmt.Errorf("TXRISK_INFERENCE_TIMEOUT must not be negative")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("TXRISK_LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}

	if !c.RAGEnabled {
		return nil
	}

	if c.TopK <= 0 {
		return fmt.Errorf("TXRISK_TOP_K must be > 0")
	}
	if c.EmbeddingsBatch <= 0 {
		return fmt.Errorf("TXRISK_EMBEDDINGS_BATCH must be > 0")
	}
	if c.StoreDir == "" {
		return fmt.Errorf("TXRISK_STORE_DIR is required")
	}
	if c.Collection == "" {
		return fmt.Errorf("TXRISK_COLLECTION is required")
	}
	if c.EmbeddingsURL == "" {
		return fmt.Errorf("TXRISK_EMBEDDINGS_URL is required")
	}
	if c.EmbeddingsModel == "" {
		return fmt.Errorf("TXRISK_EMBEDDINGS_MODEL is required")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
