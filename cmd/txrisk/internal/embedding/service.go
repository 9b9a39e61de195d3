package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/metrics"
)

// DefaultBatchSize is used when NewService gets a non-positive batch size.
const DefaultBatchSize = 32

// Service provides embedding generation with batching and metrics.
type Service struct {
	client    *Client
	batchSize int
}

// NewService creates a new embedding service
func NewService(client *Client, batchSize int) *Service {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Service{
		client:    client,
		batchSize: batchSize,
	}
}

// Model returns the underlying client's model name.
func (s *Service) Model() string {
	return s.client.Model()
}

// EmbedDocuments embeds texts in batches, preserving input order.
func (s *Service) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			metrics.EmbeddingsFailedTotal.Inc()
			return nil, fmt.Errorf("text %d cannot be empty", i)
		}
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		end := min(start+s.batchSize, len(texts))

		slog.Debug("Generating embeddings", "batch_start", start, "batch_size", end-start)
		batch, err := s.client.GenerateEmbeddings(ctx, texts[start:end])
		if err != nil {
			metrics.EmbeddingsFailedTotal.Inc()
			return nil, fmt.Errorf("failed to generate embeddings for texts %d-%d: %w", start, end-1, err)
		}

		metrics.EmbeddingsGeneratedTotal.Add(float64(len(batch)))
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

// EmbedQuery embeds a single query text.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		metrics.EmbeddingsFailedTotal.Inc()
		return nil, fmt.Errorf("text cannot be empty")
	}

	vectors, err := s.client.GenerateEmbeddings(ctx, []string{text})
	if err != nil {
		metrics.EmbeddingsFailedTotal.Inc()
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	metrics.EmbeddingsGeneratedTotal.Inc()
	slog.Debug("Generated embedding", "dimensions", len(vectors[0]))
	return vectors[0], nil
}
