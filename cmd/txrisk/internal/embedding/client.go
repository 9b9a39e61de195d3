package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

const maxRetries = 3

// Client is an HTTP client for an OpenAI-compatible embeddings API.
// Ollama exposes one under /v1 and needs no API key.
type Client struct {
	apiKey    string
	model     string
	baseURL   string
	client    *http.Client
	retryBase time.Duration
}

// NewClient creates a new embeddings client with the provided base URL.
func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		apiKey:    apiKey,
		model:     model,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{Timeout: 60 * time.Second},
		retryBase: time.Second,
	}
}

// Model returns the embedding model name sent with every request.
func (c *Client) Model() string {
	return c.model
}

// GenerateEmbeddings returns one vector per input text, in input order.
func (c *Client) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if strings.TrimSpace(c.baseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(c.model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if len(texts) == 0 {
		return nil, nil
	}

	jsonData, err := json.Marshal(EmbeddingRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var body []byte
	backoff := retry.WithMaxRetries(maxRetries-1, retry.NewFibonacci(c.retryBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		// The request body is consumed by each attempt.
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(jsonData))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			return retry.RetryableError(fmt.Errorf("failed to execute request: %w", err))
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("failed to read response body: %w", err))
		}

		if resp.StatusCode != http.StatusOK {
			apiErr := statusError(resp.StatusCode, respBody)
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return retry.RetryableError(apiErr)
			}
			return apiErr
		}

		body = respBody
		return nil
	})
	if err != nil {
		return nil, err
	}

	var embeddingResp EmbeddingResponse
	if err := json.Unmarshal(body, &embeddingResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(embeddingResp.Data) == 0 {
		return nil, fmt.Errorf("no embedding data in response")
	}
	if len(embeddingResp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embeddingResp.Data))
	}

	sort.Slice(embeddingResp.Data, func(i, j int) bool {
		return embeddingResp.Data[i].Index < embeddingResp.Data[j].Index
	})

	vectors := make([][]float32, len(texts))
	for i, d := range embeddingResp.Data {
		if d.Index != i {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding at index %d", i)
		}
		vectors[i] = d.Embedding
	}

	return vectors, nil
}

func statusError(status int, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return fmt.Errorf("API error (%d): %s", status, errResp.Error.Message)
	}
	return fmt.Errorf("API returned status %d: %s", status, strings.TrimSpace(string(body)))
}
