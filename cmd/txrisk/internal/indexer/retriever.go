package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/storage"
)

// DefaultTopK is the number of similar records retrieved per query.
const DefaultTopK = 5

// Context is the ordered set of records most similar to a query.
type Context []storage.SearchResult

// String renders the records for inclusion in a prompt.
func (c Context) String() string {
	if len(c) == 0 {
		return "[]"
	}
	var b strings.Builder
	for i, r := range c {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] id=%s transaction_id=%s amount=%s date=%s similarity=%.4f\n%s",
			i+1, r.ID, r.TransactionID, r.Amount, r.Date, r.SimilarityScore, r.Content)
	}
	return b.String()
}

// Retriever finds the stored records most similar to a query.
type Retriever struct {
	db         *storage.DB
	embedder   Embedder
	collection string
	k          int
}

// NewRetriever checks that collection was embedded with the embedder's model.
// A collection that was never written is accepted and retrieves nothing.
func NewRetriever(ctx context.Context, db *storage.DB, embedder Embedder, collection string, k int) (*Retriever, error) {
	if db == nil {
		return nil, errors.New("storage database is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if k <= 0 {
		k = DefaultTopK
	}

	info, err := db.GetStoreInfo(ctx, collection)
	switch {
	case errors.Is(err, storage.ErrCollectionNotFound):
	case err != nil:
		return nil, err
	case info.EmbeddingModel != embedder.Model():
		return nil, fmt.Errorf("collection %q was built with embedding model %q, configured model is %q",
			collection, info.EmbeddingModel, embedder.Model())
	}

	return &Retriever{db: db, embedder: embedder, collection: collection, k: k}, nil
}

// Retrieve embeds query and returns up to k records, most similar first.
func (r *Retriever) Retrieve(ctx context.Context, query string) (Context, error) {
	results, err := r.search(ctx, query, r.k, 0)
	if err != nil {
		return nil, err
	}
	return Context(results), nil
}

func (r *Retriever) search(ctx context.Context, query string, limit int, threshold float64) ([]storage.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is required")
	}

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("generate embedding for query: %w", err)
	}

	return r.db.SearchSimilar(ctx, r.collection, vector, limit, threshold)
}

// SearchSummary includes the results and timing for a search.
type SearchSummary struct {
	Results      []storage.SearchResult `json:"results"`
	QueryTimeMs  int64                  `json:"query_time_ms"`
	TotalResults int                    `json:"total_results"`
}

// Search runs an ad hoc similarity search with its own limit and threshold.
func (r *Retriever) Search(ctx context.Context, query string, limit int, threshold float64) (SearchSummary, error) {
	var summary SearchSummary
	if limit <= 0 {
		limit = r.k
	}

	start := time.Now()
	results, err := r.search(ctx, query, limit, threshold)
	if err != nil {
		return summary, err
	}

	summary.Results = results
	summary.TotalResults = len(results)
	summary.QueryTimeMs = time.Since(start).Milliseconds()
	return summary, nil
}
