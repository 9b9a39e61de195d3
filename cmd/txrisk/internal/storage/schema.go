package storage

import (
	"errors"
	"time"
)

// ErrCollectionNotFound is returned when a named collection has never been written.
var ErrCollectionNotFound = errors.New("collection not found")

// Document is one historical transaction record in a collection.
type Document struct {
	ID            string `json:"id"`
	Content       string `json:"content"`
	TransactionID string `json:"transaction_id"`
	Amount        string `json:"amount"`
	Date          string `json:"date"`
}

// SearchResult is a document with its similarity to the query vector.
type SearchResult struct {
	Document
	SimilarityScore float64 `json:"similarity_score"`
}

// StoreInfo describes a collection.
type StoreInfo struct {
	Collection     string    `json:"collection"`
	EmbeddingModel string    `json:"embedding_model"`
	Dimensions     int       `json:"dimensions"`
	Documents      int       `json:"documents"`
	CreatedAt      time.Time `json:"created_at"`
}
