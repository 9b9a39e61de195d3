// Package indexer turns historical transaction records into a similarity
// store and retrieves the records closest to a query transaction.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/dataset"
	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/metrics"
	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/storage"
	"github.com/jason-riddle/ollama-go/cmd/txrisk/internal/txjson"
)

// NotAvailable replaces metadata the source record does not carry.
const NotAvailable = "data not available"

// Source fields copied into document metadata.
const (
	FieldTransactionID = "TRANSACTION_ID"
	FieldAmount        = "AMOUNT_AUTHORIZED"
	FieldDate          = "ISO_TRX_LOCAL_DATE_AND_TIME"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// BootstrapOptions configures the one-time index build.
type BootstrapOptions struct {
	StoreDir    string
	DatasetPath string
	Collection  string
}

// BuildSummary describes the result of a bootstrap.
type BuildSummary struct {
	StoreDir            string `json:"store_dir"`
	Collection          string `json:"collection"`
	Skipped             bool   `json:"skipped"`
	RecordsLoaded       int    `json:"records_loaded"`
	DocumentsIndexed    int    `json:"documents_indexed"`
	EmbeddingsGenerated int    `json:"embeddings_generated"`
	DurationMs          int64  `json:"duration_ms"`
}

// BootstrapError reports a failed index build. Stage is "embed", "store"
// or "open".
type BootstrapError struct {
	Stage string
	Err   error
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("index bootstrap failed at %s: %v", e.Stage, e.Err)
}

func (e *BootstrapError) Unwrap() error { return e.Err }

// BuildDocuments converts records into store documents, one per record, with
// the record's ordinal as its id.
func BuildDocuments(records []txjson.Object) []storage.Document {
	docs := make([]storage.Document, len(records))
	for i, record := range records {
		docs[i] = storage.Document{
			ID:            fmt.Sprint(i),
			Content:       txjson.Format(record),
			TransactionID: metadata(record, FieldTransactionID),
			Amount:        metadata(record, FieldAmount),
			Date:          metadata(record, FieldDate),
		}
	}
	return docs
}

func metadata(record txjson.Object, key string) string {
	v, ok := record.Get(key)
	if !ok {
		return NotAvailable
	}
	return txjson.Scalar(v)
}

// Bootstrap returns the store at opts.StoreDir, building it from the dataset
// first when the directory does not exist. An existing directory is reused as
// is; nothing is loaded, embedded or written.
//
// A *dataset.LoadError is returned unchanged. Other failures are wrapped in
// *BootstrapError.
func Bootstrap(ctx context.Context, opts BootstrapOptions, embedder Embedder) (*storage.DB, BuildSummary, error) {
	summary := BuildSummary{StoreDir: opts.StoreDir, Collection: opts.Collection}
	start := time.Now()

	if opts.StoreDir == "" {
		return nil, summary, errors.New("store directory is required")
	}
	if opts.Collection == "" {
		return nil, summary, errors.New("collection is required")
	}

	if storage.Exists(opts.StoreDir) {
		db, err := storage.Open(ctx, opts.StoreDir)
		if err != nil {
			return nil, summary, &BootstrapError{Stage: "open", Err: err}
		}
		slog.Info("Using existing store", "db", db.Path(), "collection", opts.Collection)
		summary.Skipped = true
		summary.DurationMs = time.Since(start).Milliseconds()
		return db, summary, nil
	}

	if embedder == nil {
		return nil, summary, errors.New("embedder is required")
	}

	records, err := dataset.Load(opts.DatasetPath)
	if err != nil {
		return nil, summary, err
	}
	summary.RecordsLoaded = len(records)
	metrics.RecordsLoadedTotal.Add(float64(len(records)))
	var fields []string
	if len(records) > 0 {
		fields = records[0].Keys()
	}
	slog.Info("Loaded dataset", "path", opts.DatasetPath, "records", len(records), "first_record_fields", fields)

	docs := BuildDocuments(records)
	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}

	// Embed before creating the directory so a failure leaves nothing behind.
	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, summary, &BootstrapError{Stage: "embed", Err: err}
	}
	if len(vectors) != len(docs) {
		return nil, summary, &BootstrapError{
			Stage: "embed",
			Err:   fmt.Errorf("got %d embeddings for %d documents", len(vectors), len(docs)),
		}
	}
	summary.EmbeddingsGenerated = len(vectors)

	db, err := storage.Open(ctx, opts.StoreDir)
	if err != nil {
		return nil, summary, &BootstrapError{Stage: "store", Err: err}
	}

	if err := db.AddDocuments(ctx, opts.Collection, embedder.Model(), docs, vectors); err != nil {
		db.Close()
		return nil, summary, &BootstrapError{Stage: "store", Err: err}
	}
	summary.DocumentsIndexed = len(docs)
	metrics.DocumentsIndexedTotal.Add(float64(len(docs)))

	summary.DurationMs = time.Since(start).Milliseconds()
	slog.Info("Built store",
		"db", db.Path(),
		"collection", opts.Collection,
		"documents", summary.DocumentsIndexed,
		"duration_ms", summary.DurationMs,
	)

	return db, summary, nil
}
