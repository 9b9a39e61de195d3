package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// AddDocuments writes docs and their vectors into collection in a single
// transaction, creating the collection on first use. The collection keeps the
// embedding model and dimensions of its first write; later writes must match.
func (db *DB) AddDocuments(ctx context.Context, collection, model string, docs []Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("got %d documents but %d vectors", len(docs), len(vectors))
	}
	if len(docs) == 0 {
		return nil
	}

	dims := len(vectors[0])
	for i, v := range vectors {
		if len(v) == 0 || len(v) != dims {
			return fmt.Errorf("vector %d has %d dimensions, want %d", i, len(v), dims)
		}
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	collectionID, err := ensureCollection(ctx, tx, collection, model, dims)
	if err != nil {
		return rollback(tx, err)
	}

	docStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (collection_id, doc_id, content, transaction_id, amount, date)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return rollback(tx, fmt.Errorf("failed to prepare document insert: %w", err))
	}
	defer docStmt.Close()

	vecStmt, err := tx.PrepareContext(ctx, `INSERT INTO embeddings (document_id, vector) VALUES (?, ?)`)
	if err != nil {
		return rollback(tx, fmt.Errorf("failed to prepare embedding insert: %w", err))
	}
	defer vecStmt.Close()

	for i, doc := range docs {
		result, err := docStmt.ExecContext(ctx, collectionID, doc.ID, doc.Content, doc.TransactionID, doc.Amount, doc.Date)
		if err != nil {
			return rollback(tx, fmt.Errorf("failed to insert document %s: %w", doc.ID, err))
		}
		rowID, err := result.LastInsertId()
		if err != nil {
			return rollback(tx, fmt.Errorf("failed to get last insert id: %w", err))
		}
		if _, err := vecStmt.ExecContext(ctx, rowID, serializeVector(vectors[i])); err != nil {
			return rollback(tx, fmt.Errorf("failed to insert embedding for document %s: %w", doc.ID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit documents: %w", err)
	}

	return nil
}

func ensureCollection(ctx context.Context, tx *sql.Tx, name, model string, dims int) (int64, error) {
	var (
		id          int64
		storedModel string
		storedDims  int
	)
	err := tx.QueryRowContext(ctx, `
		SELECT id, embedding_model, dimensions FROM collections WHERE name = ?
	`, name).Scan(&id, &storedModel, &storedDims)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		result, err := tx.ExecContext(ctx, `
			INSERT INTO collections (name, embedding_model, dimensions) VALUES (?, ?, ?)
		`, name, model, dims)
		if err != nil {
			return 0, fmt.Errorf("failed to create collection: %w", err)
		}
		return result.LastInsertId()
	case err != nil:
		return 0, fmt.Errorf("failed to get collection: %w", err)
	}

	if storedModel != model {
		return 0, fmt.Errorf("collection %q was built with model %q, not %q", name, storedModel, model)
	}
	if storedDims != dims {
		return 0, fmt.Errorf("collection %q holds %d-dimension vectors, not %d", name, storedDims, dims)
	}
	return id, nil
}

// GetDocument retrieves a document by its id within collection.
// It returns nil when the document does not exist.
func (db *DB) GetDocument(ctx context.Context, collection, id string) (*Document, error) {
	var doc Document
	err := db.conn.QueryRowContext(ctx, `
		SELECT d.doc_id, d.content, d.transaction_id, d.amount, d.date
		FROM documents d
		JOIN collections c ON d.collection_id = c.id
		WHERE c.name = ? AND d.doc_id = ?
	`, collection, id).Scan(&doc.ID, &doc.Content, &doc.TransactionID, &doc.Amount, &doc.Date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// CountDocuments returns the number of documents in collection.
func (db *DB) CountDocuments(ctx context.Context, collection string) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM documents d
		JOIN collections c ON d.collection_id = c.id
		WHERE c.name = ?
	`, collection).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// GetStoreInfo describes collection, or returns ErrCollectionNotFound.
func (db *DB) GetStoreInfo(ctx context.Context, collection string) (StoreInfo, error) {
	info := StoreInfo{Collection: collection}
	var createdAt sql.NullString
	err := db.conn.QueryRowContext(ctx, `
		SELECT c.embedding_model, c.dimensions, c.created_at, COUNT(d.id)
		FROM collections c
		LEFT JOIN documents d ON d.collection_id = c.id
		WHERE c.name = ?
		GROUP BY c.id
	`, collection).Scan(&info.EmbeddingModel, &info.Dimensions, &createdAt, &info.Documents)
	if errors.Is(err, sql.ErrNoRows) {
		return info, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	if err != nil {
		return info, fmt.Errorf("failed to get store info: %w", err)
	}

	if createdAt.Valid {
		parsed, err := parseTimestamp(createdAt.String)
		if err != nil {
			return info, fmt.Errorf("failed to parse collections.created_at: %w", err)
		}
		info.CreatedAt = parsed
	}
	return info, nil
}
