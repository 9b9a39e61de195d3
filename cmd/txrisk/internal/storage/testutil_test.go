package storage

import (
	"context"
	"path/filepath"
	"testing"
)

// setupTestDB opens a store in a temporary directory.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	var db, err = Open(context.Background(), filepath.Join(t.TempDir(), "store"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testDocs(n int) []Document {
	docs := make([]Document, n)
	for i := range docs {
		id := string(rune('0' + i))
		docs[i] = Document{
			ID:            id,
			Content:       `{"TRANSACTION_ID": "T` + id + `"}`,
			TransactionID: "T" + id,
			Amount:        "data not available",
			Date:          "data not available",
		}
	}
	return docs
}
