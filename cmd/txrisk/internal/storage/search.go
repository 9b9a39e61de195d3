package storage

import (
	"context"
	"fmt"
	"sort"
)

// SearchSimilar returns up to limit documents in collection ordered by cosine
// similarity to queryVector, most similar first. A threshold <= 0 disables
// filtering; a limit <= 0 returns every match.
func (db *DB) SearchSimilar(ctx context.Context, collection string, queryVector []float32, limit int, threshold float64) ([]SearchResult, error) {
	// Vectors are scored in memory; collections are small enough for a full scan.
	rows, err := db.conn.QueryContext(ctx, `
		SELECT d.doc_id, d.content, d.transaction_id, d.amount, d.date, e.vector
		FROM embeddings e
		JOIN documents d ON e.document_id = d.id
		JOIN collections c ON d.collection_id = c.id
		WHERE c.name = ?
		ORDER BY d.id
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var (
			r           SearchResult
			vectorBytes []byte
		)
		if err := rows.Scan(&r.ID, &r.Content, &r.TransactionID, &r.Amount, &r.Date, &vectorBytes); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.SimilarityScore = cosineSimilarity(queryVector, deserializeVector(vectorBytes))
		if threshold > 0 && r.SimilarityScore < threshold {
			continue
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	// Stable keeps insertion order among equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].SimilarityScore > results[j].SimilarityScore
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}
