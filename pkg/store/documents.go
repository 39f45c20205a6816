package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	"github.com/sitewatch/sitewatch/internal/models"
	"go.uber.org/zap"
)

// DocumentStore persists extracted documents and answers search queries.
type DocumentStore struct {
	store *Store
}

const documentColumns = `id, source_id, url, title, content, content_type, keywords, crawled_at`

// Insert stores one extracted document, assigning an id if unset. When an
// embedder is configured the content is embedded for semantic search; an
// embedding failure leaves the column NULL and is only logged.
func (ds *DocumentStore) Insert(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.Timestamp.IsZero() {
		doc.Timestamp = time.Now()
	}

	var embedding any
	if ds.store.config.Embedder != nil && doc.Content != "" {
		vectors, err := ds.store.config.Embedder.CreateEmbedding(ctx, []string{doc.Content})
		if err != nil {
			ds.store.logger.Warn("embedding failed, storing without vector",
				zap.String("url", doc.URL),
				zap.Error(err),
			)
		} else if len(vectors) > 0 {
			embedding = pgvector.NewVector(vectors[0])
		}
	}

	_, err := ds.store.pool.Exec(ctx,
		`INSERT INTO documents (id, source_id, url, title, content, content_type, keywords, crawled_at, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		doc.ID, doc.SourceID, doc.URL, doc.Title, doc.Content, string(doc.ContentType),
		doc.Keywords, doc.Timestamp, embedding,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// DeleteBySource removes every document referencing sourceID.
func (ds *DocumentStore) DeleteBySource(ctx context.Context, sourceID string) error {
	_, err := ds.store.pool.Exec(ctx, `DELETE FROM documents WHERE source_id = $1`, sourceID)
	if err != nil {
		return fmt.Errorf("delete documents for source %s: %w", sourceID, err)
	}
	return nil
}

// Search runs a full-text query over title and content, ranked by ts_rank.
func (ds *DocumentStore) Search(ctx context.Context, query string, limit int) ([]models.Document, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := ds.store.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s
		FROM documents
		WHERE to_tsvector('simple', coalesce(title, '') || ' ' || coalesce(content, ''))
			@@ plainto_tsquery('simple', $1)
		ORDER BY ts_rank(
			to_tsvector('simple', coalesce(title, '') || ' ' || coalesce(content, '')),
			plainto_tsquery('simple', $1)
		) DESC
		LIMIT $2`, documentColumns),
		query, limit)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// SearchSemantic returns the documents whose embeddings are nearest to the
// query vector by cosine distance.
func (ds *DocumentStore) SearchSemantic(ctx context.Context, embedding []float32, limit int) ([]models.Document, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := ds.store.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s
		FROM documents
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2`, documentColumns),
		pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// Count returns the total number of stored documents.
func (ds *DocumentStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := ds.store.pool.QueryRow(ctx, `SELECT count(*) FROM documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

func scanDocuments(rows pgx.Rows) ([]models.Document, error) {
	var docs []models.Document
	for rows.Next() {
		var (
			doc         models.Document
			contentType string
		)
		err := rows.Scan(&doc.ID, &doc.SourceID, &doc.URL, &doc.Title, &doc.Content,
			&contentType, &doc.Keywords, &doc.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc.ContentType = models.ContentType(contentType)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
