// Package store implements the source, document and graph stores on
// PostgreSQL. Full-text search relevance is delegated to ts_rank; semantic
// search uses a pgvector embedding column populated when an embedder is
// configured.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sitewatch/sitewatch/internal/types"
	"go.uber.org/zap"
)

const defaultVectorDim = 768

// Config controls a Store.
type Config struct {
	ConnString string
	VectorDim  int
	// Embedder, when set, populates the documents embedding column on
	// insert so semantic search works. Embedding failures degrade to a
	// NULL embedding, they never fail the insert.
	Embedder types.Embedder
	Logger   *zap.Logger
}

// Store holds the connection pool shared by all three stores.
type Store struct {
	config Config
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// New connects to Postgres and creates the schema if missing.
func New(ctx context.Context, config Config) (*Store, error) {
	if config.VectorDim == 0 {
		config.VectorDim = defaultVectorDim
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{config: config, pool: pool, logger: config.Logger}
	if err := s.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS sources (
			id            TEXT PRIMARY KEY,
			url           TEXT NOT NULL,
			source_type   TEXT NOT NULL,
			frequency     TEXT NOT NULL,
			schedule_time TEXT NOT NULL,
			max_hits      INTEGER NOT NULL,
			content_types TEXT[] NOT NULL,
			enabled       BOOLEAN NOT NULL,
			status        TEXT NOT NULL,
			last_crawl    TIMESTAMPTZ,
			created_at    TIMESTAMPTZ NOT NULL
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS documents (
			id           TEXT PRIMARY KEY,
			source_id    TEXT NOT NULL,
			url          TEXT NOT NULL,
			title        TEXT,
			content      TEXT,
			content_type TEXT NOT NULL,
			keywords     TEXT[],
			crawled_at   TIMESTAMPTZ NOT NULL,
			embedding    vector(%d)
		)`, s.config.VectorDim),
		`CREATE INDEX IF NOT EXISTS documents_source_id_idx ON documents (source_id)`,
		`CREATE INDEX IF NOT EXISTS documents_fts_idx ON documents
			USING GIN (to_tsvector('simple', coalesce(title, '') || ' ' || coalesce(content, '')))`,
		`CREATE TABLE IF NOT EXISTS graphs (
			id         TEXT PRIMARY KEY,
			source_url TEXT NOT NULL,
			nodes      JSONB NOT NULL,
			edges      JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// Sources returns the source store view.
func (s *Store) Sources() *SourceStore { return &SourceStore{store: s} }

// Documents returns the document store view.
func (s *Store) Documents() *DocumentStore { return &DocumentStore{store: s} }

// Graphs returns the graph store view.
func (s *Store) Graphs() *GraphStore { return &GraphStore{store: s} }

// Close releases the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
