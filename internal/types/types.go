package types

import (
	"context"
	"errors"
	"time"

	"github.com/sitewatch/sitewatch/internal/models"
)

// ErrSourceNotFound is returned by SourceStore.Get for unknown ids.
var ErrSourceNotFound = errors.New("source not found")

// SourceStore persists crawl source configurations.
type SourceStore interface {
	Insert(ctx context.Context, src *models.Source) (string, error)
	Get(ctx context.Context, id string) (*models.Source, error)
	List(ctx context.Context, enabledOnly bool) ([]models.Source, error)
	UpdateStatus(ctx context.Context, id string, status models.Status, lastCrawl *time.Time) error
	Delete(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context, enabledOnly bool) (int64, error)
}

// DocumentStore persists extracted documents and answers search queries.
// Ranking of Search results is delegated to the store's native
// text-relevance scoring.
type DocumentStore interface {
	Insert(ctx context.Context, doc *models.Document) error
	DeleteBySource(ctx context.Context, sourceID string) error
	Search(ctx context.Context, query string, limit int) ([]models.Document, error)
	SearchSemantic(ctx context.Context, embedding []float32, limit int) ([]models.Document, error)
	Count(ctx context.Context) (int64, error)
}

// GraphStore persists assembled entity/relation graphs.
type GraphStore interface {
	Insert(ctx context.Context, g *models.Graph) error
}

// Analyzer derives a labeled entity/relation set from page text. A malformed
// or empty model response yields an empty Analysis, not an error.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (*models.Analysis, error)
}

// Embedder turns texts into embedding vectors for semantic search.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}
