package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sitewatch/sitewatch/internal/models"
)

// GraphStore persists assembled entity/relation graphs. Nodes and edges are
// stored as JSONB documents.
type GraphStore struct {
	store *Store
}

// Insert stores one graph, assigning an id if unset.
func (gs *GraphStore) Insert(ctx context.Context, g *models.Graph) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}

	nodes := g.Nodes
	if nodes == nil {
		nodes = []models.Node{}
	}
	edges := g.Edges
	if edges == nil {
		edges = []models.Edge{}
	}

	_, err := gs.store.pool.Exec(ctx,
		`INSERT INTO graphs (id, source_url, nodes, edges, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		g.ID, g.SourceURL, nodes, edges, g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert graph: %w", err)
	}
	return nil
}
