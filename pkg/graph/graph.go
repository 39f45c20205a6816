// Package graph assembles entity/relation analysis output into a labeled
// graph tied to the page it came from.
package graph

import (
	"time"

	"github.com/google/uuid"
	"github.com/sitewatch/sitewatch/internal/models"
)

const defaultEdgeWeight = 1.0

// Build maps entities to nodes and relations to unit-weight edges. A nil or
// empty analysis yields a graph with no nodes or edges.
func Build(analysis *models.Analysis, sourceURL string) *models.Graph {
	g := &models.Graph{
		ID:        uuid.NewString(),
		SourceURL: sourceURL,
		CreatedAt: time.Now(),
	}
	if analysis == nil {
		return g
	}

	for _, entity := range analysis.Entities {
		g.Nodes = append(g.Nodes, models.Node{Name: entity.Name, Type: entity.Type})
	}
	for _, relation := range analysis.Relations {
		g.Edges = append(g.Edges, models.Edge{
			Source:   relation.Source,
			Target:   relation.Target,
			Relation: relation.Type,
			Weight:   defaultEdgeWeight,
		})
	}
	return g
}
