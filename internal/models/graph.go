package models

import "time"

// Entity is a named thing recognized by the text-analysis step.
type Entity struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Relation links two entities by name.
type Relation struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// Analysis is the raw output of the text-analysis step for one document.
type Analysis struct {
	Entities  []Entity   `json:"entities"`
	Relations []Relation `json:"relations"`
}

// Node is a graph vertex derived from an entity.
type Node struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Edge is a weighted graph edge derived from a relation.
type Edge struct {
	Source   string  `json:"source"`
	Target   string  `json:"target"`
	Relation string  `json:"relation"`
	Weight   float64 `json:"weight"`
}

// Graph is the labeled entity/relation graph assembled from one page's
// analysis, tagged with the URL it came from.
type Graph struct {
	ID        string    `json:"id"`
	Nodes     []Node    `json:"nodes"`
	Edges     []Edge    `json:"edges"`
	SourceURL string    `json:"source_url"`
	CreatedAt time.Time `json:"created_at"`
}
