// Package memstore provides in-memory implementations of the store
// interfaces, used by tests and by runs without a database.
package memstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sitewatch/sitewatch/internal/models"
	"github.com/sitewatch/sitewatch/internal/types"
)

// Sources is an in-memory types.SourceStore.
type Sources struct {
	mu    sync.RWMutex
	items map[string]models.Source
	order []string
}

// NewSources creates an empty source store.
func NewSources() *Sources {
	return &Sources{items: make(map[string]models.Source)}
}

func (s *Sources) Insert(_ context.Context, src *models.Source) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if src.ID == "" {
		src.ID = uuid.NewString()
	}
	if src.CreatedAt.IsZero() {
		src.CreatedAt = time.Now()
	}
	s.items[src.ID] = *src
	s.order = append(s.order, src.ID)
	return src.ID, nil
}

func (s *Sources) Get(_ context.Context, id string) (*models.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src, ok := s.items[id]
	if !ok {
		return nil, types.ErrSourceNotFound
	}
	copied := src
	return &copied, nil
}

func (s *Sources) List(_ context.Context, enabledOnly bool) ([]models.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Source
	for _, id := range s.order {
		src, ok := s.items[id]
		if !ok || (enabledOnly && !src.Enabled) {
			continue
		}
		out = append(out, src)
	}
	return out, nil
}

func (s *Sources) UpdateStatus(_ context.Context, id string, status models.Status, lastCrawl *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.items[id]
	if !ok {
		return types.ErrSourceNotFound
	}
	src.Status = status
	if lastCrawl != nil {
		src.LastCrawl = lastCrawl
	}
	s.items[id] = src
	return nil
}

func (s *Sources) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return false, nil
	}
	delete(s.items, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (s *Sources) Count(_ context.Context, enabledOnly bool) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !enabledOnly {
		return int64(len(s.items)), nil
	}
	var count int64
	for _, src := range s.items {
		if src.Enabled {
			count++
		}
	}
	return count, nil
}

// Documents is an in-memory types.DocumentStore. Search is a plain substring
// match; SearchSemantic always returns no results since no embeddings are
// kept.
type Documents struct {
	mu   sync.RWMutex
	docs []models.Document
}

// NewDocuments creates an empty document store.
func NewDocuments() *Documents {
	return &Documents{}
}

func (d *Documents) Insert(_ context.Context, doc *models.Document) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.Timestamp.IsZero() {
		doc.Timestamp = time.Now()
	}
	d.docs = append(d.docs, *doc)
	return nil
}

func (d *Documents) DeleteBySource(_ context.Context, sourceID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	kept := d.docs[:0]
	for _, doc := range d.docs {
		if doc.SourceID != sourceID {
			kept = append(kept, doc)
		}
	}
	d.docs = kept
	return nil
}

func (d *Documents) Search(_ context.Context, query string, limit int) ([]models.Document, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	needle := strings.ToLower(query)

	var out []models.Document
	for _, doc := range d.docs {
		if len(out) >= limit {
			break
		}
		haystack := strings.ToLower(doc.Title + " " + doc.Content)
		if strings.Contains(haystack, needle) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (d *Documents) SearchSemantic(_ context.Context, _ []float32, _ int) ([]models.Document, error) {
	return nil, nil
}

func (d *Documents) Count(_ context.Context) (int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return int64(len(d.docs)), nil
}

// All returns a copy of every stored document in insertion order.
func (d *Documents) All() []models.Document {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]models.Document(nil), d.docs...)
}

// Graphs is an in-memory types.GraphStore.
type Graphs struct {
	mu     sync.RWMutex
	graphs []models.Graph
}

// NewGraphs creates an empty graph store.
func NewGraphs() *Graphs {
	return &Graphs{}
}

func (g *Graphs) Insert(_ context.Context, gr *models.Graph) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if gr.ID == "" {
		gr.ID = uuid.NewString()
	}
	g.graphs = append(g.graphs, *gr)
	return nil
}

// All returns a copy of every stored graph in insertion order.
func (g *Graphs) All() []models.Graph {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]models.Graph(nil), g.graphs...)
}
