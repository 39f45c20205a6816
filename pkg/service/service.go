// Package service orchestrates crawls: it drives the source lifecycle state
// machine around the frontier loop, persists extracted documents, feeds text
// analysis, and fronts the stores for the operator surfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/sitewatch/sitewatch/internal/models"
	"github.com/sitewatch/sitewatch/internal/types"
	"github.com/sitewatch/sitewatch/pkg/crawler"
	"github.com/sitewatch/sitewatch/pkg/fetch"
	"github.com/sitewatch/sitewatch/pkg/graph"
	"go.uber.org/zap"
)

const (
	defaultMaxHits      = 100
	defaultScheduleTime = "09:00"
	defaultSourceType   = "website"
)

// Config wires a CrawlService. Sources and Documents are required; Graphs
// and Analyzer enable the knowledge-graph step, Embedder enables semantic
// search.
type Config struct {
	Sources   types.SourceStore
	Documents types.DocumentStore
	Graphs    types.GraphStore
	Analyzer  types.Analyzer
	Embedder  types.Embedder
	Fetch     fetch.Config
	Logger    *zap.Logger
	// OnPage is called for every page collected during a crawl.
	OnPage func(sourceID, pageURL string)
}

// CrawlService implements the crawl orchestration and the thin operations
// the operator surfaces call into.
type CrawlService struct {
	sources   types.SourceStore
	documents types.DocumentStore
	graphs    types.GraphStore
	analyzer  types.Analyzer
	embedder  types.Embedder
	fetchCfg  fetch.Config
	logger    *zap.Logger
	onPage    func(string, string)
}

// New creates a CrawlService.
func New(config Config) *CrawlService {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &CrawlService{
		sources:   config.Sources,
		documents: config.Documents,
		graphs:    config.Graphs,
		analyzer:  config.Analyzer,
		embedder:  config.Embedder,
		fetchCfg:  config.Fetch,
		logger:    config.Logger,
		onPage:    config.OnPage,
	}
}

// AddSource validates, defaults and registers a new crawl source.
func (s *CrawlService) AddSource(ctx context.Context, src *models.Source) (string, error) {
	parsed, err := url.Parse(src.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("add source: invalid url %q", src.URL)
	}
	if src.MaxHits < 0 {
		return "", fmt.Errorf("add source: max hits must be positive, got %d", src.MaxHits)
	}
	if src.MaxHits == 0 {
		src.MaxHits = defaultMaxHits
	}
	if src.Frequency == "" {
		src.Frequency = models.Daily
	}
	if !src.Frequency.Valid() {
		return "", fmt.Errorf("add source: unknown frequency %q", src.Frequency)
	}
	if src.ScheduleTime == "" {
		src.ScheduleTime = defaultScheduleTime
	}
	if _, err := time.Parse("15:04", src.ScheduleTime); err != nil {
		return "", fmt.Errorf("add source: invalid schedule time %q", src.ScheduleTime)
	}
	if len(src.ContentTypes) == 0 {
		src.ContentTypes = []models.ContentType{models.ContentHTML, models.ContentText}
	}
	if src.Type == "" {
		src.Type = defaultSourceType
	}
	src.Status = models.StatusPending

	id, err := s.sources.Insert(ctx, src)
	if err != nil {
		return "", err
	}
	s.logger.Info("source added", zap.String("id", id), zap.String("url", src.URL))
	return id, nil
}

// GetSource loads one source.
func (s *CrawlService) GetSource(ctx context.Context, id string) (*models.Source, error) {
	return s.sources.Get(ctx, id)
}

// ListSources returns registered sources, optionally enabled only.
func (s *CrawlService) ListSources(ctx context.Context, enabledOnly bool) ([]models.Source, error) {
	return s.sources.List(ctx, enabledOnly)
}

// DeleteSource removes a source and every document referencing it. The
// document cascade runs first so no document is left pointing at a missing
// source.
func (s *CrawlService) DeleteSource(ctx context.Context, id string) (bool, error) {
	if err := s.documents.DeleteBySource(ctx, id); err != nil {
		return false, err
	}
	deleted, err := s.sources.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		s.logger.Info("source deleted", zap.String("id", id))
	}
	return deleted, nil
}

// CrawlSource runs one crawl for the given source and returns the number of
// documents persisted. Missing or disabled sources are silent no-ops. Crawl
// faults mark the source failed and return 0; only store failures propagate.
func (s *CrawlService) CrawlSource(ctx context.Context, id string) (count int, err error) {
	src, err := s.sources.Get(ctx, id)
	if err != nil {
		if errors.Is(err, types.ErrSourceNotFound) {
			s.logger.Warn("crawl skipped: source not found", zap.String("id", id))
			return 0, nil
		}
		return 0, err
	}
	if !src.Enabled {
		s.logger.Info("crawl skipped: source disabled", zap.String("id", id))
		return 0, nil
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("crawl panicked",
				zap.String("id", id),
				zap.Any("panic", r),
			)
			s.markFailed(id)
			count, err = 0, nil
		}
	}()

	if err := s.sources.UpdateStatus(ctx, id, models.StatusCrawling, nil); err != nil {
		return 0, err
	}
	s.logger.Info("crawl started", zap.String("id", id), zap.String("url", src.URL))

	var onPage func(string)
	if s.onPage != nil {
		onPage = func(pageURL string) { s.onPage(id, pageURL) }
	}
	c := crawler.New(crawler.Config{
		Client: fetch.NewClient(s.fetchCfg),
		Logger: s.logger,
		OnPage: onPage,
	})

	docs, err := c.Crawl(ctx, src.URL, src.ContentTypes, src.MaxHits)
	if err != nil {
		s.logger.Error("crawl failed", zap.String("id", id), zap.Error(err))
		s.markFailed(id)
		return 0, nil
	}

	for i := range docs {
		docs[i].SourceID = id
		if err := s.documents.Insert(ctx, &docs[i]); err != nil {
			s.markFailed(id)
			return count, fmt.Errorf("persist document %s: %w", docs[i].URL, err)
		}
		count++
		s.analyzeDocument(ctx, &docs[i])
	}

	now := time.Now()
	if err := s.sources.UpdateStatus(ctx, id, models.StatusCompleted, &now); err != nil {
		return count, err
	}
	s.logger.Info("crawl completed", zap.String("id", id), zap.Int("documents", count))
	return count, nil
}

// CrawlAll crawls every enabled source sequentially and returns the total
// number of documents persisted. Per-source failures do not stop the run.
func (s *CrawlService) CrawlAll(ctx context.Context) (int, error) {
	sources, err := s.sources.List(ctx, true)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, src := range sources {
		count, err := s.CrawlSource(ctx, src.ID)
		if err != nil {
			s.logger.Error("crawl failed", zap.String("id", src.ID), zap.Error(err))
			continue
		}
		total += count
	}
	return total, nil
}

// Search runs a relevance-ranked full-text query over stored documents.
func (s *CrawlService) Search(ctx context.Context, query string, limit int) ([]models.Document, error) {
	return s.documents.Search(ctx, query, limit)
}

// SearchSemantic embeds the query and returns the nearest documents. It
// requires an embedder.
func (s *CrawlService) SearchSemantic(ctx context.Context, query string, limit int) ([]models.Document, error) {
	if s.embedder == nil {
		return nil, errors.New("semantic search: no embedder configured")
	}
	vectors, err := s.embedder.CreateEmbedding(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	if len(vectors) == 0 {
		return nil, errors.New("semantic search: empty query embedding")
	}
	return s.documents.SearchSemantic(ctx, vectors[0], limit)
}

// Statistics summarizes the stores.
type Statistics struct {
	TotalSources   int64     `json:"total_sources"`
	EnabledSources int64     `json:"enabled_sources"`
	TotalDocuments int64     `json:"total_documents"`
	LastUpdate     time.Time `json:"last_update"`
}

// Statistics counts sources and documents.
func (s *CrawlService) Statistics(ctx context.Context) (*Statistics, error) {
	total, err := s.sources.Count(ctx, false)
	if err != nil {
		return nil, err
	}
	enabled, err := s.sources.Count(ctx, true)
	if err != nil {
		return nil, err
	}
	docs, err := s.documents.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &Statistics{
		TotalSources:   total,
		EnabledSources: enabled,
		TotalDocuments: docs,
		LastUpdate:     time.Now(),
	}, nil
}

// analyzeDocument runs the text-analysis step over one document and stores
// the resulting graph. Every failure here degrades to a log line; analysis
// must never fail a crawl.
func (s *CrawlService) analyzeDocument(ctx context.Context, doc *models.Document) {
	if s.analyzer == nil || s.graphs == nil || doc.Content == "" {
		return
	}

	analysis, err := s.analyzer.Analyze(ctx, doc.Content)
	if err != nil {
		s.logger.Warn("analysis failed", zap.String("url", doc.URL), zap.Error(err))
		return
	}
	if len(analysis.Entities) == 0 && len(analysis.Relations) == 0 {
		return
	}

	g := graph.Build(analysis, doc.URL)
	if err := s.graphs.Insert(ctx, g); err != nil {
		s.logger.Warn("graph store failed", zap.String("url", doc.URL), zap.Error(err))
	}
}

func (s *CrawlService) markFailed(id string) {
	// Status write runs on a fresh context so a cancelled crawl still
	// records the failure.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.sources.UpdateStatus(ctx, id, models.StatusFailed, nil); err != nil {
		s.logger.Error("failed to mark source failed", zap.String("id", id), zap.Error(err))
	}
}
