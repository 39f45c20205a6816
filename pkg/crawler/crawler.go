// Package crawler implements bounded breadth-first traversal over a single
// source's start URL: a FIFO frontier, a visited set, a retrying fetch step
// and per-content-class extraction, capped at a per-crawl document limit.
package crawler

import (
	"context"
	"fmt"
	"net/url"

	"github.com/sitewatch/sitewatch/internal/models"
	"github.com/sitewatch/sitewatch/pkg/extract"
	"github.com/sitewatch/sitewatch/pkg/fetch"
	"go.uber.org/zap"
)

// Config controls a Crawler.
type Config struct {
	Client *fetch.Client
	Logger *zap.Logger
	OnPage func(url string) // called after each collected document
}

// Crawler runs crawls. All traversal state lives in the Crawl call, so one
// Crawler may serve concurrent crawls of different sources.
type Crawler struct {
	client *fetch.Client
	logger *zap.Logger
	onPage func(string)
}

// New creates a Crawler, filling unset config fields with defaults.
func New(config Config) *Crawler {
	if config.Client == nil {
		config.Client = fetch.NewClient(fetch.Config{})
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &Crawler{
		client: config.Client,
		logger: config.Logger,
		onPage: config.OnPage,
	}
}

// Crawl traverses breadth-first from seedURL, collecting at most maxHits
// documents of the accepted content classes. Only links sharing the seed's
// scheme and host (including port, compared verbatim) are followed, and only
// from HTML pages. Fetch and extraction failures skip the URL; they never
// abort the crawl. Document order matches discovery order.
func (c *Crawler) Crawl(ctx context.Context, seedURL string, accepted []models.ContentType, maxHits int) ([]models.Document, error) {
	seed, err := url.Parse(seedURL)
	if err != nil {
		return nil, fmt.Errorf("crawl: invalid seed url %q: %w", seedURL, err)
	}
	if seed.Scheme == "" || seed.Host == "" {
		return nil, fmt.Errorf("crawl: seed url %q is not absolute", seedURL)
	}
	if maxHits <= 0 {
		return nil, fmt.Errorf("crawl: maxHits must be positive, got %d", maxHits)
	}

	accept := make(map[models.ContentType]bool, len(accepted))
	for _, ct := range accepted {
		accept[ct] = true
	}

	visited := make(map[string]bool)
	queue := []string{seedURL}
	var collected []models.Document

	for len(queue) > 0 && len(collected) < maxHits {
		if ctx.Err() != nil {
			break
		}

		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true

		resp, err := c.client.Get(ctx, current)
		if err != nil {
			c.logger.Warn("fetch failed, skipping url",
				zap.String("url", current),
				zap.Error(err),
			)
			continue
		}

		class, ok := extract.Classify(resp.ContentType)
		if !ok || !accept[class] {
			continue
		}

		switch class {
		case models.ContentHTML:
			result, err := extract.HTML(current, resp.Body)
			if err != nil {
				c.logger.Warn("html extraction failed", zap.String("url", current), zap.Error(err))
				continue
			}
			collected = c.collect(collected, result.Doc, current)
			if len(collected) < maxHits {
				for _, link := range result.Links {
					if sameOrigin(seed, link) && !visited[link] {
						queue = append(queue, link)
					}
				}
			}

		case models.ContentXML:
			doc, err := extract.Feed(current, resp.Body)
			if err != nil {
				c.logger.Warn("feed extraction failed", zap.String("url", current), zap.Error(err))
				continue
			}
			if doc != nil {
				collected = c.collect(collected, *doc, current)
			}

		case models.ContentPDF:
			doc, err := extract.PDF(current, resp.Body)
			if err != nil {
				c.logger.Warn("pdf extraction failed", zap.String("url", current), zap.Error(err))
				continue
			}
			collected = c.collect(collected, *doc, current)

		case models.ContentText:
			doc, err := extract.Text(current, resp.Body)
			if err != nil {
				c.logger.Warn("text extraction failed", zap.String("url", current), zap.Error(err))
				continue
			}
			collected = c.collect(collected, *doc, current)
		}
	}

	return collected, nil
}

func (c *Crawler) collect(collected []models.Document, doc models.Document, pageURL string) []models.Document {
	collected = append(collected, doc)
	if c.onPage != nil {
		c.onPage(pageURL)
	}
	return collected
}

// sameOrigin reports whether link shares the seed's scheme and host. Host
// comparison includes the port and is verbatim: no case folding, no default
// ports, no trailing-slash handling.
func sameOrigin(seed *url.URL, link string) bool {
	parsed, err := url.Parse(link)
	if err != nil {
		return false
	}
	return parsed.Scheme == seed.Scheme && parsed.Host == seed.Host
}
