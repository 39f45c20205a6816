package extract

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/sitewatch/sitewatch/internal/models"
)

// Feed treats an xml payload as a syndication feed and extracts its first
// item. An empty feed yields (nil, nil): nothing to store, not an error.
func Feed(pageURL string, body []byte) (*models.Document, error) {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", pageURL, err)
	}
	if len(parsed.Items) == 0 {
		return nil, nil
	}

	item := parsed.Items[0]
	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = fallbackTitle
	}

	return &models.Document{
		URL:         pageURL,
		Title:       title,
		Content:     Truncate(collapseWhitespace(item.Description)),
		ContentType: models.ContentXML,
		Keywords:    nil,
		Timestamp:   time.Now(),
	}, nil
}
