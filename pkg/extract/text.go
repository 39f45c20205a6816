package extract

import (
	"time"

	"github.com/sitewatch/sitewatch/internal/models"
)

// Text wraps a plain-text payload as-is, truncated. The title is the URL's
// last path segment.
func Text(pageURL string, body []byte) (*models.Document, error) {
	return &models.Document{
		URL:         pageURL,
		Title:       titleFromURL(pageURL),
		Content:     Truncate(string(body)),
		ContentType: models.ContentText,
		Keywords:    nil,
		Timestamp:   time.Now(),
	}, nil
}
