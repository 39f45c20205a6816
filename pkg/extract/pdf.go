package extract

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/sitewatch/sitewatch/internal/models"
)

// maxPDFPages caps how many pages of a PDF are read.
const maxPDFPages = 10

// PDF extracts plain text from at most the first ten pages of a PDF payload.
// The title is the URL's last path segment. The pdf package panics on some
// malformed inputs, so parsing runs behind a recover.
func PDF(pageURL string, body []byte) (doc *models.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("parse pdf %s: %v", pageURL, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("parse pdf %s: %w", pageURL, err)
	}

	var text strings.Builder
	pages := reader.NumPage()
	if pages > maxPDFPages {
		pages = maxPDFPages
	}
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			continue
		}
		text.WriteString(content)
	}

	return &models.Document{
		URL:         pageURL,
		Title:       titleFromURL(pageURL),
		Content:     Truncate(text.String()),
		ContentType: models.ContentPDF,
		Keywords:    nil,
		Timestamp:   time.Now(),
	}, nil
}
