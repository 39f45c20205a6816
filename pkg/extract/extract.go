// Package extract turns fetched payloads into normalized documents, one
// extractor per content class. Extractors are pure: a malformed payload
// yields an error for the caller to log and skip, never a partial document.
package extract

import (
	"net/url"
	"strings"

	"github.com/sitewatch/sitewatch/internal/models"
)

// MaxContentLength bounds stored content to keep storage and downstream
// token cost predictable.
const MaxContentLength = 5000

// fallbackTitle is used when a page carries no usable title.
const fallbackTitle = "Untitled"

// Classify maps a Content-Type header to the content class that handles it.
// The html check runs first so "text/html" is never classified as text, and
// xml before text so "text/xml" lands on the feed extractor.
func Classify(contentType string) (models.ContentType, bool) {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "html"):
		return models.ContentHTML, true
	case strings.Contains(ct, "xml"):
		return models.ContentXML, true
	case strings.Contains(ct, "pdf"):
		return models.ContentPDF, true
	case strings.Contains(ct, "text"):
		return models.ContentText, true
	}
	return "", false
}

// Truncate keeps the first MaxContentLength characters of s.
func Truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxContentLength {
		return s
	}
	return string(runes[:MaxContentLength])
}

// titleFromURL derives a title from the last path segment of a URL.
func titleFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		parsed = nil
	}
	path := rawURL
	if parsed != nil && parsed.Path != "" {
		path = parsed.Path
	}
	segments := strings.Split(strings.TrimSuffix(path, "/"), "/")
	last := segments[len(segments)-1]
	if last == "" {
		return fallbackTitle
	}
	return last
}

// collapseWhitespace joins all whitespace-separated fields with single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
