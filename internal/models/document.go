package models

import "time"

// Document is one crawled unit of content, persisted immediately after
// extraction and never mutated afterwards.
type Document struct {
	ID          string      `json:"id"`
	SourceID    string      `json:"source_id"`
	URL         string      `json:"url"`
	Title       string      `json:"title"`
	Content     string      `json:"content"`
	ContentType ContentType `json:"content_type"`
	Keywords    []string    `json:"keywords"`
	Timestamp   time.Time   `json:"timestamp"`
}
