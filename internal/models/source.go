package models

import "time"

// Frequency is the recurrence rule governing how often a source is re-crawled.
type Frequency string

const (
	Hourly  Frequency = "hourly"
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case Hourly, Daily, Weekly, Monthly:
		return true
	}
	return false
}

// Status is the crawl lifecycle state of a source.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCrawling  Status = "crawling"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ContentType is a content class a source accepts and an extractor handles.
type ContentType string

const (
	ContentHTML ContentType = "html"
	ContentXML  ContentType = "xml"
	ContentPDF  ContentType = "pdf"
	ContentText ContentType = "text"
)

// Source is a configured crawl target with cadence and content-type policy.
type Source struct {
	ID           string        `json:"id"`
	URL          string        `json:"url"`
	Type         string        `json:"type"`
	Frequency    Frequency     `json:"frequency"`
	ScheduleTime string        `json:"schedule_time"` // "15:04", used by daily/weekly/monthly
	MaxHits      int           `json:"max_hits"`
	ContentTypes []ContentType `json:"content_types"`
	Enabled      bool          `json:"enabled"`
	Status       Status        `json:"status"`
	LastCrawl    *time.Time    `json:"last_crawl,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}
