package domain

import "time"

// ProcessingStatus tracks an article's progress through the pipeline.
type ProcessingStatus string

const (
	StatusPending   ProcessingStatus = "pending"
	StatusProcessed ProcessingStatus = "processed"
	StatusFailed    ProcessingStatus = "failed"
)

// IsValid checks if the status is a valid value.
func (s ProcessingStatus) IsValid() bool {
	return s == StatusPending || s == StatusProcessed || s == StatusFailed
}

// Article represents a scraped news article.
// Corresponds to the articles table in PostgreSQL. URL is unique;
// ContentHash is unique within a 24h rolling window across URLs.
type Article struct {
	ID            string           `json:"id"`
	URL           string           `json:"url"`
	Title         string           `json:"title"`
	Content       string           `json:"content"`
	Source        string           `json:"source"`
	ScrapedAt     time.Time        `json:"scraped_at"`
	ContentHash   string           `json:"content_hash"`
	Status        ProcessingStatus `json:"processing_status"`
	ErrorLog      *string          `json:"error_log,omitempty"`
	RiskScore     *float64         `json:"risk_score,omitempty"`     // pre-attached by scoring fetchers only
	VeracityScore *float64         `json:"veracity_score,omitempty"` // multi-source confirmation, 0..1
	SourceCount   int              `json:"source_count,omitempty"`   // distinct sources sharing the fingerprint
}
