package model

import "time"

// ScrapingLog is an append-only record of one scraping attempt against a
// Lead. Rows are never mutated once written.
type ScrapingLog struct {
	ID                int64
	LeadID            int64
	Method            string
	Success           bool
	Confidence        float64
	ProcessingTimeMS   int64
	RawData           string // serialized payload (JSON)
	ErrorMessage      string
	CreatedAt         time.Time
}

// EnrichmentLog is an append-only record of one enrichment attempt against
// a Lead. Rows are never mutated once written.
type EnrichmentLog struct {
	ID                int64
	LeadID            int64
	Method            string
	Success           bool
	Confidence        float64
	ProcessingTimeMS   int64
	RawData           string
	ErrorMessage      string
	CreatedAt         time.Time
}

// APIKey is a server-to-server credential scoped to an Organization and the
// User that created it. The full token is shown once on creation; later
// verification matches KeyPrefix then compares the hashed secret.
type APIKey struct {
	ID             int64
	OrganizationID int64
	UserID         int64
	KeyHash        string
	KeyPrefix      string
	IsActive       bool
	IsRevoked      bool
	RateLimit      int
	ExpiresAt      *time.Time
	CreatedAt      time.Time
}
