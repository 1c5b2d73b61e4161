package domain

import "time"

// Event is one scraped listing. SourceID may be empty, in which case the
// listing cannot be deduplicated and every ingestion stores a new row.
type Event struct {
	ID           string     `json:"id"`
	SourceOrigin string     `json:"source_url"` // canonical listing page the card came from
	SourceID     string     `json:"source_id,omitempty"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Venue        string     `json:"venue"`
	ImageURL     string     `json:"image_url"`
	TicketURL    string     `json:"ticket_url"`
	StartTime    *time.Time `json:"date"` // nil when the raw date/time could not be parsed
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Deduplicable reports whether the event carries a source-local identifier.
func (e Event) Deduplicable() bool {
	return e.SourceID != ""
}

// IngestReport summarises one scrape-and-upsert pass.
type IngestReport struct {
	Sources       int           `json:"sources"`
	FailedSources int           `json:"failed_sources"`
	Pages         int           `json:"pages"`
	Events        int           `json:"events"`
	Upserted      int           `json:"upserted"`
	FailedUpserts int           `json:"failed_upserts"`
	UnparsedDates int           `json:"unparsed_dates"`
	Purged        int64         `json:"purged"`
	Duration      time.Duration `json:"duration"`
}
