package models

import (
	"encoding/json"
	"time"
)

// RawRow is one table row exactly as the source rendered it: header labels
// mapped to cell text. Discarded after normalization.
type RawRow struct {
	League string            `json:"league"`
	Source string            `json:"source"`
	URL    string            `json:"url"`
	Fields map[string]string `json:"fields"`
}

// CanonicalRecord is the normalized, typed shape of one team's trend row.
// Absent or malformed source values are nil, never a sentinel string.
// ScrapedAt is capture metadata and does not participate in equality or
// content hashing.
type CanonicalRecord struct {
	League       string   `json:"league"`
	Team         string   `json:"team"`
	ATSRecord    *string  `json:"ats_record"`
	CoverPct     *string  `json:"cover_pct"`
	MOV          *float64 `json:"mov"`
	ATSPlusMinus *float64 `json:"ats_plus_minus"`

	// Extra holds source columns with no canonical mapping. Preserved in the
	// persisted payload, excluded from the content hash.
	Extra map[string]string `json:"extra,omitempty"`
}

// Payload renders the record as the JSON document persisted in a snapshot.
func (r *CanonicalRecord) Payload() (json.RawMessage, error) {
	return json.Marshal(r)
}

// Snapshot is one immutable persisted capture of a canonical record.
// (league, team, content_hash) is globally unique; snapshots are never
// updated or deleted by the pipeline.
type Snapshot struct {
	ID          int64           `json:"id" db:"id"`
	RunID       string          `json:"run_id" db:"run_id"`
	League      string          `json:"league" db:"league"`
	Team        string          `json:"team" db:"team"`
	Content     json.RawMessage `json:"content" db:"content"`
	ContentHash string          `json:"content_hash" db:"content_hash"`
	ScrapedAt   time.Time       `json:"scraped_at" db:"scraped_at"`
	ScrapeDate  time.Time       `json:"scrape_date" db:"scrape_date"`
}

// TrendRow is a typed projection of a snapshot payload, as served by the
// flat history and latest-per-team views.
type TrendRow struct {
	League       string    `json:"league"`
	Team         string    `json:"team"`
	ATSRecord    *string   `json:"ats_record"`
	CoverPct     *string   `json:"cover_pct"`
	MOV          *float64  `json:"mov"`
	ATSPlusMinus *float64  `json:"ats_plus_minus"`
	ScrapedAt    time.Time `json:"scraped_at"`
	ScrapeDate   time.Time `json:"scrape_date"`
}
