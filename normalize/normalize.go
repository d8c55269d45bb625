// Package normalize maps raw source rows onto canonical trend records.
// Normalization is a pure function of the raw row's content: no timestamps,
// no randomness. That determinism is what makes re-scraping unchanged data
// hash (and dedup) identically downstream.
package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/silvestred/nba-team-ats-trends-scrape/models"
)

// Error reports a raw row that cannot become a canonical record. Scoped to
// one row; the run continues.
type Error struct {
	League string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("normalize %s row: %s", e.League, e.Reason)
}

// Normalizer applies one versioned mapping table to raw rows.
type Normalizer struct {
	mapping Mapping
	byLabel map[string]FieldMapping
}

func New(mapping Mapping) *Normalizer {
	byLabel := make(map[string]FieldMapping)
	for _, fm := range mapping.Fields {
		for _, label := range fm.Labels {
			byLabel[label] = fm
		}
	}
	return &Normalizer{mapping: mapping, byLabel: byLabel}
}

// MappingVersion returns the version of the lookup table in use.
func (n *Normalizer) MappingVersion() int {
	return n.mapping.Version
}

// Normalize converts one raw row into exactly one canonical record, or fails
// when the identity fields (league, team) are missing or empty.
func (n *Normalizer) Normalize(raw *models.RawRow) (*models.CanonicalRecord, error) {
	if strings.TrimSpace(raw.League) == "" {
		return nil, &Error{League: raw.League, Reason: "missing league"}
	}

	rec := &models.CanonicalRecord{League: raw.League}

	for label, value := range raw.Fields {
		fm, ok := n.byLabel[label]
		if !ok {
			// Unknown column: keep it opaquely, it never participates in hashing.
			if rec.Extra == nil {
				rec.Extra = make(map[string]string)
			}
			rec.Extra[label] = value
			continue
		}

		switch fm.Field {
		case FieldTeam:
			rec.Team = strings.TrimSpace(value)
		case FieldATSRecord:
			rec.ATSRecord = parseText(value)
		case FieldCoverPct:
			rec.CoverPct = parseText(value)
		case FieldMOV:
			rec.MOV = parseNumber(value)
		case FieldATSPlusMinus:
			rec.ATSPlusMinus = parseNumber(value)
		}
	}

	if rec.Team == "" {
		return nil, &Error{League: raw.League, Reason: "missing team"}
	}

	return rec, nil
}

// placeholders the sources use for "no value". Matched case-insensitively
// after trimming.
var placeholders = map[string]bool{
	"":    true,
	"n/a": true,
	"na":  true,
	"--":  true,
	"-":   true,
}

func isBlank(s string) bool {
	return placeholders[strings.ToLower(strings.TrimSpace(s))]
}

func parseText(s string) *string {
	if isBlank(s) {
		return nil
	}
	v := strings.TrimSpace(s)
	return &v
}

// parseNumber is tolerant: blanks and placeholders are null, a leading "+"
// is stripped, a percent-formatted value becomes a fraction, and anything
// that still fails to parse is null rather than an error.
func parseNumber(s string) *float64 {
	if isBlank(s) {
		return nil
	}
	v := strings.TrimSpace(s)
	v = strings.TrimPrefix(v, "+")

	pct := strings.HasSuffix(v, "%")
	v = strings.TrimSuffix(v, "%")

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	if pct {
		f /= 100
	}
	return &f
}
