// Package identity derives stable content fingerprints for canonical
// records. Two records with equal field values hash identically no matter
// how the source formatted them or when they were captured.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/silvestred/nba-team-ats-trends-scrape/models"
)

// Serialization markers. fieldSep cannot appear in trimmed cell text and
// nullMarker cannot collide with any legal value, so null and "" and "NUL"
// all stay distinguishable.
const (
	fieldSep   = "\x1f"
	nullMarker = "\x00"
)

// ContentHash computes the SHA-256 fingerprint of a record's content.
// Fields are serialized in a fixed, predeclared order with one canonical
// textual form per type; scraped_at never participates and there is no salt.
func ContentHash(rec *models.CanonicalRecord) string {
	var b strings.Builder
	b.WriteString(rec.League)
	b.WriteString(fieldSep)
	b.WriteString(rec.Team)
	writeText(&b, rec.ATSRecord)
	writeText(&b, rec.CoverPct)
	writeNumber(&b, rec.MOV)
	writeNumber(&b, rec.ATSPlusMinus)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func writeText(b *strings.Builder, v *string) {
	b.WriteString(fieldSep)
	if v == nil {
		b.WriteString(nullMarker)
		return
	}
	b.WriteString(*v)
}

func writeNumber(b *strings.Builder, v *float64) {
	b.WriteString(fieldSep)
	if v == nil {
		b.WriteString(nullMarker)
		return
	}
	// Shortest round-trip decimal form: no sign variance, no locale.
	b.WriteString(strconv.FormatFloat(*v, 'f', -1, 64))
}
