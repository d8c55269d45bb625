package identity

import (
	"testing"

	"github.com/silvestred/nba-team-ats-trends-scrape/models"
)

func strPtr(s string) *string   { return &s }
func numPtr(f float64) *float64 { return &f }

func record() *models.CanonicalRecord {
	return &models.CanonicalRecord{
		League:       "nba",
		Team:         "Lakers",
		ATSRecord:    strPtr("10-5"),
		CoverPct:     strPtr("66.7%"),
		MOV:          numPtr(3.2),
		ATSPlusMinus: numPtr(1.1),
	}
}

func TestContentHash_Stable(t *testing.T) {
	a := ContentHash(record())
	b := ContentHash(record())
	if a != b {
		t.Fatalf("equal records hashed differently: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
}

func TestContentHash_ValueChangeChangesHash(t *testing.T) {
	base := ContentHash(record())

	changed := record()
	changed.MOV = numPtr(3.3)
	if ContentHash(changed) == base {
		t.Fatal("changed mov produced identical hash")
	}

	changed = record()
	changed.Team = "Celtics"
	if ContentHash(changed) == base {
		t.Fatal("changed team produced identical hash")
	}
}

func TestContentHash_NullDistinctFromEmpty(t *testing.T) {
	withNull := record()
	withNull.ATSRecord = nil

	withEmpty := record()
	withEmpty.ATSRecord = strPtr("")

	if ContentHash(withNull) == ContentHash(withEmpty) {
		t.Fatal("null and empty string hashed identically")
	}
}

func TestContentHash_NullPositionMatters(t *testing.T) {
	a := record()
	a.ATSRecord = nil

	b := record()
	b.CoverPct = nil

	if ContentHash(a) == ContentHash(b) {
		t.Fatal("nulls in different fields hashed identically")
	}
}

func TestContentHash_NumericFormIndependent(t *testing.T) {
	// 3.50 and 3.5 are the same value; the canonical serialization must
	// produce the same digest for both.
	a := record()
	a.MOV = numPtr(3.50)

	b := record()
	b.MOV = numPtr(3.5)

	if ContentHash(a) != ContentHash(b) {
		t.Fatal("equal numeric values hashed differently")
	}
}

func TestContentHash_ExtraFieldsIgnored(t *testing.T) {
	a := record()

	b := record()
	b.Extra = map[string]string{"Streak": "W3"}

	if ContentHash(a) != ContentHash(b) {
		t.Fatal("unmapped extra columns changed the hash")
	}
}
