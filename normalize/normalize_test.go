package normalize

import (
	"testing"

	"github.com/silvestred/nba-team-ats-trends-scrape/models"
)

func rawRow(league string, fields map[string]string) *models.RawRow {
	return &models.RawRow{
		League: league,
		Source: "teamrankings_ats_trends",
		URL:    "https://www.teamrankings.com/nba/trends/ats_trends/",
		Fields: fields,
	}
}

func TestNormalize_Basic(t *testing.T) {
	n := New(DefaultMapping())

	rec, err := n.Normalize(rawRow("nba", map[string]string{
		"Team":       "Lakers",
		"ATS Record": "10-5",
		"Cover %":    "66.7%",
		"MOV":        "+3.2",
		"ATS +/-":    "+1.1",
	}))
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	if rec.League != "nba" {
		t.Fatalf("expected league nba, got %s", rec.League)
	}
	if rec.Team != "Lakers" {
		t.Fatalf("expected team Lakers, got %s", rec.Team)
	}
	if rec.ATSRecord == nil || *rec.ATSRecord != "10-5" {
		t.Fatalf("unexpected ats_record %v", rec.ATSRecord)
	}
	if rec.CoverPct == nil || *rec.CoverPct != "66.7%" {
		t.Fatalf("unexpected cover_pct %v", rec.CoverPct)
	}
	if rec.MOV == nil || *rec.MOV != 3.2 {
		t.Fatalf("unexpected mov %v", rec.MOV)
	}
	if rec.ATSPlusMinus == nil || *rec.ATSPlusMinus != 1.1 {
		t.Fatalf("unexpected ats_plus_minus %v", rec.ATSPlusMinus)
	}
}

func TestNormalize_NullTolerance(t *testing.T) {
	n := New(DefaultMapping())

	for _, blank := range []string{"", " ", "N/A", "n/a", "--", "-"} {
		rec, err := n.Normalize(rawRow("nba", map[string]string{
			"Team": "Celtics",
			"MOV":  blank,
		}))
		if err != nil {
			t.Fatalf("normalize raised for %q: %v", blank, err)
		}
		if rec.MOV != nil {
			t.Fatalf("expected nil mov for %q, got %v", blank, *rec.MOV)
		}
	}
}

func TestNormalize_MalformedNumberIsNull(t *testing.T) {
	n := New(DefaultMapping())

	rec, err := n.Normalize(rawRow("nba", map[string]string{
		"Team": "Celtics",
		"MOV":  "not-a-number",
	}))
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if rec.MOV != nil {
		t.Fatalf("expected nil mov, got %v", *rec.MOV)
	}
}

func TestNormalize_PlusSignStripped(t *testing.T) {
	n := New(DefaultMapping())

	plus, err := n.Normalize(rawRow("nba", map[string]string{"Team": "Suns", "MOV": "+3.5"}))
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	bare, err := n.Normalize(rawRow("nba", map[string]string{"Team": "Suns", "MOV": "3.5"}))
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if *plus.MOV != *bare.MOV {
		t.Fatalf("expected +3.5 and 3.5 to normalize equal, got %v vs %v", *plus.MOV, *bare.MOV)
	}
}

func TestNormalize_PercentTypeDecides(t *testing.T) {
	mapping := Mapping{
		Version: 1,
		Fields: []FieldMapping{
			{Labels: []string{"Team"}, Field: FieldTeam, Type: FieldText},
			{Labels: []string{"Cover %"}, Field: FieldCoverPct, Type: FieldPercent},
			{Labels: []string{"MOV"}, Field: FieldMOV, Type: FieldNumber},
		},
	}
	n := New(mapping)

	// Percent-typed field keeps the textual form; a number-typed field
	// receiving a percent string parses to a fraction.
	rec, err := n.Normalize(rawRow("nba", map[string]string{
		"Team":    "Heat",
		"Cover %": "66.7%",
		"MOV":     "50%",
	}))
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if rec.CoverPct == nil || *rec.CoverPct != "66.7%" {
		t.Fatalf("expected textual cover_pct, got %v", rec.CoverPct)
	}
	if rec.MOV == nil || *rec.MOV != 0.5 {
		t.Fatalf("expected mov 0.5, got %v", rec.MOV)
	}
}

func TestNormalize_MissingIdentity(t *testing.T) {
	n := New(DefaultMapping())

	if _, err := n.Normalize(rawRow("nba", map[string]string{"MOV": "1.0"})); err == nil {
		t.Fatal("expected error for missing team")
	}
	if _, err := n.Normalize(rawRow("nba", map[string]string{"Team": "  "})); err == nil {
		t.Fatal("expected error for blank team")
	}
	if _, err := n.Normalize(rawRow("", map[string]string{"Team": "Lakers"})); err == nil {
		t.Fatal("expected error for missing league")
	}
}

func TestNormalize_UnknownColumnsPreserved(t *testing.T) {
	n := New(DefaultMapping())

	rec, err := n.Normalize(rawRow("nba", map[string]string{
		"Team":     "Nuggets",
		"Streak":   "W3",
		"Home ATS": "6-2",
	}))
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if rec.Extra["Streak"] != "W3" || rec.Extra["Home ATS"] != "6-2" {
		t.Fatalf("expected unknown columns preserved, got %v", rec.Extra)
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	n := New(DefaultMapping())
	fields := map[string]string{
		"Team":       "Bucks",
		"ATS Record": "8-7",
		"Cover %":    "53.3%",
		"MOV":        "+0.8",
		"ATS +/-":    "-0.4",
	}

	a, err := n.Normalize(rawRow("nba", fields))
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	b, err := n.Normalize(rawRow("nba", fields))
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	if *a.ATSRecord != *b.ATSRecord || *a.CoverPct != *b.CoverPct ||
		*a.MOV != *b.MOV || *a.ATSPlusMinus != *b.ATSPlusMinus {
		t.Fatal("expected identical records from identical raw input")
	}
}
