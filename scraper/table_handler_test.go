package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/silvestred/nba-team-ats-trends-scrape/config"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	path := filepath.Join("testdata", name)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", name, err)
	}
	return data
}

func testHandler(league string) *TableHandler {
	return NewTableHandler(
		&config.LeagueConfig{ID: league, URL: "https://www.teamrankings.com/" + league + "/trends/ats_trends/"},
		&config.FetchConfig{MaxAttempts: 1},
		nil, nil,
	)
}

func TestParseTable_Basic(t *testing.T) {
	handler := testHandler("nba")
	data := loadFixture(t, "ats_trends_basic.html")

	rows, err := handler.ParseTable(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	row := rows[0]
	if row.League != "nba" {
		t.Fatalf("expected league nba, got %s", row.League)
	}
	if row.Source != config.SourceName {
		t.Fatalf("unexpected source %s", row.Source)
	}
	if row.Fields["Team"] != "Lakers" {
		t.Fatalf("expected team Lakers, got %s", row.Fields["Team"])
	}
	if row.Fields["ATS Record"] != "10-5" {
		t.Fatalf("expected ats record 10-5, got %s", row.Fields["ATS Record"])
	}
	if row.Fields["Cover %"] != "66.7%" {
		t.Fatalf("expected cover 66.7%%, got %s", row.Fields["Cover %"])
	}
	if row.Fields["MOV"] != "+3.2" {
		t.Fatalf("expected mov +3.2, got %s", row.Fields["MOV"])
	}
	if row.Fields["ATS +/-"] != "+1.1" {
		t.Fatalf("expected ats +/- +1.1, got %s", row.Fields["ATS +/-"])
	}

	// Placeholder cells pass through untouched; null handling happens later.
	empty := rows[2]
	if empty.Fields["Team"] != "Pistons" {
		t.Fatalf("expected team Pistons, got %s", empty.Fields["Team"])
	}
	if empty.Fields["Cover %"] != "--" {
		t.Fatalf("expected raw placeholder --, got %s", empty.Fields["Cover %"])
	}
	if empty.Fields["MOV"] != "N/A" {
		t.Fatalf("expected raw placeholder N/A, got %s", empty.Fields["MOV"])
	}
	if empty.Fields["ATS +/-"] != "" {
		t.Fatalf("expected empty cell, got %s", empty.Fields["ATS +/-"])
	}
}

func TestParseTable_TDHeaderFallback(t *testing.T) {
	handler := testHandler("nfl")
	data := loadFixture(t, "ats_trends_td_header.html")

	rows, err := handler.ParseTable(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Fields["Team"] != "Chiefs" {
		t.Fatalf("expected team Chiefs, got %s", rows[0].Fields["Team"])
	}
	if rows[0].Fields["Cover %"] != "64.7%" {
		t.Fatalf("expected cover 64.7%%, got %s", rows[0].Fields["Cover %"])
	}
}

func TestParseTable_RaggedRows(t *testing.T) {
	handler := testHandler("ncb")
	data := loadFixture(t, "ats_trends_ragged.html")

	rows, err := handler.ParseTable(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	// The divider row has no td cells and is skipped.
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	// Wider row: extra cell dropped, zipped to header width.
	wide := rows[0]
	if len(wide.Fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(wide.Fields))
	}
	if wide.Fields["Team"] != "Duke" {
		t.Fatalf("expected team Duke, got %s", wide.Fields["Team"])
	}

	// Narrower row: trailing headers absent from the map.
	narrow := rows[1]
	if len(narrow.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(narrow.Fields))
	}
	if _, ok := narrow.Fields["Cover %"]; ok {
		t.Fatal("expected no Cover % field on short row")
	}
}

func TestParseTable_NoTable(t *testing.T) {
	handler := testHandler("nba")
	data := loadFixture(t, "ats_trends_no_table.html")

	if _, err := handler.ParseTable(data); err == nil {
		t.Fatal("expected error for page without a table")
	}
}

func TestFetch_RetriesTransientFailures(t *testing.T) {
	page := loadFixture(t, "ats_trends_basic.html")

	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(page)
	}))
	defer srv.Close()

	handler := NewTableHandler(
		&config.LeagueConfig{ID: "nba", URL: srv.URL},
		&config.FetchConfig{UserAgent: "test", MaxAttempts: 3, BackoffBase: time.Millisecond},
		srv.Client(), nil,
	)

	result, err := handler.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if requests != 3 {
		t.Fatalf("expected 3 requests, got %d", requests)
	}
	if len(result.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(result.Rows))
	}
	if len(result.RawHTML) == 0 {
		t.Fatal("expected raw html in result")
	}
}

func TestFetch_ExhaustedRetriesTransientError(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	handler := NewTableHandler(
		&config.LeagueConfig{ID: "nba", URL: srv.URL},
		&config.FetchConfig{UserAgent: "test", MaxAttempts: 2, BackoffBase: time.Millisecond},
		srv.Client(), nil,
	)

	_, err := handler.Fetch(context.Background())
	var ferr *FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if ferr.Kind != FetchTransient {
		t.Fatalf("expected transient kind, got %s", ferr.Kind)
	}
	if requests != 2 {
		t.Fatalf("expected 2 requests, got %d", requests)
	}
}

func TestFetch_StructuralErrorNotRetried(t *testing.T) {
	page := loadFixture(t, "ats_trends_no_table.html")

	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write(page)
	}))
	defer srv.Close()

	handler := NewTableHandler(
		&config.LeagueConfig{ID: "nba", URL: srv.URL},
		&config.FetchConfig{UserAgent: "test", MaxAttempts: 3, BackoffBase: time.Millisecond},
		srv.Client(), nil,
	)

	_, err := handler.Fetch(context.Background())
	var ferr *FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if ferr.Kind != FetchStructural {
		t.Fatalf("expected structural kind, got %s", ferr.Kind)
	}
	if requests != 1 {
		t.Fatalf("expected 1 request, got %d", requests)
	}
}
