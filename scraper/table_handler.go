package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/silvestred/nba-team-ats-trends-scrape/config"
	"github.com/silvestred/nba-team-ats-trends-scrape/models"
)

// TableHandler fetches a trends page and extracts its first HTML table.
type TableHandler struct {
	cfg      *config.LeagueConfig
	fetchCfg *config.FetchConfig
	client   *http.Client
	limiter  *rate.Limiter
}

func NewTableHandler(cfg *config.LeagueConfig, fetchCfg *config.FetchConfig, client *http.Client, limiter *rate.Limiter) *TableHandler {
	return &TableHandler{
		cfg:      cfg,
		fetchCfg: fetchCfg,
		client:   client,
		limiter:  limiter,
	}
}

func (h *TableHandler) League() string {
	return h.cfg.ID
}

// Fetch retrieves the page with bounded exponential-backoff retries on
// transient failures, then parses the table. A structural failure (no table,
// no header row) is raised immediately and never retried.
func (h *TableHandler) Fetch(ctx context.Context) (*FetchResult, error) {
	var html []byte
	var lastErr error

	for attempt := 1; attempt <= h.fetchCfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := h.fetchCfg.BackoffBase << (attempt - 2)
			log.Printf("Fetch %s: attempt %d/%d in %s (last error: %v)",
				h.cfg.ID, attempt, h.fetchCfg.MaxAttempts, delay, lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, &FetchError{League: h.cfg.ID, Kind: FetchTransient, Err: ctx.Err()}
			}
		}

		var err error
		html, err = h.fetchPage(ctx)
		if err == nil {
			break
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, &FetchError{League: h.cfg.ID, Kind: FetchTransient, Err: ctx.Err()}
		}
	}
	if html == nil {
		return nil, &FetchError{League: h.cfg.ID, Kind: FetchTransient, Err: lastErr}
	}

	rows, err := h.ParseTable(html)
	if err != nil {
		return nil, &FetchError{League: h.cfg.ID, Kind: FetchStructural, Err: err}
	}

	return &FetchResult{Rows: rows, RawHTML: html}, nil
}

func (h *TableHandler) fetchPage(ctx context.Context) ([]byte, error) {
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", h.fetchCfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", h.cfg.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", h.cfg.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// ParseTable extracts the first table on the page into raw rows: header
// labels from the first row's th cells (td as fallback), value rows zipped
// against the headers. Rows without td cells are skipped; mismatched widths
// zip to the shorter length.
func (h *TableHandler) ParseTable(html []byte) ([]models.RawRow, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("no table found on page")
	}

	trs := table.Find("tr")
	if trs.Length() == 0 {
		return nil, fmt.Errorf("table has no rows")
	}

	headerRow := trs.First()
	var headers []string
	headerRow.Find("th").Each(func(i int, s *goquery.Selection) {
		headers = append(headers, strings.TrimSpace(s.Text()))
	})
	if len(headers) == 0 {
		// Rare: header row rendered with td cells.
		headerRow.Find("td").Each(func(i int, s *goquery.Selection) {
			headers = append(headers, strings.TrimSpace(s.Text()))
		})
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("table has no header row")
	}

	var rows []models.RawRow
	trs.Slice(1, trs.Length()).Each(func(i int, tr *goquery.Selection) {
		var values []string
		tr.Find("td").Each(func(j int, td *goquery.Selection) {
			values = append(values, strings.TrimSpace(td.Text()))
		})
		if len(values) == 0 {
			return
		}

		n := len(values)
		if len(headers) < n {
			n = len(headers)
		}
		fields := make(map[string]string, n)
		for k := 0; k < n; k++ {
			fields[headers[k]] = values[k]
		}

		rows = append(rows, models.RawRow{
			League: h.cfg.ID,
			Source: config.SourceName,
			URL:    h.cfg.URL,
			Fields: fields,
		})
	})

	return rows, nil
}
