package scraper

import (
	"context"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/silvestred/nba-team-ats-trends-scrape/config"
	"github.com/silvestred/nba-team-ats-trends-scrape/models"
)

// FetchResult carries the parsed rows plus the raw page for archiving.
type FetchResult struct {
	Rows    []models.RawRow
	RawHTML []byte
}

// Handler fetches one league's raw trend rows.
type Handler interface {
	League() string
	Fetch(ctx context.Context) (*FetchResult, error)
}

// NewHandler builds the handler for a league. All current sources publish a
// plain HTML table.
func NewHandler(leagueCfg *config.LeagueConfig, fetchCfg *config.FetchConfig, client *http.Client, limiter *rate.Limiter) Handler {
	return NewTableHandler(leagueCfg, fetchCfg, client, limiter)
}
