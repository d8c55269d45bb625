package scraper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/silvestred/nba-team-ats-trends-scrape/config"
	"github.com/silvestred/nba-team-ats-trends-scrape/identity"
	"github.com/silvestred/nba-team-ats-trends-scrape/models"
	"github.com/silvestred/nba-team-ats-trends-scrape/normalize"
	"github.com/silvestred/nba-team-ats-trends-scrape/storage"
)

// Orchestrator drives one ingest run per league: fetch, normalize, hash,
// idempotent snapshot write, with outcomes accumulated in a RunTracker.
// Failures are isolated per league.
type Orchestrator struct {
	cfg         *config.Config
	store       storage.Store
	archiver    *storage.Archiver
	handlers    map[string]Handler
	normalizers map[string]*normalize.Normalizer
}

func NewOrchestrator(cfg *config.Config, store storage.Store, client *http.Client) *Orchestrator {
	limiter := rate.NewLimiter(rate.Limit(float64(cfg.Fetch.RequestsPerMin)/60.0), 1)

	handlers := make(map[string]Handler)
	normalizers := make(map[string]*normalize.Normalizer)
	for id, leagueCfg := range cfg.Leagues {
		if !leagueCfg.IsEnabled() {
			continue
		}
		handlers[id] = NewHandler(leagueCfg, &cfg.Fetch, client, limiter)
		normalizers[id] = normalize.New(leagueCfg.Mapping)
	}

	return &Orchestrator{
		cfg:         cfg,
		store:       store,
		handlers:    handlers,
		normalizers: normalizers,
	}
}

// SetArchiver enables raw page archiving for each league run.
func (o *Orchestrator) SetArchiver(a *storage.Archiver) {
	o.archiver = a
}

// Leagues returns the enabled league IDs in stable order.
func (o *Orchestrator) Leagues() []string {
	ids := make([]string, 0, len(o.handlers))
	for id := range o.handlers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RunAll ingests every enabled league. A failed league never affects the
// others; the first error is reported after all leagues have run.
func (o *Orchestrator) RunAll(ctx context.Context) error {
	var firstErr error
	for _, league := range o.Leagues() {
		if err := o.RunLeague(ctx, league); err != nil {
			log.Printf("Run %s: %v", league, err)
			if firstErr == nil {
				firstErr = err
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return firstErr
}

// RunLeague executes one ingest run for one league.
func (o *Orchestrator) RunLeague(ctx context.Context, league string) error {
	leagueCfg, ok := o.cfg.Leagues[league]
	if !ok {
		return fmt.Errorf("unknown league: %s", league)
	}
	handler, ok := o.handlers[league]
	if !ok {
		return fmt.Errorf("league disabled: %s", league)
	}
	normalizer := o.normalizers[league]

	tracker := NewRunTracker(o.store, league, config.SourceName, leagueCfg.URL)
	if err := tracker.Begin(ctx); err != nil {
		return err
	}

	// Finalization must survive cancellation of the run context.
	finalCtx := context.WithoutCancel(ctx)

	if err := tracker.Start(ctx); err != nil {
		return err
	}

	log.Printf("Run %s: fetching %s (mapping v%d)", league, leagueCfg.URL, normalizer.MappingVersion())

	result, err := handler.Fetch(ctx)
	if err != nil {
		if ferr := tracker.Fail(finalCtx, err.Error()); ferr != nil {
			log.Printf("Run %s: finalize after fetch error: %v", league, ferr)
		}
		return err
	}

	o.archive(finalCtx, league, tracker.Run().ID.String(), result.RawHTML)

	scrapedAt := time.Now().UTC()
	scrapeDate := scrapedAt.Truncate(24 * time.Hour)

	log.Printf("Run %s: %d rows parsed", league, len(result.Rows))

	for i := range result.Rows {
		if ctx.Err() != nil {
			detail := fmt.Sprintf("cancelled: %v", ctx.Err())
			if ferr := tracker.Fail(finalCtx, detail); ferr != nil {
				log.Printf("Run %s: finalize after cancel: %v", league, ferr)
			}
			return ctx.Err()
		}

		if err := o.processRow(ctx, tracker, normalizer, &result.Rows[i], scrapedAt, scrapeDate); err != nil {
			// Connectivity loss: the store is gone, abandon the run.
			if ferr := tracker.Fail(finalCtx, err.Error()); ferr != nil {
				log.Printf("Run %s: finalize after persistence error: %v", league, ferr)
			}
			return err
		}
	}

	if err := tracker.Finish(ctx); err != nil {
		return err
	}

	run := tracker.Run()
	log.Printf("Run %s: %s (%d attempted, %d inserted, %d duplicate, %d failed)",
		league, run.Status, run.RowsAttempted, run.RowsInserted, run.RowsSkippedDuplicate, run.RowsFailed)

	return nil
}

// processRow takes one raw row through normalize -> hash -> write and records
// the outcome. The returned error is non-nil only for run-aborting failures;
// row-scoped problems are counted and swallowed.
func (o *Orchestrator) processRow(ctx context.Context, tracker *RunTracker, normalizer *normalize.Normalizer, raw *models.RawRow, scrapedAt, scrapeDate time.Time) error {
	rec, err := normalizer.Normalize(raw)
	if err != nil {
		log.Printf("Run %s: row skipped: %v", raw.League, err)
		tracker.RecordFailed()
		return nil
	}

	payload, err := rec.Payload()
	if err != nil {
		log.Printf("Run %s: payload for %s: %v", raw.League, rec.Team, err)
		tracker.RecordFailed()
		return nil
	}

	snap := &models.Snapshot{
		RunID:       tracker.Run().ID.String(),
		League:      rec.League,
		Team:        rec.Team,
		Content:     payload,
		ContentHash: identity.ContentHash(rec),
		ScrapedAt:   scrapedAt,
		ScrapeDate:  scrapeDate,
	}

	outcome, err := o.store.InsertSnapshot(ctx, snap)
	if err != nil {
		var perr *storage.PersistenceError
		if errors.As(err, &perr) && perr.Connectivity {
			return err
		}
		log.Printf("Run %s: write %s: %v", raw.League, rec.Team, err)
		tracker.RecordFailed()
		return nil
	}

	if outcome == storage.OutcomeInserted {
		tracker.RecordInserted()
	} else {
		tracker.RecordDuplicate()
	}
	return nil
}

func (o *Orchestrator) archive(ctx context.Context, league, runID string, html []byte) {
	if o.archiver == nil || len(html) == 0 {
		return
	}
	if err := o.archiver.ArchivePage(ctx, league, runID, time.Now().UTC(), html); err != nil {
		log.Printf("Run %s: archive raw page: %v", league, err)
	}
}
