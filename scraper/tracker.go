package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/silvestred/nba-team-ats-trends-scrape/models"
	"github.com/silvestred/nba-team-ats-trends-scrape/storage"
)

// RunTracker owns the lifecycle of one league's ingest run:
// pending -> running -> {succeeded, partial, failed}. Transitions are never
// skipped or reversed, and completed_at is set exactly once.
type RunTracker struct {
	store storage.Store
	run   *models.IngestRun
}

func NewRunTracker(store storage.Store, league, source, url string) *RunTracker {
	return &RunTracker{
		store: store,
		run: &models.IngestRun{
			ID:        uuid.New(),
			League:    league,
			Source:    source,
			URL:       url,
			StartedAt: time.Now().UTC(),
			Status:    models.RunStatusPending,
		},
	}
}

func (t *RunTracker) Run() *models.IngestRun {
	return t.run
}

// Begin persists the pending run record.
func (t *RunTracker) Begin(ctx context.Context) error {
	if err := t.store.CreateRun(ctx, t.run); err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// Start marks the run running. Called on the first fetch for the league.
func (t *RunTracker) Start(ctx context.Context) error {
	if t.run.Status != models.RunStatusPending {
		return fmt.Errorf("run %s: cannot start from %s", t.run.ID, t.run.Status)
	}
	t.run.Status = models.RunStatusRunning
	if err := t.store.UpdateRun(ctx, t.run); err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// RecordInserted counts one processed row that produced a new snapshot.
func (t *RunTracker) RecordInserted() {
	t.run.RowsAttempted++
	t.run.RowsInserted++
}

// RecordDuplicate counts one processed row whose content was already
// captured. A success outcome, not a failure.
func (t *RunTracker) RecordDuplicate() {
	t.run.RowsAttempted++
	t.run.RowsSkippedDuplicate++
}

// RecordFailed counts one row that could not be normalized or written.
func (t *RunTracker) RecordFailed() {
	t.run.RowsAttempted++
	t.run.RowsFailed++
}

// Finish finalizes a running run as succeeded or partial based on the row
// counters.
func (t *RunTracker) Finish(ctx context.Context) error {
	status := models.RunStatusSucceeded
	if t.run.RowsFailed > 0 {
		status = models.RunStatusPartial
	}
	return t.finalize(ctx, status, "")
}

// Fail finalizes the run after a non-recoverable error (structural fetch
// failure, connectivity loss, cancellation), abandoning any remaining rows.
func (t *RunTracker) Fail(ctx context.Context, detail string) error {
	return t.finalize(ctx, models.RunStatusFailed, detail)
}

func (t *RunTracker) finalize(ctx context.Context, status models.RunStatus, detail string) error {
	if t.run.Status.Terminal() {
		return fmt.Errorf("run %s: already finalized as %s", t.run.ID, t.run.Status)
	}
	now := time.Now().UTC()
	t.run.Status = status
	t.run.CompletedAt = &now
	t.run.ErrorDetail = detail

	if err := t.store.UpdateRun(ctx, t.run); err != nil {
		return fmt.Errorf("finalize run: %w", err)
	}
	return nil
}
