// Package storage persists snapshots and run records. Dedup is enforced by
// the store's own uniqueness constraint on (league, team, content_hash), not
// by any in-process state, so concurrent runs for the same league are safe
// without coordination.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/silvestred/nba-team-ats-trends-scrape/models"
)

// InsertOutcome is the result of an idempotent snapshot write.
type InsertOutcome int

const (
	// OutcomeInserted means a new snapshot row was durably written.
	OutcomeInserted InsertOutcome = iota
	// OutcomeDuplicate means the uniqueness constraint rejected the write:
	// same content already captured. Success with no new information.
	OutcomeDuplicate
)

func (o InsertOutcome) String() string {
	if o == OutcomeDuplicate {
		return "duplicate"
	}
	return "inserted"
}

// PersistenceError is a write failure other than the expected duplicate.
// Connectivity-class instances abort the whole run; everything else is
// scoped to the row that failed.
type PersistenceError struct {
	Connectivity bool
	Err          error
}

func (e *PersistenceError) Error() string {
	if e.Connectivity {
		return fmt.Sprintf("storage connectivity: %v", e.Err)
	}
	return fmt.Sprintf("storage write: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// HistoryFilter narrows the flat history view. Zero values mean "no filter".
type HistoryFilter struct {
	League string
	Team   string
	From   *time.Time
	To     *time.Time
	Limit  int
}

// Store is the persistence contract the pipeline and the ops facade share.
// Snapshots are append-only: no method mutates a previously persisted one.
type Store interface {
	EnsureSchema(ctx context.Context) error

	InsertSnapshot(ctx context.Context, s *models.Snapshot) (InsertOutcome, error)

	CreateRun(ctx context.Context, run *models.IngestRun) error
	UpdateRun(ctx context.Context, run *models.IngestRun) error
	GetRun(ctx context.Context, id uuid.UUID) (*models.IngestRun, error)
	ListRuns(ctx context.Context, league string, limit int) ([]models.IngestRun, error)

	LatestTrends(ctx context.Context, league string) ([]models.TrendRow, error)
	TrendHistory(ctx context.Context, filter HistoryFilter) ([]models.TrendRow, error)

	Close() error
}
