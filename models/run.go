package models

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusPartial   RunStatus = "partial"
	RunStatusFailed    RunStatus = "failed"
)

// Terminal reports whether the status ends a run's lifecycle.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusSucceeded, RunStatusPartial, RunStatusFailed:
		return true
	}
	return false
}

// IngestRun is one ingestion attempt for one league. Created pending,
// transitioned to running on the first fetch, finalized exactly once.
// Retained indefinitely as an audit trail.
type IngestRun struct {
	ID                   uuid.UUID  `json:"run_id" db:"run_id"`
	League               string     `json:"league" db:"league"`
	Source               string     `json:"source" db:"source"`
	URL                  string     `json:"url" db:"url"`
	StartedAt            time.Time  `json:"started_at" db:"started_at"`
	CompletedAt          *time.Time `json:"completed_at" db:"completed_at"`
	Status               RunStatus  `json:"status" db:"status"`
	RowsAttempted        int        `json:"rows_attempted" db:"rows_attempted"`
	RowsInserted         int        `json:"rows_inserted" db:"rows_inserted"`
	RowsSkippedDuplicate int        `json:"rows_skipped_duplicate" db:"rows_skipped_duplicate"`
	RowsFailed           int        `json:"rows_failed" db:"rows_failed"`
	ErrorDetail          string     `json:"error_detail" db:"error_detail"`
}
