package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/silvestred/nba-team-ats-trends-scrape/models"
)

// SQLiteStore implements Store for local and single-node deployments. Same
// append-only semantics as Postgres; INSERT OR IGNORE plays the role of
// ON CONFLICT DO NOTHING.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS ingest_runs (
		run_id                 TEXT PRIMARY KEY,
		source                 TEXT NOT NULL,
		league                 TEXT NOT NULL,
		url                    TEXT NOT NULL,
		started_at             DATETIME NOT NULL,
		completed_at           DATETIME,
		status                 TEXT NOT NULL,
		rows_attempted         INTEGER NOT NULL DEFAULT 0,
		rows_inserted          INTEGER NOT NULL DEFAULT 0,
		rows_skipped_duplicate INTEGER NOT NULL DEFAULT 0,
		rows_failed            INTEGER NOT NULL DEFAULT 0,
		error_detail           TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS ats_snapshots (
		id           INTEGER PRIMARY KEY,
		run_id       TEXT NOT NULL,
		league       TEXT NOT NULL,
		team         TEXT NOT NULL,
		content      TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		scraped_at   DATETIME NOT NULL,
		scrape_date  TEXT NOT NULL,
		UNIQUE (league, team, content_hash),
		FOREIGN KEY (run_id) REFERENCES ingest_runs(run_id)
	);

	CREATE INDEX IF NOT EXISTS idx_ats_snapshots_league_team_time
		ON ats_snapshots (league, team, scraped_at DESC);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const dateLayout = "2006-01-02"

// =============================================================================
// Snapshots
// =============================================================================

func (s *SQLiteStore) InsertSnapshot(ctx context.Context, snap *models.Snapshot) (InsertOutcome, error) {
	query := `
		INSERT OR IGNORE INTO ats_snapshots (run_id, league, team, content, content_hash, scraped_at, scrape_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	res, err := s.db.ExecContext(ctx, query,
		snap.RunID, snap.League, snap.Team, string(snap.Content), snap.ContentHash,
		snap.ScrapedAt.UTC(), snap.ScrapeDate.Format(dateLayout),
	)
	if err != nil {
		return 0, classifySQLiteError(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, &PersistenceError{Err: err}
	}
	if n == 0 {
		return OutcomeDuplicate, nil
	}
	if id, err := res.LastInsertId(); err == nil {
		snap.ID = id
	}
	return OutcomeInserted, nil
}

func classifySQLiteError(err error) *PersistenceError {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return &PersistenceError{Connectivity: true, Err: err}
	}
	return &PersistenceError{Connectivity: false, Err: err}
}

// =============================================================================
// Ingest runs
// =============================================================================

func (s *SQLiteStore) CreateRun(ctx context.Context, run *models.IngestRun) error {
	query := `
		INSERT INTO ingest_runs (run_id, source, league, url, started_at, completed_at, status,
			rows_attempted, rows_inserted, rows_skipped_duplicate, rows_failed, error_detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		run.ID.String(), run.Source, run.League, run.URL, run.StartedAt.UTC(), nullTime(run.CompletedAt),
		string(run.Status), run.RowsAttempted, run.RowsInserted, run.RowsSkippedDuplicate,
		run.RowsFailed, run.ErrorDetail,
	)
	return err
}

func (s *SQLiteStore) UpdateRun(ctx context.Context, run *models.IngestRun) error {
	query := `
		UPDATE ingest_runs SET
			completed_at = ?, status = ?, rows_attempted = ?, rows_inserted = ?,
			rows_skipped_duplicate = ?, rows_failed = ?, error_detail = ?
		WHERE run_id = ?`

	_, err := s.db.ExecContext(ctx, query,
		nullTime(run.CompletedAt), string(run.Status), run.RowsAttempted, run.RowsInserted,
		run.RowsSkippedDuplicate, run.RowsFailed, run.ErrorDetail, run.ID.String(),
	)
	return err
}

func (s *SQLiteStore) GetRun(ctx context.Context, id uuid.UUID) (*models.IngestRun, error) {
	query := `
		SELECT run_id, source, league, url, started_at, completed_at, status,
			rows_attempted, rows_inserted, rows_skipped_duplicate, rows_failed, error_detail
		FROM ingest_runs WHERE run_id = ?`

	run, err := scanRun(s.db.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, league string, limit int) ([]models.IngestRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT run_id, source, league, url, started_at, completed_at, status,
			rows_attempted, rows_inserted, rows_skipped_duplicate, rows_failed, error_detail
		FROM ingest_runs
		WHERE (? = '' OR league = ?)
		ORDER BY started_at DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, league, league, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.IngestRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.IngestRun, error) {
	var run models.IngestRun
	var id, status string
	var completedAt sql.NullTime

	err := row.Scan(
		&id, &run.Source, &run.League, &run.URL, &run.StartedAt, &completedAt, &status,
		&run.RowsAttempted, &run.RowsInserted, &run.RowsSkippedDuplicate, &run.RowsFailed, &run.ErrorDetail,
	)
	if err != nil {
		return nil, err
	}

	run.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse run_id: %w", err)
	}
	run.Status = models.RunStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	return &run, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// =============================================================================
// Read views
// =============================================================================

func (s *SQLiteStore) LatestTrends(ctx context.Context, league string) ([]models.TrendRow, error) {
	today := time.Now().UTC().Format(dateLayout)

	// Latest capture per (league, team) among today's rows; ties broken by
	// scraped_at desc then id desc.
	query := `
		SELECT league, team,
			json_extract(content, '$.ats_record'),
			json_extract(content, '$.cover_pct'),
			json_extract(content, '$.mov'),
			json_extract(content, '$.ats_plus_minus'),
			scraped_at, scrape_date
		FROM ats_snapshots s
		WHERE scrape_date = ?
			AND (? = '' OR league = ?)
			AND id = (
				SELECT id FROM ats_snapshots s2
				WHERE s2.league = s.league AND s2.team = s.team AND s2.scrape_date = s.scrape_date
				ORDER BY s2.scraped_at DESC, s2.id DESC
				LIMIT 1
			)
		ORDER BY league, team`

	return s.queryTrends(ctx, query, today, league, league)
}

func (s *SQLiteStore) TrendHistory(ctx context.Context, filter HistoryFilter) ([]models.TrendRow, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}

	var from, to any
	if filter.From != nil {
		from = filter.From.UTC().Format(dateLayout)
	}
	if filter.To != nil {
		to = filter.To.UTC().Format(dateLayout)
	}

	query := `
		SELECT league, team,
			json_extract(content, '$.ats_record'),
			json_extract(content, '$.cover_pct'),
			json_extract(content, '$.mov'),
			json_extract(content, '$.ats_plus_minus'),
			scraped_at, scrape_date
		FROM ats_snapshots
		WHERE (? = '' OR league = ?)
			AND (? = '' OR team = ?)
			AND (? IS NULL OR scrape_date >= ?)
			AND (? IS NULL OR scrape_date <= ?)
		ORDER BY scraped_at DESC, id DESC
		LIMIT ?`

	return s.queryTrends(ctx, query,
		filter.League, filter.League, filter.Team, filter.Team, from, from, to, to, limit)
}

func (s *SQLiteStore) queryTrends(ctx context.Context, query string, args ...any) ([]models.TrendRow, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trends []models.TrendRow
	for rows.Next() {
		var t models.TrendRow
		var atsRecord, coverPct sql.NullString
		var mov, atsPlusMinus sql.NullFloat64
		var scrapeDate string

		if err := rows.Scan(
			&t.League, &t.Team, &atsRecord, &coverPct, &mov, &atsPlusMinus, &t.ScrapedAt, &scrapeDate,
		); err != nil {
			return nil, err
		}

		if atsRecord.Valid {
			v := atsRecord.String
			t.ATSRecord = &v
		}
		if coverPct.Valid {
			v := coverPct.String
			t.CoverPct = &v
		}
		if mov.Valid {
			v := mov.Float64
			t.MOV = &v
		}
		if atsPlusMinus.Valid {
			v := atsPlusMinus.Float64
			t.ATSPlusMinus = &v
		}
		if d, err := time.Parse(dateLayout, scrapeDate); err == nil {
			t.ScrapeDate = d
		}

		trends = append(trends, t)
	}
	return trends, rows.Err()
}
