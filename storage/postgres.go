package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/silvestred/nba-team-ats-trends-scrape/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// EnsureSchema creates tables, the dedup constraint, and the two read views.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ingest_runs (
			run_id                 uuid PRIMARY KEY,
			source                 text NOT NULL,
			league                 text NOT NULL,
			url                    text NOT NULL,
			started_at             timestamptz NOT NULL,
			completed_at           timestamptz,
			status                 text NOT NULL,
			rows_attempted         int NOT NULL DEFAULT 0,
			rows_inserted          int NOT NULL DEFAULT 0,
			rows_skipped_duplicate int NOT NULL DEFAULT 0,
			rows_failed            int NOT NULL DEFAULT 0,
			error_detail           text NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS ats_snapshots (
			id           bigserial PRIMARY KEY,
			run_id       uuid NOT NULL REFERENCES ingest_runs(run_id),
			league       text NOT NULL,
			team         text NOT NULL,
			content      jsonb NOT NULL,
			content_hash text NOT NULL,
			scraped_at   timestamptz NOT NULL,
			scrape_date  date NOT NULL,
			UNIQUE (league, team, content_hash)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_ats_snapshots_league_team_time
			ON ats_snapshots (league, team, scraped_at DESC)`,

		// One row per (league, team) among today's captures; ties broken by
		// scraped_at desc then insertion id desc.
		`CREATE OR REPLACE VIEW latest_ats_trends_v AS
			SELECT DISTINCT ON (league, team)
				league,
				team,
				content->>'ats_record' AS ats_record,
				content->>'cover_pct' AS cover_pct,
				(content->>'mov')::double precision AS mov,
				(content->>'ats_plus_minus')::double precision AS ats_plus_minus,
				scraped_at,
				scrape_date
			FROM ats_snapshots
			WHERE scrape_date = (now() AT TIME ZONE 'UTC')::date
			ORDER BY league, team, scraped_at DESC, id DESC`,

		// One row per persisted snapshot; callers supply ordering/filtering.
		`CREATE OR REPLACE VIEW flat_ats_trends_v AS
			SELECT
				id,
				league,
				team,
				content->>'ats_record' AS ats_record,
				content->>'cover_pct' AS cover_pct,
				(content->>'mov')::double precision AS mov,
				(content->>'ats_plus_minus')::double precision AS ats_plus_minus,
				scraped_at,
				scrape_date
			FROM ats_snapshots`,
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// =============================================================================
// Snapshots
// =============================================================================

// InsertSnapshot attempts an idempotent append. The uniqueness constraint on
// (league, team, content_hash) is the sole dedup mechanism: a conflicting
// write comes back as OutcomeDuplicate, not an error.
func (s *PostgresStore) InsertSnapshot(ctx context.Context, snap *models.Snapshot) (InsertOutcome, error) {
	query := `
		INSERT INTO ats_snapshots (run_id, league, team, content, content_hash, scraped_at, scrape_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (league, team, content_hash) DO NOTHING
		RETURNING id`

	err := s.pool.QueryRow(ctx, query,
		snap.RunID, snap.League, snap.Team, snap.Content, snap.ContentHash, snap.ScrapedAt, snap.ScrapeDate,
	).Scan(&snap.ID)

	if errors.Is(err, pgx.ErrNoRows) {
		return OutcomeDuplicate, nil
	}
	if err != nil {
		return 0, classifyPgError(err)
	}
	return OutcomeInserted, nil
}

// classifyPgError splits write failures into connectivity-class (run-aborting)
// and row-scoped. SQL-level failures carry a PgError; anything without one is
// a transport problem.
func classifyPgError(err error) *PersistenceError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 = connection exception, class 57 = operator intervention
		// (e.g. server shutdown). Both mean the store is gone.
		if strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57") {
			return &PersistenceError{Connectivity: true, Err: err}
		}
		return &PersistenceError{Connectivity: false, Err: err}
	}
	return &PersistenceError{Connectivity: true, Err: err}
}

// =============================================================================
// Ingest runs
// =============================================================================

func (s *PostgresStore) CreateRun(ctx context.Context, run *models.IngestRun) error {
	query := `
		INSERT INTO ingest_runs (run_id, source, league, url, started_at, completed_at, status,
			rows_attempted, rows_inserted, rows_skipped_duplicate, rows_failed, error_detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.pool.Exec(ctx, query,
		run.ID, run.Source, run.League, run.URL, run.StartedAt, run.CompletedAt, run.Status,
		run.RowsAttempted, run.RowsInserted, run.RowsSkippedDuplicate, run.RowsFailed, run.ErrorDetail,
	)
	return err
}

func (s *PostgresStore) UpdateRun(ctx context.Context, run *models.IngestRun) error {
	query := `
		UPDATE ingest_runs SET
			completed_at = $2, status = $3, rows_attempted = $4, rows_inserted = $5,
			rows_skipped_duplicate = $6, rows_failed = $7, error_detail = $8
		WHERE run_id = $1`

	_, err := s.pool.Exec(ctx, query,
		run.ID, run.CompletedAt, run.Status, run.RowsAttempted, run.RowsInserted,
		run.RowsSkippedDuplicate, run.RowsFailed, run.ErrorDetail,
	)
	return err
}

func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (*models.IngestRun, error) {
	query := `
		SELECT run_id, source, league, url, started_at, completed_at, status,
			rows_attempted, rows_inserted, rows_skipped_duplicate, rows_failed, error_detail
		FROM ingest_runs WHERE run_id = $1`

	var run models.IngestRun
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.Source, &run.League, &run.URL, &run.StartedAt, &run.CompletedAt, &run.Status,
		&run.RowsAttempted, &run.RowsInserted, &run.RowsSkippedDuplicate, &run.RowsFailed, &run.ErrorDetail,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, league string, limit int) ([]models.IngestRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT run_id, source, league, url, started_at, completed_at, status,
			rows_attempted, rows_inserted, rows_skipped_duplicate, rows_failed, error_detail
		FROM ingest_runs
		WHERE ($1 = '' OR league = $1)
		ORDER BY started_at DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, league, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.IngestRun
	for rows.Next() {
		var run models.IngestRun
		if err := rows.Scan(
			&run.ID, &run.Source, &run.League, &run.URL, &run.StartedAt, &run.CompletedAt, &run.Status,
			&run.RowsAttempted, &run.RowsInserted, &run.RowsSkippedDuplicate, &run.RowsFailed, &run.ErrorDetail,
		); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// =============================================================================
// Read views
// =============================================================================

func (s *PostgresStore) LatestTrends(ctx context.Context, league string) ([]models.TrendRow, error) {
	query := `
		SELECT league, team, ats_record, cover_pct, mov, ats_plus_minus, scraped_at, scrape_date
		FROM latest_ats_trends_v
		WHERE ($1 = '' OR league = $1)
		ORDER BY league, team`

	return s.queryTrends(ctx, query, league)
}

func (s *PostgresStore) TrendHistory(ctx context.Context, filter HistoryFilter) ([]models.TrendRow, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}

	query := `
		SELECT league, team, ats_record, cover_pct, mov, ats_plus_minus, scraped_at, scrape_date
		FROM flat_ats_trends_v
		WHERE ($1 = '' OR league = $1)
			AND ($2 = '' OR team = $2)
			AND ($3::date IS NULL OR scrape_date >= $3)
			AND ($4::date IS NULL OR scrape_date <= $4)
		ORDER BY scraped_at DESC, id DESC
		LIMIT $5`

	return s.queryTrends(ctx, query, filter.League, filter.Team, filter.From, filter.To, limit)
}

func (s *PostgresStore) queryTrends(ctx context.Context, query string, args ...any) ([]models.TrendRow, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trends []models.TrendRow
	for rows.Next() {
		var t models.TrendRow
		if err := rows.Scan(
			&t.League, &t.Team, &t.ATSRecord, &t.CoverPct, &t.MOV, &t.ATSPlusMinus, &t.ScrapedAt, &t.ScrapeDate,
		); err != nil {
			return nil, err
		}
		trends = append(trends, t)
	}
	return trends, rows.Err()
}
