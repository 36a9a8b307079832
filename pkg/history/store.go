// Package history persists booking runs in PostgreSQL.
package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq" // PostgreSQL driver
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/devender15/wework-claude-mcp-integration/pkg/booking"
	"github.com/devender15/wework-claude-mcp-integration/pkg/dates"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store records booking reports.
type Store struct {
	db     *sql.DB
	logger *zap.Logger

	mu       sync.Mutex
	migrated bool
}

// Open connects to databaseURL and verifies the connection.
func Open(ctx context.Context, databaseURL string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewStore(db, logger), nil
}

// NewStore wraps an open connection.
func NewStore(db *sql.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger.Named("history")}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate runs all pending migrations using goose.
func (s *Store) Migrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.migrated {
		return nil
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	s.migrated = true
	return nil
}

const (
	insertRun = `
		INSERT INTO booking_runs (id, device_id, building, dry_run, relaunches, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	insertOutcome = `
		INSERT INTO booking_outcomes (run_id, position, date, status, reason, reached, screenshot, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	selectRuns = `
		SELECT id, device_id, building, dry_run, relaunches, started_at, finished_at
		FROM booking_runs
		ORDER BY started_at DESC
		LIMIT $1`

	selectOutcomes = `
		SELECT run_id, date, status, reason, reached, screenshot, duration_ms
		FROM booking_outcomes
		WHERE run_id = ANY($1)
		ORDER BY run_id, position`
)

// Record stores a finished run and its outcomes in one transaction.
func (s *Store) Record(ctx context.Context, r *booking.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, insertRun,
		r.RunID, r.DeviceID, r.Building, r.DryRun, r.Relaunches, r.StartedAt, r.FinishedAt,
	); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", r.RunID, err)
	}

	for i, o := range r.Outcomes {
		if _, err := tx.ExecContext(ctx, insertOutcome,
			r.RunID, i, o.Date, string(o.Status), o.Reason, o.Reached, o.Screenshot, o.Duration.Milliseconds(),
		); err != nil {
			return fmt.Errorf("failed to insert outcome %s: %w", o.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", r.RunID, err)
	}
	s.logger.Debug("recorded run", zap.String("run_id", r.RunID), zap.Int("outcomes", len(r.Outcomes)))
	return nil
}

// List returns the most recent runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*booking.Report, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, selectRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var (
		reports []*booking.Report
		ids     []string
		byID    = make(map[string]*booking.Report)
	)
	for rows.Next() {
		r := &booking.Report{}
		if err := rows.Scan(&r.RunID, &r.DeviceID, &r.Building, &r.DryRun, &r.Relaunches, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		reports = append(reports, r)
		ids = append(ids, r.RunID)
		byID[r.RunID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return reports, nil
	}

	orows, err := s.db.QueryContext(ctx, selectOutcomes, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer orows.Close()

	for orows.Next() {
		var (
			runID  string
			date   time.Time
			status string
			ms     int64
			o      booking.Outcome
		)
		if err := orows.Scan(&runID, &date, &status, &o.Reason, &o.Reached, &o.Screenshot, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		o.Date = date.Format(dates.Layout)
		o.Status = booking.Status(status)
		o.Duration = time.Duration(ms) * time.Millisecond
		if r, ok := byID[runID]; ok {
			r.Outcomes = append(r.Outcomes, o)
		}
	}
	return reports, orows.Err()
}
