package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tradestats/internal/stats"
	"tradestats/pkg/storage"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS symbol_stats_record (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	source TEXT NOT NULL,
	complete INTEGER NOT NULL,
	failed_line INTEGER NOT NULL DEFAULT 0,
	max_time_gap INTEGER NOT NULL,
	total_volume INTEGER NOT NULL,
	weighted_average_price INTEGER NOT NULL,
	max_traded_price INTEGER NOT NULL,
	started_at INTEGER NOT NULL,
	recorded_at INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_run_symbol ON symbol_stats_record (run_id, symbol);
CREATE INDEX IF NOT EXISTS idx_stats_symbol ON symbol_stats_record (symbol);
CREATE TABLE IF NOT EXISTS stats_run (
	run_id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	complete INTEGER NOT NULL,
	failed_line INTEGER NOT NULL DEFAULT 0,
	symbols INTEGER NOT NULL DEFAULT 0,
	started_at INTEGER NOT NULL,
	recorded_at INTEGER NOT NULL
);
`

const upsertRun = `
INSERT INTO stats_run (run_id, source, complete, failed_line, symbols, started_at, recorded_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (run_id) DO UPDATE SET
	source = excluded.source,
	complete = excluded.complete,
	failed_line = excluded.failed_line,
	symbols = excluded.symbols,
	recorded_at = excluded.recorded_at`

const upsert = `
INSERT INTO symbol_stats_record (
	run_id, symbol, source, complete, failed_line,
	max_time_gap, total_volume, weighted_average_price, max_traded_price,
	started_at, recorded_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (run_id, symbol) DO UPDATE SET
	source = excluded.source,
	complete = excluded.complete,
	failed_line = excluded.failed_line,
	max_time_gap = excluded.max_time_gap,
	total_volume = excluded.total_volume,
	weighted_average_price = excluded.weighted_average_price,
	max_traded_price = excluded.max_traded_price,
	recorded_at = excluded.recorded_at`

// Store writes run summaries to a SQLite file.
type Store struct {
	DB *sql.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and ensures the schema.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create symbol_stats_record: %w", err)
	}

	return &Store{DB: db}, nil
}

// SaveSummaries upserts the run marker and the summaries of run in one transaction.
func (s *Store) SaveSummaries(ctx context.Context, run storage.Run, summaries []stats.Summary) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().UnixMilli()
	marker := storage.ToRunRecord(run, len(summaries))
	if _, err := tx.ExecContext(ctx, upsertRun,
		marker.RunID, marker.Source, marker.Complete, marker.FailedLine, marker.Symbols,
		marker.StartedAt.UnixMilli(), now,
	); err != nil {
		return fmt.Errorf("upsert run %s: %w", marker.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx, upsert)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range storage.ToRecords(run, summaries) {
		if _, err := stmt.ExecContext(ctx,
			r.RunID, r.Symbol, r.Source, r.Complete, r.FailedLine,
			r.MaxTimeGap, r.TotalVolume, r.WeightedAveragePrice, r.MaxTradedPrice,
			r.StartedAt.UnixMilli(), now,
		); err != nil {
			return fmt.Errorf("upsert %s: %w", r.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Summaries returns the rows stored for runID ordered by symbol.
func (s *Store) Summaries(ctx context.Context, runID string) ([]stats.Summary, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT symbol, max_time_gap, total_volume, weighted_average_price, max_traded_price
		FROM symbol_stats_record
		WHERE run_id = ?
		ORDER BY symbol`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []stats.Summary
	for rows.Next() {
		var (
			sum stats.Summary
			gap int64
		)
		if err := rows.Scan(&sum.Symbol, &gap, &sum.TotalVolume, &sum.WeightedAveragePrice, &sum.MaxTradedPrice); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		sum.MaxTimeGap = uint64(gap)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// RunStatus reports whether runID completed and, if not, the failing line.
// It returns sql.ErrNoRows for a run that was never saved.
func (s *Store) RunStatus(ctx context.Context, runID string) (complete bool, failedLine int, err error) {
	err = s.DB.QueryRowContext(ctx,
		`SELECT complete, failed_line FROM stats_run WHERE run_id = ?`, runID,
	).Scan(&complete, &failedLine)
	if err != nil {
		return false, 0, fmt.Errorf("run %s status: %w", runID, err)
	}
	return complete, failedLine, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}
