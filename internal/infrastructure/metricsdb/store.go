// Package metricsdb stores KPI reading history in a local SQLite file.
package metricsdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/execdesk/execdesk/internal/domain/metric"
)

const schema = `
CREATE TABLE IF NOT EXISTS readings (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	ts     TEXT NOT NULL,
	metric TEXT NOT NULL,
	value  REAL NOT NULL,
	unit   TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_readings_metric_ts ON readings (metric, ts);
`

// Store implements metric.HistoryRepository on SQLite.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens (or creates) the metric history database for one org.
func Open(dir, org string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	path := filepath.Join(dir, org+"_metrics.db")
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open metrics db %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init metrics schema: %w", err)
	}
	return &Store{
		db:     db,
		logger: logger.With().Str("store", "metrics").Str("org", org).Logger(),
	}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Append records one reading and prunes rows older than the retention window.
func (s *Store) Append(ctx context.Context, r metric.Reading) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin metrics tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO readings (ts, metric, value, unit, source) VALUES (?, ?, ?, ?, ?)`,
		r.Timestamp.UTC().Format(time.RFC3339Nano), r.Name, r.Value, r.Unit, r.Source)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}

	cutoff := r.Timestamp.UTC().AddDate(0, 0, -metric.RetentionDays).Format(time.RFC3339Nano)
	res, err := tx.ExecContext(ctx, `DELETE FROM readings WHERE ts < ?`, cutoff)
	if err != nil {
		return fmt.Errorf("prune readings: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.logger.Debug().Int64("pruned", n).Str("metric", r.Name).Msg("dropped readings past retention")
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit metrics tx: %w", err)
	}
	return nil
}

// ListSince returns readings for one metric at or after since, oldest first.
func (s *Store) ListSince(ctx context.Context, name string, since time.Time) ([]metric.Reading, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, metric, value, unit, source FROM readings WHERE metric = ? AND ts >= ? ORDER BY ts ASC`,
		name, since.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	var out []metric.Reading
	for rows.Next() {
		var r metric.Reading
		var ts string
		if err := rows.Scan(&ts, &r.Name, &r.Value, &r.Unit, &r.Source); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		at, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse reading timestamp %q: %w", ts, err)
		}
		r.Timestamp = at
		out = append(out, r)
	}
	return out, rows.Err()
}

// Names returns the distinct metric names with recorded history.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT metric FROM readings ORDER BY metric ASC`)
	if err != nil {
		return nil, fmt.Errorf("query metric names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan metric name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}
