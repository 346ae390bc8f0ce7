// Package history persists computed indicator points per instrument in SQLite.
// It answers "what was the last computed date" for the incremental updater and
// keeps the previous point needed for snapshot deltas.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"sector-flow/internal/model"
)

// Store is a SQLite-backed indicator history. Safe for concurrent use; writes are
// serialized on a single connection.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" in tests.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	slog.Debug("history opened", "path", path)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS indicator_points (
			symbol        TEXT    NOT NULL,
			day           INTEGER NOT NULL,
			cmf21         REAL    NOT NULL,
			rs_momentum20 REAL    NOT NULL,
			PRIMARY KEY (symbol, day)
		);
	`)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LastDate returns the most recent stored point date for symbol. ok is false when none exist.
func (s *Store) LastDate(ctx context.Context, symbol string) (last time.Time, ok bool, err error) {
	var day sql.NullInt64
	err = s.db.QueryRowContext(ctx, `SELECT MAX(day) FROM indicator_points WHERE symbol = ?`, symbol).Scan(&day)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("sqlite last date %s: %w", symbol, err)
	}
	if !day.Valid {
		return time.Time{}, false, nil
	}
	return time.Unix(day.Int64, 0).UTC(), true, nil
}

// Append stores points in one transaction. Existing (symbol, day) rows are replaced.
func (s *Store) Append(ctx context.Context, symbol string, points []model.IndicatorPoint) error {
	if len(points) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO indicator_points (symbol, day, cmf21, rs_momentum20)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, symbol, model.Day(p.Date).Unix(), p.CMF21, p.RSMomentum20); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert %s %s: %w", symbol, p.Date.Format(model.DateLayout), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit: %w", err)
	}
	return nil
}

// Latest returns up to n most recent points for symbol, ascending by date.
func (s *Store) Latest(ctx context.Context, symbol string, n int) ([]model.IndicatorPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT day, cmf21, rs_momentum20
		FROM indicator_points
		WHERE symbol = ?
		ORDER BY day DESC
		LIMIT ?
	`, symbol, n)
	if err != nil {
		return nil, fmt.Errorf("sqlite query %s: %w", symbol, err)
	}
	points, err := scanPoints(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}

// After returns all points for symbol dated strictly after t, ascending.
func (s *Store) After(ctx context.Context, symbol string, t time.Time) ([]model.IndicatorPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT day, cmf21, rs_momentum20
		FROM indicator_points
		WHERE symbol = ? AND day > ?
		ORDER BY day ASC
	`, symbol, t.Unix())
	if err != nil {
		return nil, fmt.Errorf("sqlite query %s: %w", symbol, err)
	}
	return scanPoints(rows)
}

// Truncate removes points for symbol dated after t. Used when a history rebuild is forced.
func (s *Store) Truncate(ctx context.Context, symbol string, t time.Time) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM indicator_points WHERE symbol = ? AND day > ?`, symbol, t.Unix())
	if err != nil {
		return fmt.Errorf("sqlite truncate %s: %w", symbol, err)
	}
	return nil
}

func scanPoints(rows *sql.Rows) ([]model.IndicatorPoint, error) {
	defer rows.Close()
	var points []model.IndicatorPoint
	for rows.Next() {
		var p model.IndicatorPoint
		var day int64
		if err := rows.Scan(&day, &p.CMF21, &p.RSMomentum20); err != nil {
			return nil, fmt.Errorf("sqlite scan: %w", err)
		}
		p.Date = time.Unix(day, 0).UTC()
		points = append(points, p)
	}
	return points, rows.Err()
}
