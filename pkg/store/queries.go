package store

import (
	"context"
	"fmt"
	"time"
)

// Run is a stored log.
type Run struct {
	ID       int64
	Source   string
	Commit   string
	Lines    int
	StoredAt time.Time
}

// Runs lists stored runs, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, git_commit, lines, stored_at FROM runs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Source, &r.Commit, &r.Lines, &r.StoredAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// CellCount is the number of stored cells for one event of one run.
type CellCount struct {
	Total   int64
	Missing int64
}

// CountCells counts the stored cells of event in run runID.
func (s *Store) CountCells(ctx context.Context, runID int64, event string) (CellCount, error) {
	var c CellCount
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*), count(*) FILTER (WHERE kind = 'missing')
		 FROM events WHERE run_id = ? AND event = ?`,
		runID, event).Scan(&c.Total, &c.Missing)
	if err != nil {
		return CellCount{}, fmt.Errorf("counting cells: %w", err)
	}
	return c, nil
}

// Timeline returns the stored points of one timeline in order.
func (s *Store) Timeline(ctx context.Context, runID int64, name string) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t_ns FROM timeline WHERE run_id = ? AND timeline = ? ORDER BY seq`, runID, name)
	if err != nil {
		return nil, fmt.Errorf("querying timeline: %w", err)
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var ns int64
		if err := rows.Scan(&ns); err != nil {
			return nil, fmt.Errorf("scanning timeline: %w", err)
		}
		times = append(times, time.Unix(0, ns).UTC())
	}
	return times, rows.Err()
}

// IntSeries returns the integer values of one event field in row order.
// Missing cells are returned as nil.
func (s *Store) IntSeries(ctx context.Context, runID int64, event, field string) ([]*int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT int_value FROM events WHERE run_id = ? AND event = ? AND field = ? ORDER BY seq`,
		runID, event, field)
	if err != nil {
		return nil, fmt.Errorf("querying %s.%s: %w", event, field, err)
	}
	defer rows.Close()

	var out []*int64
	for rows.Next() {
		var v *int64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning %s.%s: %w", event, field, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
