// Package store persists ingested IBD logs in a DuckDB database so runs can
// be compared with SQL after the fact.
//
// Event tables are stored in narrow form: one row per (record, field) cell.
// Placeholder cells are kept with kind 'missing' and NULL values.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"go.uber.org/zap"

	"github.com/eklitzke/bitcoin-tools/pkg/ingest"
	"github.com/eklitzke/bitcoin-tools/pkg/record"
)

//go:embed schema.sql
var schema string

// Timeline names as stored in the timeline table.
const (
	TimelineTimer = "timer"
	TimelineFlush = "flush"
)

// Store manages the DuckDB connection.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
	log  *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// Open opens or creates a DuckDB database and applies the schema.
// If path is empty, an in-memory database is used.
func Open(path string, opts ...Option) (*Store, error) {
	dsn := ""
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
		dsn = path
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening duckdb %q: %w", path, err)
	}

	s := &Store{db: db, path: path, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes one result in a single transaction and returns its run id.
func (s *Store) Save(ctx context.Context, res *ingest.Result) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO runs (source, git_commit, config, lines) VALUES (?, ?, ?, ?) RETURNING id`,
		res.Source, res.Commit(), res.Config, res.Lines).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}

	if err := insertHost(ctx, tx, id, res.Host); err != nil {
		return 0, fmt.Errorf("inserting host info: %w", err)
	}
	if err := insertTimeline(ctx, tx, id, TimelineTimer, res.DataTimes); err != nil {
		return 0, fmt.Errorf("inserting timer timeline: %w", err)
	}
	if err := insertTimeline(ctx, tx, id, TimelineFlush, res.FlushTimes); err != nil {
		return 0, fmt.Errorf("inserting flush timeline: %w", err)
	}

	cells := 0
	tables := make([]*ingest.Table, 0, len(res.Tables)+1)
	if res.Flush != nil {
		tables = append(tables, res.Flush)
	}
	for _, kind := range res.EventKinds() {
		tables = append(tables, res.Tables[kind])
	}
	for _, t := range tables {
		n, err := insertTable(ctx, tx, id, t)
		if err != nil {
			return 0, fmt.Errorf("inserting %s events: %w", t.Event, err)
		}
		cells += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	committed = true

	s.log.Info("stored run",
		zap.Int64("run_id", id),
		zap.String("source", res.Source),
		zap.Int("tables", len(tables)),
		zap.Int("cells", cells))
	return id, nil
}

func insertHost(ctx context.Context, tx *sql.Tx, runID int64, host record.Record) error {
	if len(host) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO host_info (run_id, key, kind, int_value, text_value) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, key := range host.Keys() {
		c := toCell(host[key])
		if _, err := stmt.ExecContext(ctx, runID, key, c.kind, c.intValue, c.textValue); err != nil {
			return err
		}
	}
	return nil
}

func insertTimeline(ctx context.Context, tx *sql.Tx, runID int64, name string, times []time.Time) error {
	if len(times) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO timeline (run_id, timeline, seq, t_ns) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, t := range times {
		if _, err := stmt.ExecContext(ctx, runID, name, i, t.UnixNano()); err != nil {
			return err
		}
	}
	return nil
}

func insertTable(ctx context.Context, tx *sql.Tx, runID int64, t *ingest.Table) (int, error) {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO events (run_id, event, seq, t_ns, field, kind, int_value, float_value, text_value)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	n := 0
	for i, row := range t.Rows {
		for _, col := range t.Columns {
			c := toCell(row.Fields[col])
			if _, err := stmt.ExecContext(ctx, runID, t.Event, i, row.Time.UnixNano(), col,
				c.kind, c.intValue, c.floatValue, c.textValue); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

// cell is a Value split into nullable columns.
type cell struct {
	kind       string
	intValue   sql.NullInt64
	floatValue sql.NullFloat64
	textValue  sql.NullString
}

// toCell maps a Value to columns. Timestamps are stored as unix
// nanoseconds and durations as nanoseconds in int_value.
func toCell(v record.Value) cell {
	c := cell{kind: v.Kind().String()}
	switch v.Kind() {
	case record.KindTimestamp:
		t, _ := v.Time()
		c.intValue = sql.NullInt64{Int64: t.UnixNano(), Valid: true}
	case record.KindDuration:
		d, _ := v.Duration()
		c.intValue = sql.NullInt64{Int64: int64(d), Valid: true}
	case record.KindInt:
		n, _ := v.Int()
		c.intValue = sql.NullInt64{Int64: n, Valid: true}
	case record.KindFloat:
		f, _ := v.Float()
		c.floatValue = sql.NullFloat64{Float64: f, Valid: true}
	case record.KindText:
		s, _ := v.Text()
		c.textValue = sql.NullString{String: s, Valid: true}
	}
	return c
}
