// Package store keeps a history of completed benchmark runs in a SQLite
// database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/multierr"

	"github.com/exascience/countbench/bench"
)

// ErrRunNotFound is returned by Samples for an unknown run.
var ErrRunNotFound = errors.New("store: run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	strategy   TEXT    NOT NULL,
	iterations INTEGER NOT NULL,
	seed       INTEGER NOT NULL,
	bound      INTEGER NOT NULL,
	started    INTEGER NOT NULL,
	finished   INTEGER NOT NULL,
	host       TEXT    NOT NULL
);
CREATE TABLE IF NOT EXISTS samples (
	run_id    INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	size      INTEGER NOT NULL,
	mean_us   INTEGER NOT NULL,
	stddev_us REAL    NOT NULL,
	min_us    REAL    NOT NULL,
	max_us    REAL    NOT NULL,
	PRIMARY KEY (run_id, size)
);
`

// A Run describes one completed sweep of one strategy.
type Run struct {
	ID         int64
	Strategy   string
	Iterations int
	Seed       uint64
	Bound      uint64
	Started    time.Time
	Finished   time.Time
	Host       string
}

// Store is a run history.
type Store struct {
	db *sql.DB
}

// dsn returns a file URI for path. Characters of path that have a
// meaning in a URI, such as '?' and '#', are escaped.
func dsn(path string) string {
	params := url.Values{}
	params.Set("_foreign_keys", "on")
	params.Set("_busy_timeout", "5000")
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path), OmitHost: true, RawQuery: params.Encode()}
	return u.String()
}

// Open opens or creates the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, multierr.Append(fmt.Errorf("store: creating schema: %w", err), db.Close())
	}
	return &Store{db: db}, nil
}

// SaveRun records run together with its samples and returns the ID of
// the run.
func (s *Store) SaveRun(ctx context.Context, run Run, samples []bench.Sample) (id int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: %w", err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, tx.Rollback())
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (strategy, iterations, seed, bound, started, finished, host) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.Strategy, run.Iterations, int64(run.Seed), int64(run.Bound),
		run.Started.UnixNano(), run.Finished.UnixNano(), run.Host)
	if err != nil {
		return 0, fmt.Errorf("store: inserting run: %w", err)
	}
	if id, err = res.LastInsertId(); err != nil {
		return 0, fmt.Errorf("store: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO samples (run_id, size, mean_us, stddev_us, min_us, max_us) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("store: %w", err)
	}
	defer stmt.Close()
	for _, sample := range samples {
		if _, err = stmt.ExecContext(ctx, id, sample.Size, sample.Mean, sample.StdDev, sample.Min, sample.Max); err != nil {
			return 0, fmt.Errorf("store: inserting sample of size %d: %w", sample.Size, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: %w", err)
	}
	return id, nil
}

// ListRuns returns all runs, most recent first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, strategy, iterations, seed, bound, started, finished, host FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			seed, bound       int64
			started, finished int64
		)
		if err := rows.Scan(&r.ID, &r.Strategy, &r.Iterations, &seed, &bound, &started, &finished, &r.Host); err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		r.Seed, r.Bound = uint64(seed), uint64(bound)
		r.Started, r.Finished = time.Unix(0, started), time.Unix(0, finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Samples returns the samples of the run with the given ID, ordered by
// size.
func (s *Store) Samples(ctx context.Context, id int64) ([]bench.Sample, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM runs WHERE id = ?)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT size, mean_us, stddev_us, min_us, max_us FROM samples WHERE run_id = ? ORDER BY size`, id)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	defer rows.Close()
	var samples []bench.Sample
	for rows.Next() {
		var sample bench.Sample
		if err := rows.Scan(&sample.Size, &sample.Mean, &sample.StdDev, &sample.Min, &sample.Max); err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
