// Package duckdb stages proposal and vote tables in an embedded DuckDB
// database and exports them as CSV.
package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tinytelemetry/govsnap/internal/duckdb/migrate"
)

// ErrUnknownRun is returned when a run id was never begun.
var ErrUnknownRun = errors.New("duckdb: unknown run")

// Store manages the DuckDB connection that backs one or more export runs.
type Store struct {
	db           *sql.DB
	mu           sync.RWMutex
	dbPath       string
	QueryTimeout time.Duration
}

// NewStore opens or creates a DuckDB database.
// If dbPath is empty, an in-memory database is used.
// An optional queryTimeout can be passed; it defaults to 5m because
// exports of large spaces run inside a single statement.
func NewStore(dbPath string, queryTimeout ...time.Duration) (*Store, error) {
	dsn := ""
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, err
		}
		dsn = dbPath
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, err
	}

	// In-memory stores migrate on every run; only file-backed ones log it.
	runner := migrate.NewRunner(db)
	if dbPath == "" {
		runner.Quiet()
	}
	if err := runner.Run(); err != nil {
		db.Close()
		return nil, err
	}

	qt := 5 * time.Minute
	if len(queryTimeout) > 0 && queryTimeout[0] > 0 {
		qt = queryTimeout[0]
	}

	return &Store{
		db:           db,
		dbPath:       dbPath,
		QueryTimeout: qt,
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// DBPath returns the configured DuckDB path. Empty means in-memory.
func (s *Store) DBPath() string {
	return s.dbPath
}

// queryCtx returns a context with the store's configured query timeout.
func (s *Store) queryCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.QueryTimeout)
}

// BeginRun records a new run and the spaces it covers.
func (s *Store) BeginRun(runID string, spaces []string) error {
	if strings.TrimSpace(runID) == "" {
		return errors.New("duckdb: empty run id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO export_runs (run_id, spaces, status, started_at) VALUES (?, ?, 'running', ?)",
		runID, strings.Join(spaces, ","), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert run %s: %w", runID, err)
	}
	return nil
}

// FinishRun stamps the final status of a run.
func (s *Store) FinishRun(runID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		"UPDATE export_runs SET status = ?, finished_at = ? WHERE run_id = ?",
		status, time.Now().UTC(), runID)
	if err != nil {
		return fmt.Errorf("update run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownRun, runID)
	}
	return nil
}

// RunStatus returns the recorded status of a run.
func (s *Store) RunStatus(runID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	var status string
	err := s.db.QueryRowContext(ctx, "SELECT status FROM export_runs WHERE run_id = ?", runID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrUnknownRun, runID)
	}
	return status, err
}
