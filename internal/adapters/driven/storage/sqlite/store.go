package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/stevedore/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/stevedore/internal/core/domain"
	"github.com/custodia-labs/stevedore/internal/core/ports/driven"
)

// Store is the SQLite database holding the run history.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.stevedore/data/runs.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".stevedore", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "runs.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// RunStore returns a RunStore interface backed by this store.
func (s *Store) RunStore() driven.RunStore {
	return &runStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Run Store ====================

// runStore implements driven.RunStore.
type runStore struct {
	store *Store
}

var _ driven.RunStore = (*runStore)(nil)

// Save stores a run report and its error log in one transaction.
// Saving the same run again replaces it.
func (s *runStore) Save(ctx context.Context, report domain.RunReport) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, target, index_name, started_at, finished_at,
			progress, records_built, records_committed, error_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			target = excluded.target,
			index_name = excluded.index_name,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			progress = excluded.progress,
			records_built = excluded.records_built,
			records_committed = excluded.records_committed,
			error_count = excluded.error_count
	`, report.ID, report.Target, report.Index,
		report.StartedAt.UTC(), report.FinishedAt.UTC(),
		report.Progress, report.RecordsBuilt, report.RecordsCommitted, errorCount(report))
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM run_errors WHERE run_id = ?", report.ID); err != nil {
		return fmt.Errorf("clearing run errors: %w", err)
	}

	if len(report.Errors) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			"INSERT INTO run_errors (run_id, position, ref, reason) VALUES (?, ?, ?, ?)")
		if err != nil {
			return fmt.Errorf("preparing error insert: %w", err)
		}
		defer stmt.Close()

		for i, e := range report.Errors {
			if _, err := stmt.ExecContext(ctx, report.ID, i, e.Ref, e.Reason); err != nil {
				return fmt.Errorf("saving run error: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}
	return nil
}

// Get retrieves a run report with its error log.
func (s *runStore) Get(ctx context.Context, id string) (*domain.RunReport, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, target, index_name, started_at, finished_at,
			progress, records_built, records_committed, error_count
		FROM runs WHERE id = ?
	`, id)

	report, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}

	rows, err := s.store.db.QueryContext(ctx,
		"SELECT ref, reason FROM run_errors WHERE run_id = ? ORDER BY position", id)
	if err != nil {
		return nil, fmt.Errorf("querying run errors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e domain.RunError
		if err := rows.Scan(&e.Ref, &e.Reason); err != nil {
			return nil, fmt.Errorf("scanning run error: %w", err)
		}
		report.Errors = append(report.Errors, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating run errors: %w", err)
	}

	return report, nil
}

// List returns the most recent runs, newest first, without their error logs.
func (s *runStore) List(ctx context.Context, limit int) ([]domain.RunReport, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, target, index_name, started_at, finished_at,
			progress, records_built, records_committed, error_count
		FROM runs ORDER BY started_at DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var reports []domain.RunReport //nolint:prealloc // size unknown from query
	for rows.Next() {
		var r domain.RunReport
		var startedAt, finishedAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.Target, &r.Index, &startedAt, &finishedAt,
			&r.Progress, &r.RecordsBuilt, &r.RecordsCommitted, &r.ErrorCount); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt = nullTime(startedAt)
		r.FinishedAt = nullTime(finishedAt)
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	return reports, nil
}

// errorCount prefers the loaded log over the stored count.
func errorCount(r domain.RunReport) int {
	if len(r.Errors) > 0 {
		return len(r.Errors)
	}
	return r.ErrorCount
}

func scanRun(row *sql.Row) (*domain.RunReport, error) {
	var r domain.RunReport
	var startedAt, finishedAt sql.NullTime
	if err := row.Scan(&r.ID, &r.Target, &r.Index, &startedAt, &finishedAt,
		&r.Progress, &r.RecordsBuilt, &r.RecordsCommitted, &r.ErrorCount); err != nil {
		return nil, err
	}
	r.StartedAt = nullTime(startedAt)
	r.FinishedAt = nullTime(finishedAt)
	return &r, nil
}

func nullTime(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time
}
