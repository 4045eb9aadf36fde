/*
Package sqlite provides a SQLite-backed implementation of release.CalendarStore.

PURPOSE:
  Persists named release calendar definitions (width, alignment, window
  size). Period arithmetic stays stateless; only the presets live here.

KEY TABLES:
  calendars: One row per calendar, versioned on every update

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's own locking.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so that readers do not
  block the single writer.

USAGE:
  store, err := sqlite.New("./data/qrelease.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - release/store.go: Interface definition
  - release/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/qrelease/release"
)

// Store implements release.CalendarStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Compile-time check
var _ release.CalendarStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every pooled connection to ":memory:" would otherwise get its own
	// empty database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS calendars (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		width INTEGER NOT NULL CHECK (width >= 1),
		alignment TEXT NOT NULL,
		previous INTEGER NOT NULL DEFAULT 1 CHECK (previous >= 0),
		next INTEGER NOT NULL DEFAULT 1 CHECK (next >= 0),
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_calendars_name
		ON calendars(name);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CALENDAR STORE
// =============================================================================

// SaveCalendar inserts a calendar or updates it in place, bumping its version.
func (s *Store) SaveCalendar(ctx context.Context, cal release.Calendar) error {
	if err := cal.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO calendars (id, name, width, alignment, previous, next, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			width = excluded.width,
			alignment = excluded.alignment,
			previous = excluded.previous,
			next = excluded.next,
			version = calendars.version + 1,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, query,
		cal.ID, cal.Name, cal.Width, string(cal.Alignment), cal.Previous, cal.Next, now, now,
	)
	if err != nil {
		return fmt.Errorf("save calendar %q: %w", cal.ID, err)
	}
	return nil
}

// GetCalendar retrieves a calendar by ID.
func (s *Store) GetCalendar(ctx context.Context, id string) (release.Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, width, alignment, previous, next, version, created_at, updated_at FROM calendars WHERE id = ?",
		id,
	)
	cal, err := scanCalendar(row)
	if errors.Is(err, sql.ErrNoRows) {
		return release.Calendar{}, fmt.Errorf("%w: %s", release.ErrCalendarNotFound, id)
	}
	if err != nil {
		return release.Calendar{}, fmt.Errorf("get calendar %q: %w", id, err)
	}
	return cal, nil
}

// ListCalendars returns all calendars ordered by name.
func (s *Store) ListCalendars(ctx context.Context) ([]release.Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, width, alignment, previous, next, version, created_at, updated_at FROM calendars ORDER BY name, id",
	)
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}
	defer rows.Close()

	calendars := []release.Calendar{}
	for rows.Next() {
		cal, err := scanCalendar(rows)
		if err != nil {
			return nil, fmt.Errorf("list calendars: %w", err)
		}
		calendars = append(calendars, cal)
	}
	return calendars, rows.Err()
}

// DeleteCalendar removes a calendar.
func (s *Store) DeleteCalendar(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM calendars WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete calendar %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete calendar %q: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", release.ErrCalendarNotFound, id)
	}
	return nil
}

// Reset clears all data.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM calendars")
	return err
}

// Helper functions

type scanner interface {
	Scan(dest ...any) error
}

func scanCalendar(row scanner) (release.Calendar, error) {
	var cal release.Calendar
	var alignment, createdAt, updatedAt string
	if err := row.Scan(&cal.ID, &cal.Name, &cal.Width, &alignment, &cal.Previous, &cal.Next,
		&cal.Version, &createdAt, &updatedAt); err != nil {
		return release.Calendar{}, err
	}
	cal.Alignment = release.Alignment(alignment)
	var err error
	if cal.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return release.Calendar{}, fmt.Errorf("calendar %s: parse created_at: %w", cal.ID, err)
	}
	if cal.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return release.Calendar{}, fmt.Errorf("calendar %s: parse updated_at: %w", cal.ID, err)
	}
	return cal, nil
}
