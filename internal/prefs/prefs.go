// Package prefs persists viewer preferences in a local SQLite database.
// Sidebar layout survives restarts; region load state and the active
// region deliberately do not, since they are re-derived from the URL
// fragment on the next session.
package prefs

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"
)

// Fixed preference keys.
const (
	KeySidebarWidth     = "sidebar.width"
	KeySidebarCollapsed = "sidebar.collapsed"
)

// Store wraps the preference database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the preference database at the given path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening preferences db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging preferences db: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// OpenMemory creates an in-memory store (useful for testing).
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory db: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS viewer_prefs (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// Get returns the raw value for a key; ok is false when unset.
func (s *Store) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, `SELECT value FROM viewer_prefs WHERE key = ?`, key)
	switch err := row.Scan(&value); err {
	case nil:
		return value, true, nil
	case sql.ErrNoRows:
		return "", false, nil
	default:
		return "", false, fmt.Errorf("reading pref %s: %w", key, err)
	}
}

// Set stores a value under a key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO viewer_prefs (key, value, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("writing pref %s: %w", key, err)
	}
	return nil
}

// SidebarWidth returns the persisted sidebar width in pixels.
func (s *Store) SidebarWidth(ctx context.Context) (width int, ok bool, err error) {
	raw, ok, err := s.Get(ctx, KeySidebarWidth)
	if err != nil || !ok {
		return 0, ok, err
	}
	width, convErr := strconv.Atoi(raw)
	if convErr != nil {
		return 0, false, fmt.Errorf("corrupt sidebar width %q: %w", raw, convErr)
	}
	return width, true, nil
}

// SetSidebarWidth persists the sidebar width in pixels.
func (s *Store) SetSidebarWidth(ctx context.Context, width int) error {
	return s.Set(ctx, KeySidebarWidth, strconv.Itoa(width))
}

// SidebarCollapsed returns the persisted collapsed flag.
func (s *Store) SidebarCollapsed(ctx context.Context) (collapsed bool, ok bool, err error) {
	raw, ok, err := s.Get(ctx, KeySidebarCollapsed)
	if err != nil || !ok {
		return false, ok, err
	}
	return raw == "true", true, nil
}

// SetSidebarCollapsed persists the collapsed flag.
func (s *Store) SetSidebarCollapsed(ctx context.Context, collapsed bool) error {
	return s.Set(ctx, KeySidebarCollapsed, strconv.FormatBool(collapsed))
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
