package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/teemow/contactstats/internal/stats"
)

// ErrNotFound is returned by Get for a message that is not cached.
var ErrNotFound = errors.New("message not cached")

// Store is a SQLite-backed metadata cache.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

type messageRow struct {
	Source    string    `db:"source"`
	ID        string    `db:"id"`
	Headers   string    `db:"headers"`
	FetchedAt time.Time `db:"fetched_at"`
}

// DefaultPath returns the cache database location under the user cache directory.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locating user cache dir: %w", err)
	}
	return filepath.Join(dir, "contactstats", "metadata.db"), nil
}

// Open opens (or creates) the cache database at path and applies pending
// migrations. Use ":memory:" for a throwaway cache.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'")
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		if err := s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Get returns the cached metadata for a message from source.
func (s *Store) Get(ctx context.Context, source, id string) (stats.MessageMetadata, error) {
	var row messageRow
	err := s.db.GetContext(ctx, &row,
		"SELECT id, headers FROM messages WHERE source = ? AND id = ?", source, id)
	if errors.Is(err, sql.ErrNoRows) {
		return stats.MessageMetadata{}, ErrNotFound
	}
	if err != nil {
		return stats.MessageMetadata{}, fmt.Errorf("reading message %s: %w", id, err)
	}

	msg := stats.MessageMetadata{ID: row.ID}
	if err := json.Unmarshal([]byte(row.Headers), &msg.Headers); err != nil {
		return stats.MessageMetadata{}, fmt.Errorf("decoding headers of message %s: %w", id, err)
	}
	return msg, nil
}

// Put stores the metadata for a message from source, replacing any previous entry.
func (s *Store) Put(ctx context.Context, source string, msg stats.MessageMetadata) error {
	headers, err := json.Marshal(msg.Headers)
	if err != nil {
		return fmt.Errorf("encoding headers of message %s: %w", msg.ID, err)
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO messages (source, id, headers, fetched_at)
		VALUES (:source, :id, :headers, :fetched_at)`,
		messageRow{Source: source, ID: msg.ID, Headers: string(headers), FetchedAt: s.now().UTC()})
	if err != nil {
		return fmt.Errorf("storing message %s: %w", msg.ID, err)
	}
	return nil
}

// Count returns the number of cached messages for source.
func (s *Store) Count(ctx context.Context, source string) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM messages WHERE source = ?", source); err != nil {
		return 0, fmt.Errorf("counting messages: %w", err)
	}
	return n, nil
}

// Purge removes every cached message for source and returns how many were removed.
func (s *Store) Purge(ctx context.Context, source string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE source = ?", source)
	if err != nil {
		return 0, fmt.Errorf("purging messages: %w", err)
	}
	return res.RowsAffected()
}
