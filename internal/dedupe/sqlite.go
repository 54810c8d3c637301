// Package dedupe persists the ledger of comment ids already replied to. The
// ledger is the single source of truth for "already handled": entries are
// created after a confirmed successful post and never updated or deleted.
package dedupe

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is the default provider: a durable local key-value file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the dedupe database at path.
// Synchronous mode is FULL so that a Record surviving to return is on disk
// even if the process dies immediately after posting.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("dedupe store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create dedupe store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=FULL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open dedupe store: %w", err)
	}

	store := &SQLiteStore{db: db, path: path}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize dedupe schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS replies (
		comment_id TEXT PRIMARY KEY,
		reply_id   TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`
	_, err := s.db.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Exists reports whether commentID already has a reply recorded.
func (s *SQLiteStore) Exists(ctx context.Context, commentID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM replies WHERE comment_id = ?`, commentID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dedupe exists %s: %w", commentID, err)
	}
	return true, nil
}

// Record durably stores the comment-to-reply pairing. Re-recording the same
// comment id is a no-op; entries are immutable once written.
func (s *SQLiteStore) Record(ctx context.Context, commentID, replyID string) error {
	if commentID == "" {
		return fmt.Errorf("comment id is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO replies (comment_id, reply_id) VALUES (?, ?)
		 ON CONFLICT(comment_id) DO NOTHING`, commentID, replyID)
	if err != nil {
		return fmt.Errorf("dedupe record %s: %w", commentID, err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
