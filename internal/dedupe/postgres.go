package dedupe

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig controls the Postgres connection pool backing the ledger.
type PostgresConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore keeps the dedupe ledger in Postgres, for deployments that
// want it off the bot host.
type PostgresStore struct {
	pool  pgPool
	table string
}

// OpenPostgres connects a pool and ensures the ledger table exists.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "replies"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	store := &PostgresStore{pool: pool, table: table}
	if err := store.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initialize dedupe schema: %w", err)
	}
	return store, nil
}

// NewPostgresWithPool constructs a store from an existing pool (primarily for testing).
func NewPostgresWithPool(pool pgPool, table string) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "replies"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresStore{pool: pool, table: table}, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	comment_id TEXT PRIMARY KEY,
	reply_id   TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, s.table)
	_, err := s.pool.Exec(ctx, query)
	return err
}

// Exists reports whether commentID already has a reply recorded.
func (s *PostgresStore) Exists(ctx context.Context, commentID string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE comment_id = $1)`, s.table)
	var exists bool
	if err := s.pool.QueryRow(ctx, query, commentID).Scan(&exists); err != nil {
		return false, fmt.Errorf("dedupe exists %s: %w", commentID, err)
	}
	return exists, nil
}

// Record stores the comment-to-reply pairing. Conflicts are ignored; entries
// are immutable once written.
func (s *PostgresStore) Record(ctx context.Context, commentID, replyID string) error {
	if commentID == "" {
		return fmt.Errorf("comment id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (comment_id, reply_id) VALUES ($1, $2)
ON CONFLICT (comment_id) DO NOTHING`, s.table)
	if _, err := s.pool.Exec(ctx, query, commentID, replyID); err != nil {
		return fmt.Errorf("dedupe record %s: %w", commentID, err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *PostgresStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}
