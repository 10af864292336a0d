package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/tareqlive/newsworker/internal/logger"
)

// PostgresLedger keeps published items in PostgreSQL. It also serves as a
// shared rewrite cache through the rewrite_cache table.
type PostgresLedger struct {
	db       *sql.DB
	ttl      time.Duration
	cacheTTL time.Duration
}

// NewPostgresLedger connects, pings and creates the schema if needed.
func NewPostgresLedger(ctx context.Context, connectionString string, ttl time.Duration) (*PostgresLedger, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pl := &PostgresLedger{db: db, ttl: ttl, cacheTTL: 24 * time.Hour}
	if err := pl.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("PostgreSQL ledger connected")
	return pl, nil
}

// SetCacheTTL changes how long cached rewrites are served.
func (pl *PostgresLedger) SetCacheTTL(ttl time.Duration) {
	pl.cacheTTL = ttl
}

func (pl *PostgresLedger) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS published_articles (
		id SERIAL PRIMARY KEY,
		key VARCHAR(64) UNIQUE NOT NULL,
		title TEXT NOT NULL,
		link TEXT NOT NULL,
		slug TEXT,
		category VARCHAR(50),
		source VARCHAR(100),
		published_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_published_articles_link ON published_articles(link);
	CREATE INDEX IF NOT EXISTS idx_published_articles_published_at ON published_articles(published_at);

	CREATE TABLE IF NOT EXISTS rewrite_cache (
		key VARCHAR(64) PRIMARY KEY,
		payload BYTEA NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_used_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		use_count INTEGER DEFAULT 1
	);
	`

	if _, err := pl.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (pl *PostgresLedger) cutoff() time.Time {
	if pl.ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(-pl.ttl)
}

func (pl *PostgresLedger) IsPublished(ctx context.Context, key string) bool {
	var count int
	query := `SELECT COUNT(*) FROM published_articles WHERE key = $1 AND published_at > $2`
	if err := pl.db.QueryRowContext(ctx, query, key, pl.cutoff()).Scan(&count); err != nil {
		logger.Warn("Ledger lookup failed", "error", err)
		return false
	}
	return count > 0
}

func (pl *PostgresLedger) IsLinkPublished(ctx context.Context, link string) bool {
	var count int
	query := `SELECT COUNT(*) FROM published_articles WHERE link = $1 AND published_at > $2`
	if err := pl.db.QueryRowContext(ctx, query, link, pl.cutoff()).Scan(&count); err != nil {
		logger.Warn("Ledger link lookup failed", "error", err)
		return false
	}
	return count > 0
}

func (pl *PostgresLedger) MarkPublished(ctx context.Context, e Entry) error {
	query := `
		INSERT INTO published_articles (key, title, link, slug, category, source, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (key) DO UPDATE SET published_at = NOW(), slug = EXCLUDED.slug
	`
	if _, err := pl.db.ExecContext(ctx, query, e.Key, e.Title, e.Link, e.Slug, e.Category, e.Source); err != nil {
		return fmt.Errorf("failed to mark as published: %w", err)
	}
	return nil
}

// Save is a no-op; every mark is committed immediately.
func (pl *PostgresLedger) Save() error { return nil }

// Cleanup removes entries older than the ledger TTL.
func (pl *PostgresLedger) Cleanup(ctx context.Context) error {
	if pl.ttl <= 0 {
		return nil
	}
	result, err := pl.db.ExecContext(ctx, `DELETE FROM published_articles WHERE published_at < $1`, pl.cutoff())
	if err != nil {
		return fmt.Errorf("failed to cleanup: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows > 0 {
		logger.Info("Cleaned up old ledger records", "rows", rows)
	}
	return nil
}

// Get returns a cached rewrite payload.
func (pl *PostgresLedger) Get(ctx context.Context, key string) ([]byte, bool) {
	var payload []byte
	query := `
		UPDATE rewrite_cache SET last_used_at = NOW(), use_count = use_count + 1
		WHERE key = $1 AND created_at > $2
		RETURNING payload
	`
	err := pl.db.QueryRowContext(ctx, query, key, time.Now().Add(-pl.cacheTTL)).Scan(&payload)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Warn("Rewrite cache lookup failed", "error", err)
		}
		return nil, false
	}
	return payload, true
}

// Set stores a rewrite payload.
func (pl *PostgresLedger) Set(ctx context.Context, key string, value []byte) {
	query := `
		INSERT INTO rewrite_cache (key, payload, created_at, last_used_at, use_count)
		VALUES ($1, $2, NOW(), NOW(), 1)
		ON CONFLICT (key) DO UPDATE SET
			payload = EXCLUDED.payload,
			created_at = NOW(),
			last_used_at = NOW()
	`
	if _, err := pl.db.ExecContext(ctx, query, key, value); err != nil {
		logger.Warn("Rewrite cache store failed", "error", err)
	}
}

// Close closes the database connection
func (pl *PostgresLedger) Close() error {
	if pl.db != nil {
		return pl.db.Close()
	}
	return nil
}

var _ Ledger = (*PostgresLedger)(nil)
