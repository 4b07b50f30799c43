package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// Timestamps are stored as fixed-width UTC text so they compare lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Database is a SQLite-backed key-value store for resolved lyrics.
// It satisfies cache.Store.
type Database struct {
	db  *sql.DB
	now func() time.Time
}

// New opens (or creates) the database at dbPath and runs migrations.
func New(dbPath string) (*Database, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	d := &Database{db: db, now: time.Now}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Infof("Database initialized at %s", dbPath)
	return d, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS lyrics_cache (
			cache_key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			cached_at TEXT NOT NULL,
			expires_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_lyrics_cache_expires_at ON lyrics_cache(expires_at)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}

	return nil
}

// Get returns the cached value for key. Expired rows are reported as missing.
func (d *Database) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	var expiresAt string
	err := d.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM lyrics_cache WHERE cache_key = ?`,
		key,
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query lyrics cache: %w", err)
	}

	expires, err := time.Parse(timeLayout, expiresAt)
	if err != nil {
		log.Warnf("failed to parse expires_at '%s' for %s: %v", expiresAt, key, err)
		return nil, false, nil
	}
	if !d.now().UTC().Before(expires) {
		return nil, false, nil
	}

	return []byte(value), true, nil
}

// Put stores value under key, replacing any previous entry.
func (d *Database) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := d.now().UTC()
	_, err := d.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO lyrics_cache (cache_key, value, cached_at, expires_at) VALUES (?, ?, ?, ?)`,
		key, string(value), now.Format(timeLayout), now.Add(ttl).Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to write lyrics cache: %w", err)
	}
	return nil
}

// Purge deletes expired rows and returns how many were removed.
func (d *Database) Purge(ctx context.Context) (int64, error) {
	res, err := d.db.ExecContext(ctx,
		`DELETE FROM lyrics_cache WHERE expires_at <= ?`,
		d.now().UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge lyrics cache: %w", err)
	}
	return res.RowsAffected()
}
