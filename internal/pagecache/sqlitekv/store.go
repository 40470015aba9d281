// Package sqlitekv provides the durable SQLite backend for the page cache.
//
// Cache entries survive process restarts, mirroring the browser-origin
// persistence of the storefront this service fronts.
package sqlitekv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pulseritas/storefront/internal/pagecache"
	"github.com/pulseritas/storefront/internal/pagecache/sqlitekv/migrations"
	sqlitemigrate "github.com/pulseritas/storefront/internal/platform/storage/sqlitemigrate"
	_ "modernc.org/sqlite"
)

// Store persists page cache records in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite page cache backend and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Get returns one cache record by key.
func (s *Store) Get(ctx context.Context, key string) (pagecache.Record, error) {
	if err := ctx.Err(); err != nil {
		return pagecache.Record{}, err
	}
	if s == nil || s.sqlDB == nil {
		return pagecache.Record{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		"SELECT payload, written_at FROM page_cache WHERE key = ?",
		key,
	)
	var record pagecache.Record
	var writtenAt int64
	if err := row.Scan(&record.Payload, &writtenAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return pagecache.Record{}, pagecache.ErrNoRecord
		}
		return pagecache.Record{}, fmt.Errorf("get cache record: %w", err)
	}
	record.WrittenAt = time.UnixMilli(writtenAt).UTC()
	return record, nil
}

// Put upserts one cache record.
func (s *Store) Put(ctx context.Context, key string, record pagecache.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO page_cache (key, payload, written_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, written_at = excluded.written_at`,
		key,
		record.Payload,
		record.WrittenAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put cache record: %w", err)
	}
	return nil
}

// Delete removes one cache record by key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	if _, err := s.sqlDB.ExecContext(ctx, "DELETE FROM page_cache WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete cache record: %w", err)
	}
	return nil
}

// DeletePrefix removes every record whose key starts with prefix.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	// substr comparison avoids LIKE escaping for arbitrary scope strings.
	_, err := s.sqlDB.ExecContext(
		ctx,
		"DELETE FROM page_cache WHERE substr(key, 1, ?) = ?",
		len(prefix),
		prefix,
	)
	if err != nil {
		return fmt.Errorf("delete cache prefix: %w", err)
	}
	return nil
}

// DeleteExpired removes every record written strictly before the cutoff,
// matching the age check Get applies.
func (s *Store) DeleteExpired(ctx context.Context, cutoff time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		"DELETE FROM page_cache WHERE written_at < ?",
		cutoff.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("delete expired cache records: %w", err)
	}
	return nil
}

var _ pagecache.KV = (*Store)(nil)
