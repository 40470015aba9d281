// Package sqlite provides a SQLite-backed catalog storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pulseritas/storefront/internal/catalog"
	"github.com/pulseritas/storefront/internal/catalog/storage"
	"github.com/pulseritas/storefront/internal/catalog/storage/sqlite/migrations"
	sqlitemigrate "github.com/pulseritas/storefront/internal/platform/storage/sqlitemigrate"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists catalog items in SQLite.
type Store struct {
	sqlDB *sql.DB
	clock func() time.Time
}

// Option adjusts store construction.
type Option func(*Store)

// WithClock overrides the wall clock, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite catalog store and applies embedded migrations.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
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
	store := &Store{sqlDB: sqlDB, clock: time.Now}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateItem inserts one catalog item record.
func (s *Store) CreateItem(ctx context.Context, item catalog.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id := strings.TrimSpace(item.ID)
	if id == "" {
		return fmt.Errorf("item id is required")
	}
	if err := item.Validate(); err != nil {
		return err
	}
	createdAt := item.CreatedAt.UTC()
	updatedAt := item.UpdatedAt.UTC()
	if createdAt.IsZero() && updatedAt.IsZero() {
		createdAt = s.clock().UTC()
		updatedAt = createdAt
	} else {
		if createdAt.IsZero() {
			createdAt = updatedAt
		}
		if updatedAt.IsZero() {
			updatedAt = createdAt
		}
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO items (
		   id,
		   name,
		   description,
		   price_cents,
		   image_url,
		   image_path,
		   created_by,
		   created_at,
		   updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		strings.TrimSpace(item.Name),
		strings.TrimSpace(item.Description),
		item.PriceCents,
		strings.TrimSpace(item.ImageURL),
		strings.TrimSpace(item.ImagePath),
		strings.TrimSpace(item.CreatedBy),
		toMillis(createdAt),
		toMillis(updatedAt),
	)
	if err != nil {
		if isItemUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

// GetItem returns one item by ID.
func (s *Store) GetItem(ctx context.Context, id string) (catalog.Item, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Item{}, err
	}
	if s == nil || s.sqlDB == nil {
		return catalog.Item{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return catalog.Item{}, fmt.Errorf("item id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, name, description, price_cents,
		        image_url, image_path, created_by,
		        created_at, updated_at
		   FROM items
		  WHERE id = ?`,
		id,
	)
	item, err := scanItem(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.Item{}, storage.ErrNotFound
		}
		return catalog.Item{}, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// UpdateItem applies a partial mutation and returns the updated record.
func (s *Store) UpdateItem(ctx context.Context, id string, update catalog.ItemUpdate) (catalog.Item, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Item{}, err
	}
	if s == nil || s.sqlDB == nil {
		return catalog.Item{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return catalog.Item{}, fmt.Errorf("item id is required")
	}
	if err := update.Validate(); err != nil {
		return catalog.Item{}, err
	}
	if update.Empty() {
		return s.GetItem(ctx, id)
	}

	assignments := make([]string, 0, 6)
	args := make([]any, 0, 7)
	if update.Name != nil {
		assignments = append(assignments, "name = ?")
		args = append(args, strings.TrimSpace(*update.Name))
	}
	if update.Description != nil {
		assignments = append(assignments, "description = ?")
		args = append(args, strings.TrimSpace(*update.Description))
	}
	if update.PriceCents != nil {
		assignments = append(assignments, "price_cents = ?")
		args = append(args, *update.PriceCents)
	}
	if update.ImageURL != nil {
		assignments = append(assignments, "image_url = ?")
		args = append(args, strings.TrimSpace(*update.ImageURL))
	}
	if update.ImagePath != nil {
		assignments = append(assignments, "image_path = ?")
		args = append(args, strings.TrimSpace(*update.ImagePath))
	}
	assignments = append(assignments, "updated_at = ?")
	args = append(args, toMillis(s.clock()))
	args = append(args, id)

	result, err := s.sqlDB.ExecContext(
		ctx,
		"UPDATE items SET "+strings.Join(assignments, ", ")+" WHERE id = ?",
		args...,
	)
	if err != nil {
		return catalog.Item{}, fmt.Errorf("update item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return catalog.Item{}, fmt.Errorf("update item rows affected: %w", err)
	}
	if affected == 0 {
		return catalog.Item{}, storage.ErrNotFound
	}
	return s.GetItem(ctx, id)
}

// DeleteItem removes one item by ID.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("item id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, "DELETE FROM items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete item rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListItemsBefore returns up to limit items ordered by creation time descending,
// restricted to items created strictly before the cursor when it is non-nil.
func (s *Store) ListItemsBefore(ctx context.Context, before *time.Time, limit int) ([]catalog.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	var (
		rows *sql.Rows
		err  error
	)
	if before == nil {
		rows, err = s.sqlDB.QueryContext(
			ctx,
			`SELECT id, name, description, price_cents,
			        image_url, image_path, created_by,
			        created_at, updated_at
			   FROM items
			  ORDER BY created_at DESC
			  LIMIT ?`,
			limit,
		)
	} else {
		rows, err = s.sqlDB.QueryContext(
			ctx,
			`SELECT id, name, description, price_cents,
			        image_url, image_path, created_by,
			        created_at, updated_at
			   FROM items
			  WHERE created_at < ?
			  ORDER BY created_at DESC
			  LIMIT ?`,
			toMillis(*before),
			limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := make([]catalog.Item, 0, limit)
	for rows.Next() {
		item, err := scanItem(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list items: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

func scanItem(scan func(...any) error) (catalog.Item, error) {
	var item catalog.Item
	var createdAt int64
	var updatedAt int64
	if err := scan(
		&item.ID,
		&item.Name,
		&item.Description,
		&item.PriceCents,
		&item.ImageURL,
		&item.ImagePath,
		&item.CreatedBy,
		&createdAt,
		&updatedAt,
	); err != nil {
		return catalog.Item{}, err
	}
	item.CreatedAt = fromMillis(createdAt)
	item.UpdatedAt = fromMillis(updatedAt)
	return item, nil
}

func isItemUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") &&
		strings.Contains(message, "items.id")
}

var _ storage.ItemStore = (*Store)(nil)
