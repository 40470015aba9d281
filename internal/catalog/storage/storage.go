// Package storage defines persistence contracts for catalog items.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/pulseritas/storefront/internal/catalog"
)

var (
	// ErrNotFound indicates a requested item record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained item already exists.
	ErrAlreadyExists = errors.New("record already exists")
)

// ItemStore persists catalog items and serves the ordered storefront feed.
type ItemStore interface {
	CreateItem(ctx context.Context, item catalog.Item) error
	GetItem(ctx context.Context, id string) (catalog.Item, error)
	UpdateItem(ctx context.Context, id string, update catalog.ItemUpdate) (catalog.Item, error)
	DeleteItem(ctx context.Context, id string) error
	// ListItemsBefore returns up to limit items ordered by creation time
	// descending, restricted to items created strictly before the cursor
	// when it is non-nil.
	ListItemsBefore(ctx context.Context, before *time.Time, limit int) ([]catalog.Item, error)
}
