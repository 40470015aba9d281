// Package memdb provides an in-memory page cache backend backed by
// hashicorp/go-memdb. Entries do not survive a restart; it suits
// session-scoped deployments and tests.
package memdb

import (
	"context"
	"fmt"
	"time"

	hmemdb "github.com/hashicorp/go-memdb"

	"github.com/pulseritas/storefront/internal/pagecache"
)

const tableName = "page_cache"

// row is the memdb table shape for one cache record.
type row struct {
	Key       string
	Payload   []byte
	WrittenAt time.Time
}

// Store keeps page cache records in an in-memory radix-indexed table.
type Store struct {
	db *hmemdb.MemDB
}

// New creates an empty in-memory page cache backend.
func New() (*Store, error) {
	schema := &hmemdb.DBSchema{
		Tables: map[string]*hmemdb.TableSchema{
			tableName: {
				Name: tableName,
				Indexes: map[string]*hmemdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &hmemdb.StringFieldIndex{Field: "Key"},
					},
				},
			},
		},
	}
	db, err := hmemdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("create memdb: %w", err)
	}
	return &Store{db: db}, nil
}

// Get returns one cache record by key.
func (s *Store) Get(ctx context.Context, key string) (pagecache.Record, error) {
	if err := ctx.Err(); err != nil {
		return pagecache.Record{}, err
	}
	if s == nil || s.db == nil {
		return pagecache.Record{}, fmt.Errorf("storage is not configured")
	}

	txn := s.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tableName, "id", key)
	if err != nil {
		return pagecache.Record{}, fmt.Errorf("get cache record: %w", err)
	}
	if raw == nil {
		return pagecache.Record{}, pagecache.ErrNoRecord
	}
	stored := raw.(*row)
	return pagecache.Record{Payload: stored.Payload, WrittenAt: stored.WrittenAt}, nil
}

// Put upserts one cache record.
func (s *Store) Put(ctx context.Context, key string, record pagecache.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}

	txn := s.db.Txn(true)
	if err := txn.Insert(tableName, &row{
		Key:       key,
		Payload:   record.Payload,
		WrittenAt: record.WrittenAt,
	}); err != nil {
		txn.Abort()
		return fmt.Errorf("put cache record: %w", err)
	}
	txn.Commit()
	return nil
}

// Delete removes one cache record by key. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}

	txn := s.db.Txn(true)
	raw, err := txn.First(tableName, "id", key)
	if err != nil {
		txn.Abort()
		return fmt.Errorf("delete cache record: %w", err)
	}
	if raw == nil {
		txn.Abort()
		return nil
	}
	if err := txn.Delete(tableName, raw); err != nil {
		txn.Abort()
		return fmt.Errorf("delete cache record: %w", err)
	}
	txn.Commit()
	return nil
}

// DeletePrefix removes every record whose key starts with prefix via the
// radix index.
func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}

	txn := s.db.Txn(true)
	if _, err := txn.DeletePrefix(tableName, "id_prefix", prefix); err != nil {
		txn.Abort()
		return fmt.Errorf("delete cache prefix: %w", err)
	}
	txn.Commit()
	return nil
}

// DeleteExpired removes every record written strictly before the cutoff,
// matching the age check Get applies.
func (s *Store) DeleteExpired(ctx context.Context, cutoff time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}

	txn := s.db.Txn(true)
	iter, err := txn.Get(tableName, "id")
	if err != nil {
		txn.Abort()
		return fmt.Errorf("scan cache records: %w", err)
	}
	var stale []*row
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		stored := raw.(*row)
		if stored.WrittenAt.Before(cutoff) {
			stale = append(stale, stored)
		}
	}
	for _, stored := range stale {
		if err := txn.Delete(tableName, stored); err != nil {
			txn.Abort()
			return fmt.Errorf("delete expired cache record: %w", err)
		}
	}
	txn.Commit()
	return nil
}

var _ pagecache.KV = (*Store)(nil)
