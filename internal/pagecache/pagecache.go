// Package pagecache provides the local expiring store for gallery pages.
//
// The cache is a read-through layer in front of the catalog feed: pages are
// stored with a write timestamp and treated as absent once older than the
// TTL. Storage failures never surface to callers; any backend error degrades
// to a cache miss or a skipped write, so correctness never depends on the
// cache being available.
package pagecache

import (
	"context"
	"errors"
	"log"
	"time"
)

// DefaultTTL is the maximum age of a cached page before it is treated as absent.
const DefaultTTL = 24 * time.Hour

// ErrNoRecord indicates a requested cache record is missing.
var ErrNoRecord = errors.New("no cache record")

// Record is one stored cache entry with its write timestamp.
type Record struct {
	Payload   []byte
	WrittenAt time.Time
}

// KV is the persistent key/value backend underneath the cache. Backends
// return errors; the Cache absorbs them.
type KV interface {
	Get(ctx context.Context, key string) (Record, error)
	Put(ctx context.Context, key string, record Record) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	// DeleteExpired removes every record written strictly before the
	// cutoff. A record written exactly at the cutoff is exactly TTL old,
	// which Get still serves.
	DeleteExpired(ctx context.Context, cutoff time.Time) error
}

// Cache is the TTL-evicting page store. A nil Cache is a valid always-miss
// cache, so callers holding an optional cache need no nil checks.
type Cache struct {
	kv    KV
	ttl   time.Duration
	clock func() time.Time
}

// Option adjusts cache construction.
type Option func(*Cache)

// WithTTL overrides the default entry TTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the wall clock, for tests.
func WithClock(clock func() time.Time) Option {
	return func(c *Cache) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// New creates a cache over the given backend.
func New(kv KV, opts ...Option) *Cache {
	cache := &Cache{
		kv:    kv,
		ttl:   DefaultTTL,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache
}

// Get returns the stored payload when present and unexpired. An expired
// entry is deleted as a side effect and reported as a miss. Backend errors
// are logged and reported as a miss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.kv == nil {
		return nil, false
	}
	record, err := c.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNoRecord) {
			log.Printf("page cache get %s: %v", key, err)
		}
		return nil, false
	}
	if c.clock().Sub(record.WrittenAt) > c.ttl {
		if err := c.kv.Delete(ctx, key); err != nil {
			log.Printf("page cache evict %s: %v", key, err)
		}
		return nil, false
	}
	return record.Payload, true
}

// Put upserts the payload under key with the current write timestamp.
// Backend errors are logged and the write is skipped.
func (c *Cache) Put(ctx context.Context, key string, payload []byte) {
	if c == nil || c.kv == nil {
		return
	}
	record := Record{Payload: payload, WrittenAt: c.clock()}
	if err := c.kv.Put(ctx, key, record); err != nil {
		log.Printf("page cache put %s: %v", key, err)
	}
}

// Delete removes one entry by key.
func (c *Cache) Delete(ctx context.Context, key string) {
	if c == nil || c.kv == nil {
		return
	}
	if err := c.kv.Delete(ctx, key); err != nil {
		log.Printf("page cache delete %s: %v", key, err)
	}
}

// DeletePrefix removes every entry whose key starts with prefix.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) {
	if c == nil || c.kv == nil {
		return
	}
	if err := c.kv.DeletePrefix(ctx, prefix); err != nil {
		log.Printf("page cache delete prefix %s: %v", prefix, err)
	}
}

// SweepExpired removes every entry older than the TTL. Best effort only; it
// never blocks or fails the caller.
func (c *Cache) SweepExpired(ctx context.Context) {
	if c == nil || c.kv == nil {
		return
	}
	cutoff := c.clock().Add(-c.ttl)
	if err := c.kv.DeleteExpired(ctx, cutoff); err != nil {
		log.Printf("page cache sweep: %v", err)
	}
}
