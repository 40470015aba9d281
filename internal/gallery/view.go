// Package gallery drives paginated storefront views over the catalog feed.
//
// Each View owns its pagination state: the forward-only cursor, the page
// index, and the in-flight guard. Non-admin views read through the page
// cache; admin views always fetch live data and never touch the cache.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pulseritas/storefront/internal/catalog"
	"github.com/pulseritas/storefront/internal/pagecache"
)

// DefaultPageSize is the number of items per gallery page.
const DefaultPageSize = 5

// DefaultFetchTimeout bounds one remote feed query. A stuck remote call
// would otherwise hold the in-flight guard forever and freeze pagination
// for the view.
const DefaultFetchTimeout = 30 * time.Second

var (
	// ErrNoMorePages indicates the feed is exhausted for this view.
	ErrNoMorePages = errors.New("no more pages")
	// ErrFetchInFlight indicates a page fetch is already outstanding.
	ErrFetchInFlight = errors.New("page fetch already in flight")
)

// Feed is the remote ordered feed the gallery paginates over.
type Feed interface {
	// ListItemsBefore returns up to limit items ordered by creation time
	// descending, restricted to items created strictly before the cursor
	// when it is non-nil.
	ListItemsBefore(ctx context.Context, before *time.Time, limit int) ([]catalog.Item, error)
}

// Config defines the inputs for one gallery view.
type Config struct {
	// Scope is the identity partition cached pages are keyed under.
	// Empty means the public scope.
	Scope string
	// Admin marks a privileged view: live data only, no cache reads or
	// writes under any scope.
	Admin bool
	// PageSize defaults to DefaultPageSize.
	PageSize int
	// FetchTimeout defaults to DefaultFetchTimeout.
	FetchTimeout time.Duration
	Feed         Feed
	Cache        *pagecache.Cache
	// Clock overrides the wall clock, for tests.
	Clock func() time.Time
}

// View is one gallery view instance with exclusive pagination state.
type View struct {
	scope        string
	admin        bool
	pageSize     int
	fetchTimeout time.Duration
	feed         Feed
	cache        *pagecache.Cache
	tracer       trace.Tracer

	mu        sync.Mutex
	pageIndex int
	cursor    *time.Time
	fetching  bool
	done      bool
}

// NewView creates a gallery view positioned at the first page.
func NewView(cfg Config) (*View, error) {
	if cfg.Feed == nil {
		return nil, errors.New("gallery feed is required")
	}
	scope := strings.TrimSpace(cfg.Scope)
	if scope == "" {
		scope = pagecache.ScopePublic
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	return &View{
		scope:        scope,
		admin:        cfg.Admin,
		pageSize:     pageSize,
		fetchTimeout: fetchTimeout,
		feed:         cfg.Feed,
		cache:        cfg.Cache,
		tracer:       otel.Tracer("gallery"),
	}, nil
}

// Scope returns the identity partition for this view.
func (v *View) Scope() string {
	if v == nil {
		return ""
	}
	return v.scope
}

// Admin reports whether this is a privileged live-data view.
func (v *View) Admin() bool {
	if v == nil {
		return false
	}
	return v.admin
}

// PageIndex returns the number of pages already loaded.
func (v *View) PageIndex() int {
	if v == nil {
		return 0
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pageIndex
}

// Cursor returns the ordering value the next fetch resumes after, or nil at
// the beginning of the feed.
func (v *View) Cursor() *time.Time {
	if v == nil {
		return nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cursor == nil {
		return nil
	}
	cursor := *v.cursor
	return &cursor
}

// Done reports whether the feed is exhausted for this view.
func (v *View) Done() bool {
	if v == nil {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.done
}

// LoadNextPage returns the next page of the feed, serving from the page
// cache when possible. It returns ErrNoMorePages once the feed is
// exhausted and ErrFetchInFlight when a fetch is already outstanding; in
// both cases the view state is unchanged. Remote errors propagate to the
// caller with the in-flight guard released, so a retry is possible.
func (v *View) LoadNextPage(ctx context.Context) (PageSnapshot, error) {
	if v == nil {
		return PageSnapshot{}, errors.New("gallery view is nil")
	}

	v.mu.Lock()
	if v.done {
		v.mu.Unlock()
		return PageSnapshot{}, ErrNoMorePages
	}
	if v.fetching {
		v.mu.Unlock()
		return PageSnapshot{}, ErrFetchInFlight
	}
	v.fetching = true
	pageIndex := v.pageIndex
	cursor := v.cursor
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		v.fetching = false
		v.mu.Unlock()
	}()

	ctx, span := v.tracer.Start(ctx, "gallery.LoadNextPage", trace.WithAttributes(
		attribute.String("gallery.scope", v.scope),
		attribute.Int("gallery.page_index", pageIndex),
		attribute.Bool("gallery.admin", v.admin),
	))
	defer span.End()

	if !v.admin {
		key := pagecache.Key(v.scope, pageIndex)
		if payload, ok := v.cache.Get(ctx, key); ok {
			snapshot, err := decodeSnapshot(payload)
			if err == nil {
				span.SetAttributes(attribute.Bool("gallery.cache_hit", true))
				v.advance(snapshot)
				return snapshot, nil
			}
			// Undecodable entries read as stale: drop and refetch.
			log.Printf("gallery cache entry %s: %v", key, err)
			v.cache.Delete(ctx, key)
		}
	}
	span.SetAttributes(attribute.Bool("gallery.cache_hit", false))

	fetchCtx, cancel := context.WithTimeout(ctx, v.fetchTimeout)
	defer cancel()

	items, err := v.feed.ListItemsBefore(fetchCtx, cursor, v.pageSize)
	if err != nil {
		return PageSnapshot{}, fmt.Errorf("load next page: %w", err)
	}
	if len(items) == 0 {
		v.mu.Lock()
		v.done = true
		v.mu.Unlock()
		return PageSnapshot{}, ErrNoMorePages
	}

	nextCursor := items[len(items)-1].CreatedAt.UnixMilli()
	snapshot := PageSnapshot{Items: items, NextCursor: &nextCursor}
	if !v.admin {
		if payload, err := encodeSnapshot(snapshot); err == nil {
			v.cache.Put(ctx, pagecache.Key(v.scope, pageIndex), payload)
		} else {
			log.Printf("gallery cache write %s: %v", pagecache.Key(v.scope, pageIndex), err)
		}
	}
	v.advance(snapshot)
	return snapshot, nil
}

// advance moves the cursor past the loaded page. It runs exactly once per
// successfully completed page, for cache hits and remote fetches alike.
func (v *View) advance(snapshot PageSnapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if snapshot.NextCursor != nil {
		cursor := time.UnixMilli(*snapshot.NextCursor).UTC()
		v.cursor = &cursor
	}
	v.pageIndex++
	if len(snapshot.Items) < v.pageSize {
		v.done = true
	}
}
