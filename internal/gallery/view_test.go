package gallery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pulseritas/storefront/internal/catalog"
	"github.com/pulseritas/storefront/internal/pagecache"
	cachememdb "github.com/pulseritas/storefront/internal/pagecache/memdb"
)

// fakeFeed serves a fixed descending-ordered item list and counts queries.
type fakeFeed struct {
	mu      sync.Mutex
	items   []catalog.Item
	calls   int
	err     error
	entered chan struct{}
	release chan struct{}
}

func (f *fakeFeed) ListItemsBefore(ctx context.Context, before *time.Time, limit int) ([]catalog.Item, error) {
	f.mu.Lock()
	f.calls++
	entered := f.entered
	release := f.release
	err := f.err
	items := f.items
	f.mu.Unlock()

	if entered != nil {
		close(entered)
		f.mu.Lock()
		f.entered = nil
		f.mu.Unlock()
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	page := make([]catalog.Item, 0, limit)
	for _, item := range items {
		if before != nil && !item.CreatedAt.Before(*before) {
			continue
		}
		page = append(page, item)
		if len(page) == limit {
			break
		}
	}
	return page, nil
}

func (f *fakeFeed) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// feedOf builds a feed holding count items in creation order, newest first.
func feedOf(count int) *fakeFeed {
	base := time.Date(2026, time.August, 20, 12, 0, 0, 0, time.UTC)
	items := make([]catalog.Item, 0, count)
	for idx := 0; idx < count; idx++ {
		created := base.Add(-time.Duration(idx) * time.Minute)
		items = append(items, catalog.Item{
			ID:          "item-" + string(rune('a'+idx)),
			Name:        "Pulsera",
			Description: "Bracelet",
			PriceCents:  1000,
			ImageURL:    "http://localhost/images/p.jpg",
			ImagePath:   "pulseras/p.jpg",
			CreatedBy:   "admin-1",
			CreatedAt:   created,
			UpdatedAt:   created,
		})
	}
	return &fakeFeed{items: items}
}

func newTestCache(t *testing.T) *pagecache.Cache {
	t.Helper()
	backend, err := cachememdb.New()
	if err != nil {
		t.Fatalf("create cache backend: %v", err)
	}
	return pagecache.New(backend)
}

func newTestView(t *testing.T, cfg Config) *View {
	t.Helper()
	view, err := NewView(cfg)
	if err != nil {
		t.Fatalf("create view: %v", err)
	}
	return view
}

func TestLoadNextPagePaginatesToTerminal(t *testing.T) {
	t.Parallel()

	feed := feedOf(7)
	view := newTestView(t, Config{Feed: feed, Cache: newTestCache(t)})

	pageOne, err := view.LoadNextPage(context.Background())
	if err != nil {
		t.Fatalf("load page one: %v", err)
	}
	if len(pageOne.Items) != 5 {
		t.Fatalf("page one len = %d, want 5", len(pageOne.Items))
	}

	pageTwo, err := view.LoadNextPage(context.Background())
	if err != nil {
		t.Fatalf("load page two: %v", err)
	}
	if len(pageTwo.Items) != 2 {
		t.Fatalf("page two len = %d, want 2", len(pageTwo.Items))
	}
	seventh := feed.items[6].CreatedAt
	cursor := view.Cursor()
	if cursor == nil || !cursor.Equal(seventh) {
		t.Fatalf("cursor after page two = %v, want %v", cursor, seventh)
	}
	if !view.Done() {
		t.Fatal("expected short page to mark the view done")
	}

	if _, err := view.LoadNextPage(context.Background()); !errors.Is(err, ErrNoMorePages) {
		t.Fatalf("page three error = %v, want %v", err, ErrNoMorePages)
	}
	if got := feed.queryCount(); got != 2 {
		t.Fatalf("remote queries = %d, want 2 (none after terminal)", got)
	}
}

func TestLoadNextPageExactMultipleEndsWithEmptyFetch(t *testing.T) {
	t.Parallel()

	feed := feedOf(5)
	view := newTestView(t, Config{Feed: feed, Cache: newTestCache(t)})

	if _, err := view.LoadNextPage(context.Background()); err != nil {
		t.Fatalf("load page one: %v", err)
	}
	if _, err := view.LoadNextPage(context.Background()); !errors.Is(err, ErrNoMorePages) {
		t.Fatalf("page two error = %v, want %v", err, ErrNoMorePages)
	}
	if got := feed.queryCount(); got != 2 {
		t.Fatalf("remote queries = %d, want 2", got)
	}
	// Terminal state short-circuits before the feed.
	if _, err := view.LoadNextPage(context.Background()); !errors.Is(err, ErrNoMorePages) {
		t.Fatalf("page three error = %v, want %v", err, ErrNoMorePages)
	}
	if got := feed.queryCount(); got != 2 {
		t.Fatalf("remote queries after terminal = %d, want 2", got)
	}
}

func TestLoadNextPageServesSecondViewFromCache(t *testing.T) {
	t.Parallel()

	feed := feedOf(7)
	cache := newTestCache(t)

	first := newTestView(t, Config{Feed: feed, Cache: cache})
	fresh, err := first.LoadNextPage(context.Background())
	if err != nil {
		t.Fatalf("load fresh page: %v", err)
	}
	if got := feed.queryCount(); got != 1 {
		t.Fatalf("remote queries = %d, want 1", got)
	}

	second := newTestView(t, Config{Feed: feed, Cache: cache})
	cached, err := second.LoadNextPage(context.Background())
	if err != nil {
		t.Fatalf("load cached page: %v", err)
	}
	if got := feed.queryCount(); got != 1 {
		t.Fatalf("remote queries after cache hit = %d, want 1", got)
	}

	freshPayload, err := encodeSnapshot(fresh)
	if err != nil {
		t.Fatalf("encode fresh snapshot: %v", err)
	}
	cachedPayload, err := encodeSnapshot(cached)
	if err != nil {
		t.Fatalf("encode cached snapshot: %v", err)
	}
	if string(freshPayload) != string(cachedPayload) {
		t.Fatalf("cached snapshot differs from fresh snapshot:\n%s\n%s", freshPayload, cachedPayload)
	}

	// The cache hit still advances pagination state.
	if second.PageIndex() != 1 {
		t.Fatalf("page index after cache hit = %d, want 1", second.PageIndex())
	}
	cursor := second.Cursor()
	if cursor == nil || !cursor.Equal(feed.items[4].CreatedAt) {
		t.Fatalf("cursor after cache hit = %v, want %v", cursor, feed.items[4].CreatedAt)
	}
}

func TestLoadNextPageRejectsConcurrentFetch(t *testing.T) {
	t.Parallel()

	feed := feedOf(7)
	feed.entered = make(chan struct{})
	feed.release = make(chan struct{})
	view := newTestView(t, Config{Feed: feed, Cache: newTestCache(t)})

	type result struct {
		snapshot PageSnapshot
		err      error
	}
	firstDone := make(chan result, 1)
	entered := feed.entered
	go func() {
		snapshot, err := view.LoadNextPage(context.Background())
		firstDone <- result{snapshot, err}
	}()

	<-entered
	if _, err := view.LoadNextPage(context.Background()); !errors.Is(err, ErrFetchInFlight) {
		t.Fatalf("second call error = %v, want %v", err, ErrFetchInFlight)
	}
	if view.PageIndex() != 0 {
		t.Fatalf("rejected call changed page index to %d", view.PageIndex())
	}

	close(feed.release)
	first := <-firstDone
	if first.err != nil {
		t.Fatalf("first call: %v", first.err)
	}
	if len(first.snapshot.Items) != 5 {
		t.Fatalf("first call len = %d, want 5", len(first.snapshot.Items))
	}
	if got := feed.queryCount(); got != 1 {
		t.Fatalf("remote queries = %d, want 1", got)
	}
}

func TestAdminViewBypassesCache(t *testing.T) {
	t.Parallel()

	feed := feedOf(7)
	backend, err := cachememdb.New()
	if err != nil {
		t.Fatalf("create cache backend: %v", err)
	}
	cache := pagecache.New(backend)

	for i := 0; i < 2; i++ {
		view := newTestView(t, Config{Scope: "admin-1", Admin: true, Feed: feed, Cache: cache})
		if _, err := view.LoadNextPage(context.Background()); err != nil {
			t.Fatalf("admin load %d: %v", i, err)
		}
	}
	if got := feed.queryCount(); got != 2 {
		t.Fatalf("remote queries = %d, want 2 (one per admin load)", got)
	}
	if _, err := backend.Get(context.Background(), pagecache.Key("admin-1", 0)); !errors.Is(err, pagecache.ErrNoRecord) {
		t.Fatalf("expected no cache write under admin scope, got err %v", err)
	}
}

func TestInvalidatorPurgesScope(t *testing.T) {
	t.Parallel()

	feed := feedOf(7)
	cache := newTestCache(t)
	view := newTestView(t, Config{Feed: feed, Cache: cache})
	if _, err := view.LoadNextPage(context.Background()); err != nil {
		t.Fatalf("load page one: %v", err)
	}
	if _, err := view.LoadNextPage(context.Background()); err != nil {
		t.Fatalf("load page two: %v", err)
	}

	NewInvalidator(cache).OnScopeMutated(context.Background(), pagecache.ScopePublic)

	for page := 0; page < 2; page++ {
		if _, ok := cache.Get(context.Background(), pagecache.Key(pagecache.ScopePublic, page)); ok {
			t.Fatalf("expected page %d to be invalidated", page)
		}
	}

	// A fresh view goes back to the feed.
	before := feed.queryCount()
	refetch := newTestView(t, Config{Feed: feed, Cache: cache})
	if _, err := refetch.LoadNextPage(context.Background()); err != nil {
		t.Fatalf("reload after invalidation: %v", err)
	}
	if got := feed.queryCount(); got != before+1 {
		t.Fatalf("remote queries = %d, want %d", got, before+1)
	}
}

func TestOnItemMutatedPurgesActorAndPublicScopes(t *testing.T) {
	t.Parallel()

	cache := newTestCache(t)
	cache.Put(context.Background(), pagecache.Key("admin-1", 0), []byte("a"))
	cache.Put(context.Background(), pagecache.Key(pagecache.ScopePublic, 0), []byte("p"))
	cache.Put(context.Background(), pagecache.Key("other", 0), []byte("o"))

	NewInvalidator(cache).OnItemMutated(context.Background(), "admin-1")

	if _, ok := cache.Get(context.Background(), pagecache.Key("admin-1", 0)); ok {
		t.Fatal("expected actor scope to be invalidated")
	}
	if _, ok := cache.Get(context.Background(), pagecache.Key(pagecache.ScopePublic, 0)); ok {
		t.Fatal("expected public scope to be invalidated")
	}
	if _, ok := cache.Get(context.Background(), pagecache.Key("other", 0)); !ok {
		t.Fatal("expected unrelated scope to survive")
	}
}

func TestRemoteErrorReleasesGuard(t *testing.T) {
	t.Parallel()

	feed := feedOf(7)
	feed.err = errors.New("backend unavailable")
	view := newTestView(t, Config{Feed: feed, Cache: newTestCache(t)})

	if _, err := view.LoadNextPage(context.Background()); err == nil {
		t.Fatal("expected remote error to propagate")
	}
	if view.PageIndex() != 0 {
		t.Fatalf("failed fetch advanced page index to %d", view.PageIndex())
	}

	feed.mu.Lock()
	feed.err = nil
	feed.mu.Unlock()

	snapshot, err := view.LoadNextPage(context.Background())
	if err != nil {
		t.Fatalf("retry after remote error: %v", err)
	}
	if len(snapshot.Items) != 5 {
		t.Fatalf("retry len = %d, want 5", len(snapshot.Items))
	}
}

func TestFetchTimeoutForceReleasesGuard(t *testing.T) {
	t.Parallel()

	feed := feedOf(7)
	feed.release = make(chan struct{}) // never closed: the fetch hangs
	view := newTestView(t, Config{
		Feed:         feed,
		Cache:        newTestCache(t),
		FetchTimeout: 50 * time.Millisecond,
	})

	if _, err := view.LoadNextPage(context.Background()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("stuck fetch error = %v, want %v", err, context.DeadlineExceeded)
	}

	feed.mu.Lock()
	feed.release = nil
	feed.mu.Unlock()

	if _, err := view.LoadNextPage(context.Background()); err != nil {
		t.Fatalf("retry after timeout: %v", err)
	}
}

func TestNewViewDefaults(t *testing.T) {
	t.Parallel()

	if _, err := NewView(Config{}); err == nil {
		t.Fatal("expected missing feed error")
	}
	view := newTestView(t, Config{Feed: feedOf(1)})
	if view.Scope() != pagecache.ScopePublic {
		t.Fatalf("default scope = %q, want %q", view.Scope(), pagecache.ScopePublic)
	}
}

func TestRegistryLifecycle(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	view := newTestView(t, Config{Feed: feedOf(1)})
	id := registry.Add(view)
	if id == "" {
		t.Fatal("expected generated view id")
	}

	got, ok := registry.Get(id)
	if !ok || got != view {
		t.Fatal("expected registered view to be retrievable")
	}

	registry.Remove(id)
	if _, ok := registry.Get(id); ok {
		t.Fatal("expected removed view to be gone")
	}
}
