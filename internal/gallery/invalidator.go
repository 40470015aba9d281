package gallery

import (
	"context"

	"github.com/pulseritas/storefront/internal/pagecache"
)

// Invalidator purges cached pages after catalog mutations.
//
// A single stale page invalidates trust in every cursor derived from it, so
// the whole scope is dropped rather than patched. Callers must invoke it
// after every successful create, update, or delete before the next page
// load for that scope is allowed to trust the cache.
type Invalidator struct {
	cache *pagecache.Cache
}

// NewInvalidator creates an invalidator over the shared page cache.
func NewInvalidator(cache *pagecache.Cache) *Invalidator {
	return &Invalidator{cache: cache}
}

// OnScopeMutated deletes every cached page belonging to the scope.
func (i *Invalidator) OnScopeMutated(ctx context.Context, scope string) {
	if i == nil {
		return
	}
	i.cache.DeletePrefix(ctx, pagecache.ScopePrefix(scope))
}

// OnItemMutated invalidates the scopes whose cached pages derive from the
// mutated item: the acting user's own partition and the public partition.
func (i *Invalidator) OnItemMutated(ctx context.Context, actorScope string) {
	if i == nil {
		return
	}
	i.OnScopeMutated(ctx, pagecache.ScopeForUser(actorScope))
	i.OnScopeMutated(ctx, pagecache.ScopePublic)
}
