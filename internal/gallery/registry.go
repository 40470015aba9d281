package gallery

import (
	"sync"

	"github.com/google/uuid"
)

// Registry tracks live gallery views by ID. Views are created when a client
// opens a gallery and discarded when it is torn down; state never persists
// across view instances.
type Registry struct {
	mu    sync.Mutex
	views map[string]*View
}

// NewRegistry creates an empty view registry.
func NewRegistry() *Registry {
	return &Registry{views: make(map[string]*View)}
}

// Add registers a view and returns its generated ID.
func (r *Registry) Add(view *View) string {
	id := uuid.NewString()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views[id] = view
	return id
}

// Get returns the view registered under id.
func (r *Registry) Get(id string) (*View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	view, ok := r.views[id]
	return view, ok
}

// Remove discards the view registered under id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.views, id)
}
