package simplify

import (
	"context"
	"slices"
	"sync"

	"github.com/Faultbox/meshsimplify/pkg/mesh"
	"go.uber.org/zap"
)

// Registry keeps built handles by key so a mesh shared by several objects
// is analyzed once. It is safe for concurrent use; the handles it returns
// are not.
type Registry struct {
	mu      sync.Mutex
	handles map[string]*Handle
	opts    Options
}

// NewRegistry creates an empty registry building with opts.
func NewRegistry(opts Options) *Registry {
	return &Registry{
		handles: make(map[string]*Handle),
		opts:    opts,
	}
}

// Build returns the handle stored under key, building it from src first if
// none exists. Concurrent builds of the same key keep the first result.
func (r *Registry) Build(ctx context.Context, key string, src *mesh.Source, spheres []RelevanceSphere) (*Handle, error) {
	if h, ok := r.Get(key); ok {
		return h, nil
	}

	h, err := Build(ctx, src, spheres, r.opts)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.handles[key]; ok {
		return existing, nil
	}
	r.handles[key] = h
	r.opts.logger().Debug("handle registered", zap.String("key", key), zap.Int("count", len(r.handles)))
	return h, nil
}

// Rebuild replaces the handle stored under key.
func (r *Registry) Rebuild(ctx context.Context, key string, src *mesh.Source, spheres []RelevanceSphere) (*Handle, error) {
	h, err := Build(ctx, src, spheres, r.opts)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.handles[key] = h
	r.mu.Unlock()
	return h, nil
}

// Get returns the handle stored under key.
func (r *Registry) Get(key string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[key]
	return h, ok
}

// Remove drops the handle stored under key.
func (r *Registry) Remove(key string) {
	r.mu.Lock()
	delete(r.handles, key)
	r.mu.Unlock()
}

// Clear drops every handle.
func (r *Registry) Clear() {
	r.mu.Lock()
	clear(r.handles)
	r.mu.Unlock()
}

// Len returns the number of stored handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Keys returns the stored keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	keys := make([]string, 0, len(r.handles))
	for k := range r.handles {
		keys = append(keys, k)
	}
	r.mu.Unlock()
	slices.Sort(keys)
	return keys
}
