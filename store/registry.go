package store

import (
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// AnonymousPrefix prefixes the type key of anonymous stores.
const AnonymousPrefix = "anonymous:"

// Registry maps resource types to stores. Registries are independent so tests
// can run in parallel with isolated caches.
type Registry struct {
	mu     sync.RWMutex
	stores map[string]*Store
	opts   []Option
}

// NewRegistry returns an empty registry. opts apply to every store it creates.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		stores: map[string]*Store{},
		opts:   append([]Option(nil), opts...),
	}
}

// Store returns the store for typ, creating it on first access. An empty typ
// yields a new anonymous store.
func (r *Registry) Store(typ string) *Store {
	typ = strings.TrimSpace(typ)
	if typ == "" {
		return r.Anonymous()
	}

	r.mu.RLock()
	existing, ok := r.stores[typ]
	r.mu.RUnlock()
	if ok {
		return existing
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.stores[typ]; ok {
		return existing
	}
	created := New(Definition{Type: typ}, r.opts...)
	r.stores[typ] = created
	return created
}

// Anonymous creates a store under a fresh random type key.
func (r *Registry) Anonymous() *Store {
	return r.Store(AnonymousPrefix + uuid.NewString())
}

// Lookup returns the store for typ without creating it.
func (r *Registry) Lookup(typ string) (*Store, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stores[typ]
	return s, ok
}

// Types lists registered types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.stores))
	for typ := range r.stores {
		types = append(types, typ)
	}
	slices.Sort(types)
	return types
}

// Reset drops every store. Stores handed out earlier keep working but are no
// longer reachable through the registry.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores = map[string]*Store{}
}
