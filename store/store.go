package store

import (
	"context"
	"sync"

	"github.com/goliatone/go-restcache/cache"
	"github.com/goliatone/go-restcache/pkg/activity"
)

// ChannelChange is the channel notified on every store mutation.
const ChannelChange = "change"

// ChannelFor returns the per-resource channel for key, usually a descriptor
// event (resource id or base path).
func ChannelFor(key string) string {
	if key == "" {
		return ChannelChange
	}
	return ChannelChange + ":" + key
}

// Definition describes the resource type a Store holds.
type Definition struct {
	Type string
}

// Change is delivered to subscribers once per notified channel.
type Change struct {
	Type    string
	Channel string
}

// Listener receives change notifications. Listeners usually re-read state.
type Listener func(Change)

// Store wraps the FragmentCache of one resource type with change
// notification. Mutations run synchronously under the store lock;
// notifications are deferred and coalesced per channel.
type Store struct {
	def Definition
	cfg config

	mu    sync.Mutex
	cache *cache.FragmentCache

	subsMu    sync.Mutex
	subs      map[string]map[uint64]Listener
	nextSub   uint64
	pending   []string
	queued    map[string]struct{}
	scheduled bool
	// delivering is set while one goroutine runs listeners.
	delivering bool
}

// New returns a store for def.
func New(def Definition, opts ...Option) *Store {
	cfg := newConfig(opts)
	return &Store{
		def:    def,
		cfg:    cfg,
		cache:  cache.New(cfg.cacheOptions...),
		subs:   map[string]map[uint64]Listener{},
		queued: map[string]struct{}{},
	}
}

// Type returns the resource type held by the store.
func (s *Store) Type() string {
	return s.def.Type
}

// Definition returns the store definition.
func (s *Store) Definition() Definition {
	return s.def
}

// FetchResource reads the addressed slot.
func (s *Store) FetchResource(addr cache.Address) (cache.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Fetch(addr)
}

// TouchResource merges bookkeeping fields into the addressed entry. When
// noNotify is set subscribers are not told about the change.
func (s *Store) TouchResource(addr cache.Address, patch cache.Patch, noNotify bool) {
	if patch.IsZero() {
		return
	}
	s.mu.Lock()
	s.cache.Touch(addr, patch)
	s.mu.Unlock()

	status := string(patch.Status)
	s.emit(activity.VerbTouched, &addr, status)
	if !noNotify {
		s.notify(&addr)
	}
}

// UpdateResource writes data into the addressed slots.
func (s *Store) UpdateResource(addr cache.Address, data any, status cache.Status) error {
	s.mu.Lock()
	err := s.cache.Update(addr, data, status)
	s.mu.Unlock()
	if err != nil {
		s.cfg.logger.Error("store update failed", "type", s.def.Type, "id", addr.ID, "base_path", addr.BasePath, "error", err)
		return err
	}

	s.emit(activity.VerbUpdated, &addr, string(status))
	s.notify(&addr)
	return nil
}

// DestroyResource tombstones the addressed slot.
func (s *Store) DestroyResource(addr cache.Address) {
	s.mu.Lock()
	s.cache.Destroy(addr)
	s.mu.Unlock()

	s.emit(activity.VerbDestroyed, &addr, "")
	s.notify(&addr)
}

// Invalidate marks entries stale. A nil addr invalidates the whole store.
func (s *Store) Invalidate(addr *cache.Address, opts cache.InvalidateOptions) {
	s.mu.Lock()
	s.cache.Invalidate(addr, opts)
	s.mu.Unlock()

	s.emit(activity.VerbInvalidated, addr, string(cache.StatusStale))
	s.notify(addr)
}

// Reset discards every cached entry. Subscribers are kept.
func (s *Store) Reset() {
	s.mu.Lock()
	s.cache = cache.New(s.cfg.cacheOptions...)
	s.mu.Unlock()

	s.emit(activity.VerbReset, nil, "")
	s.notify(nil)
}

// Snapshot reports cache entry counts per partial.
func (s *Store) Snapshot() cache.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Snapshot()
}

func (s *Store) emit(verb string, addr *cache.Address, status string) {
	if !s.cfg.emitter.Enabled() {
		return
	}
	input := activity.ResourceEventInput{Type: s.def.Type, Status: status}
	if addr != nil {
		input.ID = addr.ID
		input.BasePath = addr.BasePath
		input.Partial = addr.Partial
	}
	if err := s.cfg.emitter.Emit(context.Background(), activity.BuildResourceEvent(verb, input)); err != nil {
		s.cfg.logger.Warn("activity hook failed", "type", s.def.Type, "verb", verb, "error", err)
	}
}
