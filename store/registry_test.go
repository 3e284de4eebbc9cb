package store

import (
	"strings"
	"sync"
	"testing"

	"github.com/goliatone/go-restcache/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_StoreIsCreatedOnce(t *testing.T) {
	r := NewRegistry(WithManualDelivery())

	first := r.Store("projects")
	second := r.Store(" projects ")
	assert.Same(t, first, second)
	assert.Equal(t, "projects", first.Type())
	assert.Equal(t, []string{"projects"}, r.Types())
}

func TestRegistry_Anonymous(t *testing.T) {
	r := NewRegistry()

	a := r.Anonymous()
	b := r.Store("")
	assert.NotEqual(t, a.Type(), b.Type())
	assert.True(t, strings.HasPrefix(a.Type(), AnonymousPrefix))
	assert.Len(t, r.Types(), 2)

	found, ok := r.Lookup(a.Type())
	require.True(t, ok)
	assert.Same(t, a, found)
}

func TestRegistry_ResetDropsStores(t *testing.T) {
	r := NewRegistry()
	before := r.Store("projects")
	require.NoError(t, before.UpdateResource(cache.Address{ID: "1"}, map[string]any{"id": "1"}, cache.StatusSuccess))

	r.Reset()
	assert.Empty(t, r.Types())

	after := r.Store("projects")
	assert.NotSame(t, before, after)
	res, err := after.FetchResource(cache.Address{ID: "1"})
	require.NoError(t, err)
	assert.True(t, res.Stale())
}

func TestRegistry_IsolatedAndConcurrent(t *testing.T) {
	t.Parallel()
	a := NewRegistry()
	b := NewRegistry()

	var wg sync.WaitGroup
	stores := make([]*Store, 16)
	for i := range stores {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stores[i] = a.Store("users")
		}(i)
	}
	wg.Wait()

	for _, s := range stores {
		assert.Same(t, stores[0], s)
	}
	_, ok := b.Lookup("users")
	assert.False(t, ok)
}
