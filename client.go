package restcache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goliatone/go-restcache/cache"
	"github.com/goliatone/go-restcache/parse"
	"github.com/goliatone/go-restcache/store"
	"github.com/goliatone/go-restcache/transport"
)

// Client runs network operations for descriptors and keeps their stores up
// to date. Each call walks requested, then succeeded or failed: the addressed
// slot is touched as loading, the transport is called, and the store is
// updated with the parsed response or touched with the failure time.
//
// Calls are not deduplicated or cancelled; overlapping completions apply in
// arrival order.
type Client struct {
	cfg      clientConfig
	inflight sync.WaitGroup

	evalOnce sync.Once
	eval     Evaluator
}

// New builds a client.
func New(opts ...Option) *Client {
	return &Client{cfg: applyOptions(opts)}
}

// Registry returns the store registry used by the client.
func (c *Client) Registry() *store.Registry {
	return c.cfg.registry
}

// Resolve resolves accessor items for action with the client hostname.
func (c *Client) Resolve(a *Accessor, action Action, items ...any) (*Descriptor, error) {
	return a.Descriptor(action, items, WithHostname(c.cfg.hostname))
}

// Read returns the cached state of d without touching the network.
func (c *Client) Read(d *Descriptor) (cache.Result, error) {
	s, err := c.storeFor(d)
	if err != nil {
		return cache.Result{}, err
	}
	return s.FetchResource(d.Address())
}

// Fetch returns the cached state of d. When the slot was never loaded or was
// invalidated a background Get is started; its completion is observable
// through Subscribe or Wait.
func (c *Client) Fetch(ctx context.Context, d *Descriptor) (cache.Result, error) {
	res, err := c.Read(d)
	if err != nil {
		return res, err
	}
	if res.Timestamp < cache.TimestampLoading {
		bg := context.WithoutCancel(ctx)
		c.inflight.Add(1)
		go func() {
			defer c.inflight.Done()
			if _, err := c.get(bg, d, true); err != nil {
				c.cfg.logger.Warn("background fetch failed", "type", d.Type, "path", d.Path, "error", err)
			}
		}()
	}
	return res, nil
}

// Wait blocks until background fetches started by Fetch complete.
func (c *Client) Wait() {
	c.inflight.Wait()
}

// Get loads d from the network and returns the refreshed cache read.
func (c *Client) Get(ctx context.Context, d *Descriptor) (cache.Result, error) {
	return c.get(ctx, d, false)
}

func (c *Client) get(ctx context.Context, d *Descriptor, quiet bool) (cache.Result, error) {
	s, err := c.storeFor(d)
	if err != nil {
		return cache.Result{}, err
	}
	addr := d.Address()
	data, err := c.request(ctx, s, addr, transport.MethodGet, d.Path, nil, quiet)
	if err != nil {
		return cache.Result{}, err
	}
	if err := c.apply(s, d, addr, data); err != nil {
		return cache.Result{}, err
	}
	return s.FetchResource(addr)
}

// Save sends d.Payload with POST, or PUT when d carries an id.
func (c *Client) Save(ctx context.Context, d *Descriptor) (cache.Result, error) {
	method := transport.MethodPost
	if d.ID != "" {
		method = transport.MethodPut
	}
	return c.save(ctx, d, method)
}

// Create sends d.Payload with POST regardless of the descriptor id.
func (c *Client) Create(ctx context.Context, d *Descriptor) (cache.Result, error) {
	return c.save(ctx, d, transport.MethodPost)
}

func (c *Client) save(ctx context.Context, d *Descriptor, method string) (cache.Result, error) {
	s, err := c.storeFor(d)
	if err != nil {
		return cache.Result{}, err
	}
	addr := d.Address()
	data, err := c.request(ctx, s, addr, method, d.Path, d.Payload, false)
	if err != nil {
		return cache.Result{}, err
	}

	if method == transport.MethodPut {
		if err := c.apply(s, d, addr, data); err != nil {
			return cache.Result{}, err
		}
		return s.FetchResource(addr)
	}

	// A created record joins the fragment table; the collection it was
	// posted to is refreshed on its next read.
	record := cache.Address{Partial: addr.Partial, CacheStrategy: addr.CacheStrategy}
	if err := c.apply(s, d, record, data); err != nil && !errors.Is(err, cache.ErrMissingIdentity) {
		return cache.Result{}, err
	}
	if addr.BasePath != "" {
		s.Invalidate(&cache.Address{BasePath: addr.BasePath, Partial: addr.Partial}, cache.InvalidateOptions{NoFragments: true})
	}
	if m, ok := data.(map[string]any); ok {
		if id, ok := cache.RecordID(m); ok {
			return s.FetchResource(cache.Address{ID: id, Partial: addr.Partial, Fragments: addr.Fragments})
		}
	}
	return cache.Result{Status: cache.StatusSuccess, Timestamp: c.cfg.now().UnixMilli(), Data: data}, nil
}

// Destroy sends DELETE for d and tombstones the addressed slot.
func (c *Client) Destroy(ctx context.Context, d *Descriptor) error {
	s, err := c.storeFor(d)
	if err != nil {
		return err
	}
	addr := d.Address()
	if _, err := c.request(ctx, s, addr, transport.MethodDelete, d.Path, d.Payload, false); err != nil {
		return err
	}
	s.DestroyResource(addr)
	return nil
}

// Invalidate marks the slots of d stale so the next Fetch reloads them.
func (c *Client) Invalidate(d *Descriptor, opts cache.InvalidateOptions) error {
	s, err := c.storeFor(d)
	if err != nil {
		return err
	}
	addr := d.Address()
	s.Invalidate(&addr, opts)
	return nil
}

// Subscribe registers fn for changes of d. The channel is keyed by d.Event.
func (c *Client) Subscribe(d *Descriptor, fn store.Listener) (func(), error) {
	s, err := c.storeFor(d)
	if err != nil {
		return nil, err
	}
	return s.Subscribe(store.ChannelFor(d.Event), fn), nil
}

func (c *Client) request(ctx context.Context, s ResourceStore, addr cache.Address, method, url string, body map[string]any, quiet bool) (any, error) {
	if c.cfg.transport == nil {
		return nil, ErrNoTransport
	}
	s.TouchResource(addr, cache.Patch{Status: cache.StatusStale, Timestamp: cache.At(cache.TimestampLoading)}, quiet)

	if len(body) == 0 {
		body = nil
	}
	c.cfg.logger.Debug("request", "method", method, "url", url, "type", s.Type())
	resp, err := c.cfg.transport.Do(ctx, transport.Request{Method: method, URL: url, Body: body})
	if err != nil {
		s.TouchResource(addr, cache.Patch{Timestamp: cache.At(c.cfg.now().UnixMilli())}, false)
		c.cfg.logger.Warn("request failed", "method", method, "url", url, "type", s.Type(), "error", err)
		return nil, &NetworkError{Method: method, URL: url, Err: err}
	}
	return resp.Data, nil
}

// apply parses data and writes the primary entity to s and related entities
// to the stores of their types.
func (c *Client) apply(s ResourceStore, d *Descriptor, addr cache.Address, data any) error {
	result, err := c.cfg.parser.Parse(data, parse.Target{Type: s.Type(), Partial: addr.Partial})
	if err != nil {
		return fmt.Errorf("restcache: parse %s response: %w", d.Path, err)
	}
	if result.Primary.Partial != "" {
		addr.Partial = result.Primary.Partial
	}
	if err := s.UpdateResource(addr, result.Primary.Data, cache.StatusSuccess); err != nil {
		return err
	}

	for _, related := range result.Related {
		if related.Type == "" || related.Data == nil {
			continue
		}
		target := c.cfg.registry.Store(related.Type)
		if err := target.UpdateResource(cache.Address{Partial: related.Partial}, related.Data, cache.StatusSuccess); err != nil {
			c.cfg.logger.Warn("related entity skipped", "type", related.Type, "error", err)
		}
	}
	return nil
}

func (c *Client) storeFor(d *Descriptor) (ResourceStore, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil descriptor", ErrInvalidArgument)
	}
	if d.Store != nil {
		return d.Store, nil
	}
	if d.Type != "" {
		return c.cfg.registry.Store(d.Type), nil
	}
	return nil, ErrNoStore
}
