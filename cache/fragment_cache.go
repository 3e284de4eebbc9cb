package cache

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/goliatone/go-restcache/layering"
	"github.com/tidwall/btree"
)

type index map[string]*btree.Map[string, *Entry]

// FragmentCache is the normalized store for a single resource type. Records
// live in the fragment table (partial -> id -> entry); request results live in
// the query table (partial -> basePath -> entry) as id lists, id references or
// raw values.
//
// FragmentCache is not safe for concurrent use; Store serializes access.
type FragmentCache struct {
	fragments index
	queries   index
	now       func() int64
}

// Option configures a FragmentCache.
type Option func(*FragmentCache)

// WithClock overrides the epoch-millisecond clock used for timestamps.
func WithClock(now func() int64) Option {
	return func(c *FragmentCache) {
		if now != nil {
			c.now = now
		}
	}
}

// New returns an empty cache.
func New(opts ...Option) *FragmentCache {
	c := &FragmentCache{
		fragments: index{},
		queries:   index{},
		now:       func() int64 { return time.Now().UnixMilli() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Fetch reads the slot addressed by addr. Id addresses fall back through the
// declared fragments when the addressed partial holds no data; query reads
// resolve id lists through the fragment table.
func (c *FragmentCache) Fetch(addr Address) (Result, error) {
	switch {
	case addr.ID != "":
		return c.fetchFragment(addr, addr.ID), nil
	case addr.BasePath != "":
		return c.fetchQuery(addr)
	default:
		return StaleResult(), nil
	}
}

func (c *FragmentCache) fetchFragment(addr Address, id string) Result {
	partial := addr.partial()
	primary, hasPrimary := c.fragments.lookup(partial, id)
	if hasPrimary && primary.Data != nil {
		return Result{Status: primary.Status, Timestamp: primary.Timestamp, Data: layering.Clone(primary.Data)}
	}

	var merged map[string]any
	var timestamp int64
	for _, name := range addr.fallbacks() {
		if name == partial {
			continue
		}
		entry, ok := c.fragments.lookup(name, id)
		if !ok {
			continue
		}
		record, ok := entry.Data.(map[string]any)
		if !ok {
			continue
		}
		if merged == nil {
			merged = map[string]any{}
			timestamp = entry.Timestamp
		} else if entry.Timestamp < timestamp {
			timestamp = entry.Timestamp
		}
		for key, value := range record {
			merged[key] = layering.Clone(value)
		}
	}
	if merged != nil {
		return Result{Status: StatusPartial, Timestamp: timestamp, Data: merged}
	}
	if hasPrimary {
		return Result{Status: primary.Status, Timestamp: primary.Timestamp}
	}
	return StaleResult()
}

func (c *FragmentCache) fetchQuery(addr Address) (Result, error) {
	entry, ok := c.queries.lookup(addr.partial(), addr.BasePath)
	if !ok {
		return StaleResult(), nil
	}
	result := Result{Status: entry.Status, Timestamp: entry.Timestamp}
	switch data := entry.Data.(type) {
	case nil:
	case IDList:
		items := make([]any, 0, len(data))
		for _, id := range data {
			item := c.fetchFragment(addr, id)
			if item.Data == nil {
				return Result{}, fmt.Errorf("%w: failure to find collection entry for `%s`", ErrMissingCollectionEntry, id)
			}
			items = append(items, item.Data)
		}
		result.Data = items
	case IDRef:
		item := c.fetchFragment(addr, string(data))
		if item.Data == nil {
			return Result{}, fmt.Errorf("%w: failure to find collection entry for `%s`", ErrMissingCollectionEntry, string(data))
		}
		result.Data = item.Data
	default:
		result.Data = layering.Clone(data)
	}
	return result, nil
}

// Touch merges bookkeeping fields into the addressed entry, creating it when
// absent. Data is never modified.
func (c *FragmentCache) Touch(addr Address, patch Patch) {
	if patch.IsZero() {
		return
	}
	var entry *Entry
	switch {
	case addr.ID != "":
		entry = c.fragments.ensure(addr.partial(), addr.ID)
	case addr.BasePath != "":
		entry = c.queries.ensure(addr.partial(), addr.BasePath)
	default:
		return
	}
	if patch.Status != "" {
		entry.Status = patch.Status
	}
	if patch.Timestamp != nil {
		entry.Timestamp = *patch.Timestamp
	}
}

// Update writes data into the addressed slots and stamps them with the
// current time.
//
// A nil data update keeps existing data: the id branch marks the fragment
// STALE, the query branch keeps the supplied status.
func (c *FragmentCache) Update(addr Address, data any, status Status) error {
	now := c.now()
	partial := addr.partial()

	if data == nil {
		switch {
		case addr.ID != "":
			entry := c.fragments.ensure(partial, addr.ID)
			entry.Status = StatusStale
			entry.Timestamp = now
		case addr.BasePath != "":
			entry := c.queries.ensure(partial, addr.BasePath)
			entry.Status = status
			entry.Timestamp = now
		}
		return nil
	}

	if addr.ID != "" {
		record, ok := data.(map[string]any)
		if !ok {
			if addr.BasePath == "" {
				return fmt.Errorf("%w: resource %q expects a record, got %T", ErrTypeMismatch, addr.ID, data)
			}
			c.writeQuery(partial, addr.BasePath, layering.Clone(data), status, now)
			return nil
		}
		c.writeFragment(partial, addr.ID, record, status, now, addr.CacheStrategy)
		if addr.BasePath != "" {
			c.writeQuery(partial, addr.BasePath, IDRef(addr.ID), status, now)
		}
		return nil
	}

	if list, ok := asList(data); ok {
		ids := make(IDList, 0, len(list))
		records := make([]map[string]any, 0, len(list))
		for i, item := range list {
			record, ok := item.(map[string]any)
			if !ok {
				return fmt.Errorf("%w: collection item %d is %T, expected a record", ErrTypeMismatch, i, item)
			}
			id, ok := RecordID(record)
			if !ok {
				return fmt.Errorf("%w: collection item %d has no id", ErrMissingIdentity, i)
			}
			ids = append(ids, id)
			records = append(records, record)
		}
		for i, record := range records {
			c.writeFragment(partial, ids[i], record, status, now, addr.CacheStrategy)
		}
		if addr.BasePath == "" {
			return nil
		}
		if addr.CacheStrategy == StrategyMerge {
			if existing, ok := c.queries.lookup(partial, addr.BasePath); ok {
				if previous, ok := existing.Data.(IDList); ok {
					ids = unionIDs(previous, ids)
				}
			}
		}
		c.writeQuery(partial, addr.BasePath, unionIDs(nil, ids), status, now)
		return nil
	}

	if record, ok := data.(map[string]any); ok {
		if id, ok := RecordID(record); ok {
			c.writeFragment(partial, id, record, status, now, addr.CacheStrategy)
			if addr.BasePath != "" {
				c.writeQuery(partial, addr.BasePath, IDRef(id), status, now)
			}
			return nil
		}
	}

	if addr.BasePath == "" {
		return fmt.Errorf("%w: cannot store %T without an id or base path", ErrMissingIdentity, data)
	}
	c.writeQuery(partial, addr.BasePath, layering.Clone(data), status, now)
	return nil
}

func (c *FragmentCache) writeFragment(partial, id string, record map[string]any, status Status, now int64, strategy Strategy) {
	entry := c.fragments.ensure(partial, id)
	if existing, ok := entry.Data.(map[string]any); ok && strategy == StrategyMerge {
		for key, value := range record {
			existing[key] = layering.Clone(value)
		}
	} else {
		entry.Data = layering.Clone(record)
	}
	entry.Status = status
	entry.Timestamp = now
}

func (c *FragmentCache) writeQuery(partial, basePath string, data any, status Status, now int64) {
	entry := c.queries.ensure(partial, basePath)
	entry.Data = data
	entry.Status = status
	entry.Timestamp = now
}

// Invalidate marks entries STALE with the stale timestamp. A nil addr
// invalidates everything. An id address invalidates that id in every partial
// plus every query referencing it or matching addr.BasePath.
func (c *FragmentCache) Invalidate(addr *Address, opts InvalidateOptions) {
	mark := func(_ string, entry *Entry) {
		entry.Status = StatusStale
		entry.Timestamp = TimestampStale
		if opts.Clear {
			entry.Data = nil
		}
	}

	if addr == nil {
		if !opts.NoFragments {
			c.fragments.scan(mark)
		}
		if !opts.NoQueries {
			c.queries.scan(mark)
		}
		return
	}

	if addr.ID != "" {
		if !opts.NoFragments {
			c.fragments.each(addr.ID, mark)
		}
		if !opts.NoQueries {
			c.queries.scan(func(basePath string, entry *Entry) {
				if references(entry.Data, addr.ID) || (addr.BasePath != "" && basePath == addr.BasePath) {
					mark(basePath, entry)
				}
			})
		}
		return
	}

	if addr.BasePath != "" && !opts.NoQueries {
		c.queries.each(addr.BasePath, mark)
	}
}

// Destroy tombstones the addressed entry. Destroying by id tombstones the id in
// every partial and splices it out of every query.
func (c *FragmentCache) Destroy(addr Address) {
	now := c.now()
	tombstone := func(_ string, entry *Entry) {
		entry.Data = nil
		entry.Timestamp = now
	}

	switch {
	case addr.ID != "":
		c.fragments.ensure(addr.partial(), addr.ID)
		c.fragments.each(addr.ID, tombstone)
		c.queries.scan(func(_ string, entry *Entry) {
			switch data := entry.Data.(type) {
			case IDList:
				entry.Data = removeID(data, addr.ID)
			case IDRef:
				if string(data) == addr.ID {
					entry.Data = nil
				}
			}
		})
	case addr.BasePath != "":
		tombstone(addr.BasePath, c.queries.ensure(addr.partial(), addr.BasePath))
	}
}

// Snapshot reports entry counts per partial.
func (c *FragmentCache) Snapshot() Snapshot {
	out := Snapshot{Fragments: map[string]int{}, Queries: map[string]int{}}
	for partial, table := range c.fragments {
		out.Fragments[partial] = table.Len()
	}
	for partial, table := range c.queries {
		out.Queries[partial] = table.Len()
	}
	return out
}

func (idx index) lookup(partial, key string) (*Entry, bool) {
	table, ok := idx[partial]
	if !ok {
		return nil, false
	}
	return table.Get(key)
}

func (idx index) ensure(partial, key string) *Entry {
	table, ok := idx[partial]
	if !ok {
		table = btree.NewMap[string, *Entry](0)
		idx[partial] = table
	}
	if entry, ok := table.Get(key); ok {
		return entry
	}
	entry := &Entry{Status: StatusStale, Timestamp: TimestampStale}
	table.Set(key, entry)
	return entry
}

// each visits key in every partial, in partial order.
func (idx index) each(key string, fn func(string, *Entry)) {
	for _, partial := range slices.Sorted(maps.Keys(idx)) {
		if entry, ok := idx[partial].Get(key); ok {
			fn(key, entry)
		}
	}
}

// scan visits every entry, in partial then key order.
func (idx index) scan(fn func(string, *Entry)) {
	for _, partial := range slices.Sorted(maps.Keys(idx)) {
		idx[partial].Scan(func(key string, entry *Entry) bool {
			fn(key, entry)
			return true
		})
	}
}

func references(data any, id string) bool {
	switch typed := data.(type) {
	case IDList:
		return slices.Contains(typed, id)
	case IDRef:
		return string(typed) == id
	default:
		return false
	}
}

func removeID(ids IDList, id string) IDList {
	out := make(IDList, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

func unionIDs(existing, incoming IDList) IDList {
	out := make(IDList, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, list := range []IDList{existing, incoming} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

func asList(data any) ([]any, bool) {
	switch typed := data.(type) {
	case []any:
		return typed, true
	case []map[string]any:
		out := make([]any, len(typed))
		for i, record := range typed {
			out[i] = record
		}
		return out, true
	default:
		return nil, false
	}
}

// RecordID returns the stringified "id" field of record.
func RecordID(record map[string]any) (string, bool) {
	return IDString(record["id"])
}

// IDString stringifies an id value. Nil and empty values report false.
func IDString(value any) (string, bool) {
	var out string
	switch typed := value.(type) {
	case nil:
		return "", false
	case string:
		out = typed
	case json.Number:
		out = typed.String()
	case float64:
		out = strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		out = strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case int:
		out = strconv.Itoa(typed)
	case int64:
		out = strconv.FormatInt(typed, 10)
	case int32:
		out = strconv.FormatInt(int64(typed), 10)
	case uint:
		out = strconv.FormatUint(uint64(typed), 10)
	case uint64:
		out = strconv.FormatUint(typed, 10)
	case fmt.Stringer:
		out = typed.String()
	default:
		out = fmt.Sprint(typed)
	}
	return out, out != ""
}
