package cache

import "strings"

// Status describes how complete a cached entry is.
type Status string

const (
	// StatusSuccess marks data confirmed by the server.
	StatusSuccess Status = "SUCCESS"
	// StatusComplete marks data confirmed by the server as a full payload.
	StatusComplete Status = "COMPLETE"
	// StatusPartial marks a view assembled from fallback fragments.
	StatusPartial Status = "PARTIAL"
	// StatusStale marks data that must be refreshed before it is trusted.
	StatusStale Status = "STALE"
)

const (
	// TimestampStale is the sentinel for "never successfully loaded".
	TimestampStale int64 = -1
	// TimestampLoading is the sentinel for "request in flight".
	TimestampLoading int64 = 0
)

// DefaultPartial names the fragment used when a descriptor does not ask for
// a specific partial.
const DefaultPartial = "full"

// Strategy controls how updates combine with data already in the cache.
type Strategy string

const (
	StrategyReplace Strategy = "replace"
	StrategyMerge   Strategy = "merge"
)

// ParseStrategy converts a string into a Strategy. Unknown values report false.
func ParseStrategy(value string) (Strategy, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "replace":
		return StrategyReplace, true
	case "merge":
		return StrategyMerge, true
	default:
		return "", false
	}
}

// Address locates cache slots. ID addresses the fragment table, BasePath the
// query table. Both are scoped by Partial.
type Address struct {
	ID            string
	BasePath      string
	Partial       string
	Fragments     []string
	CacheStrategy Strategy
}

func (a Address) partial() string {
	if a.Partial == "" {
		return DefaultPartial
	}
	return a.Partial
}

// fallbacks lists the partials consulted when the addressed fragment has no
// data: the declared fragments followed by the default partial.
func (a Address) fallbacks() []string {
	out := make([]string, 0, len(a.Fragments)+1)
	seen := map[string]struct{}{}
	for _, name := range append(append([]string{}, a.Fragments...), DefaultPartial) {
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// Entry is one cache slot. A present entry with nil Data is a tombstone.
type Entry struct {
	Status    Status
	Timestamp int64
	Data      any
}

// IDList is the query payload of a collection: ordered ids into the fragment
// table.
type IDList []string

// IDRef is the query payload of a singular resource stored in the fragment
// table.
type IDRef string

// Result is the immutable snapshot returned by reads.
type Result struct {
	Status    Status
	Timestamp int64
	Data      any
}

// StaleResult is the zero read: nothing known about the slot.
func StaleResult() Result {
	return Result{Status: StatusStale, Timestamp: TimestampStale}
}

// Loading reports whether a request for the slot is in flight.
func (r Result) Loading() bool {
	return r.Timestamp == TimestampLoading
}

// Stale reports whether the slot was never loaded or was invalidated.
func (r Result) Stale() bool {
	return r.Timestamp < TimestampLoading
}

// Patch carries bookkeeping fields merged by Touch. A zero Patch is a no-op.
type Patch struct {
	Status    Status
	Timestamp *int64
}

// IsZero reports whether the patch carries no fields.
func (p Patch) IsZero() bool {
	return p.Status == "" && p.Timestamp == nil
}

// At returns a patch that sets the timestamp to ts.
func At(ts int64) *int64 {
	return &ts
}

// InvalidateOptions scopes Invalidate.
type InvalidateOptions struct {
	// Clear also drops cached data.
	Clear bool
	// NoQueries leaves query entries untouched.
	NoQueries bool
	// NoFragments leaves fragment entries untouched.
	NoFragments bool
}

// Snapshot reports the number of entries per partial for diagnostics.
type Snapshot struct {
	Fragments map[string]int
	Queries   map[string]int
}
