// Package parse turns raw response payloads into cache-ready entities.
package parse

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/goliatone/go-restcache/cache"
)

// Reserved record keys carrying type metadata.
const (
	KeyType    = "_type"
	KeyPartial = "_partial"
)

// ErrInvalidPayload indicates a response that cannot be turned into entities.
var ErrInvalidPayload = errors.New("parse: invalid payload")

// Target names the type and partial the request addressed.
type Target struct {
	Type    string
	Partial string
}

// Entity is data tagged with the type and partial it belongs to.
type Entity struct {
	Type    string
	Partial string
	Data    any
}

// Result holds the primary entity plus records of other types found in the
// payload.
type Result struct {
	Primary Entity
	Related []Entity
}

// Parser converts response data for target.
type Parser interface {
	Parse(data any, target Target) (Result, error)
}

// Func adapts a plain function to Parser.
type Func func(data any, target Target) (Result, error)

// Parse calls fn.
func (fn Func) Parse(data any, target Target) (Result, error) {
	return fn(data, target)
}

// Nested parses payloads whose records carry `_type` and `_partial` inline.
// Reserved keys are stripped at every depth. Nested records with a `_type`
// and an id are also reported as related entities of that type.
type Nested struct{}

// Parse implements Parser.
func (Nested) Parse(data any, target Target) (Result, error) {
	n := &normalizer{}
	primary := Entity{Type: target.Type, Partial: target.Partial}

	switch value := data.(type) {
	case map[string]any:
		if typ, partial := tags(value); typ != "" || partial != "" {
			primary.Type = firstNonEmpty(typ, primary.Type)
			primary.Partial = firstNonEmpty(partial, primary.Partial)
		}
		primary.Data = n.record(value, false)
	case []any:
		items := make([]any, len(value))
		for i, item := range value {
			record, ok := item.(map[string]any)
			if !ok {
				items[i] = n.value(item)
				continue
			}
			if i == 0 {
				typ, partial := tags(record)
				primary.Type = firstNonEmpty(typ, primary.Type)
				primary.Partial = firstNonEmpty(partial, primary.Partial)
			}
			items[i] = n.record(record, false)
		}
		primary.Data = items
	default:
		primary.Data = data
	}

	if primary.Type == "" {
		return Result{}, fmt.Errorf("%w: no type for response", ErrInvalidPayload)
	}
	return Result{Primary: primary, Related: n.related}, nil
}

type normalizer struct {
	related []Entity
}

func (n *normalizer) record(record map[string]any, lift bool) map[string]any {
	out := make(map[string]any, len(record))
	for _, key := range slices.Sorted(maps.Keys(record)) {
		if key == KeyType || key == KeyPartial {
			continue
		}
		out[key] = n.value(record[key])
	}
	if lift {
		if typ, partial := tags(record); typ != "" {
			if _, ok := cache.RecordID(out); ok {
				n.related = append(n.related, Entity{Type: typ, Partial: partial, Data: out})
			}
		}
	}
	return out
}

func (n *normalizer) value(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return n.record(v, true)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = n.value(item)
		}
		return out
	default:
		return value
	}
}

func tags(record map[string]any) (string, string) {
	typ, _ := record[KeyType].(string)
	partial, _ := record[KeyPartial].(string)
	return strings.TrimSpace(typ), strings.TrimSpace(partial)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
