package restcache

import (
	"fmt"

	"github.com/goliatone/go-restcache/cache"
	"github.com/goliatone/go-restcache/internal/hydrate"
)

// DecodeResult decodes the record of a cache read into T.
func DecodeResult[T any](d *Descriptor, res cache.Result) (T, error) {
	var zero T
	record, ok := res.Data.(map[string]any)
	if !ok {
		if res.Data == nil {
			return zero, fmt.Errorf("%w: %s", ErrNoData, describeTarget(d))
		}
		return zero, fmt.Errorf("%w: expected a record, got %T", cache.ErrTypeMismatch, res.Data)
	}
	return hydrate.NewDecoder[T]().Decode(hydrateContext(d, record), record)
}

// DecodeList decodes the records of a collection read into a slice of T.
func DecodeList[T any](d *Descriptor, res cache.Result) ([]T, error) {
	items, ok := res.Data.([]any)
	if !ok {
		if res.Data == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoData, describeTarget(d))
		}
		return nil, fmt.Errorf("%w: expected a collection, got %T", cache.ErrTypeMismatch, res.Data)
	}
	decoder := hydrate.NewDecoder[T]()
	out := make([]T, 0, len(items))
	for i, item := range items {
		record, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: collection item %d is %T", cache.ErrTypeMismatch, i, item)
		}
		value, err := decoder.Decode(hydrateContext(d, record), record)
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, nil
}

func hydrateContext(d *Descriptor, record map[string]any) hydrate.Context {
	ctx := hydrate.Context{}
	if d != nil {
		ctx.Type = d.Type
		ctx.Partial = d.Partial
	}
	ctx.ID, _ = cache.RecordID(record)
	return ctx
}

func describeTarget(d *Descriptor) string {
	if d == nil {
		return "<nil descriptor>"
	}
	if d.ID != "" {
		return d.Type + "/" + d.ID
	}
	return d.BasePath
}
