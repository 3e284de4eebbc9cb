package restcache

import (
	"fmt"
	"slices"
	"strings"

	"github.com/goliatone/go-restcache/cache"
	"github.com/goliatone/go-restcache/store"
)

// Classification tells collections apart from singular resources.
type Classification string

const (
	ClassifyCollection Classification = "collection"
	ClassifyResource   Classification = "resource"
)

// ParseClassification converts value into a Classification. Empty values
// default to a collection.
func ParseClassification(value string) (Classification, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(ClassifyCollection):
		return ClassifyCollection, nil
	case string(ClassifyResource):
		return ClassifyResource, nil
	default:
		return "", fmt.Errorf("%w: unknown classification %q", ErrInvalidArgument, value)
	}
}

// Definition is the metadata a schema node contributes to a descriptor.
// URI may hold `:name` placeholders; ParamID names the parameter carrying the
// resource id; ParamMap aliases placeholder names to parameter keys.
type Definition struct {
	URI       string
	ParamID   string
	ParamMap  map[string]string
	Partial   string
	Fragments []string
	Classify  Classification
}

var definitionKeys = []string{"uri", "paramId", "paramMap", "partial", "fragments", "classify"}

// DefinitionFromMap validates raw and converts it into a Definition. Unknown
// keys and wrongly typed values are rejected.
func DefinitionFromMap(raw map[string]any) (*Definition, error) {
	def := &Definition{}
	for key, value := range raw {
		var err error
		switch key {
		case "uri":
			def.URI, err = stringField(key, value)
		case "paramId":
			def.ParamID, err = stringField(key, value)
		case "partial":
			def.Partial, err = stringField(key, value)
		case "classify":
			var classify string
			if classify, err = stringField(key, value); err == nil {
				def.Classify, err = ParseClassification(classify)
			}
		case "fragments":
			def.Fragments, err = stringsField(key, value)
		case "paramMap":
			def.ParamMap, err = aliasField(key, value)
		default:
			err = fmt.Errorf("%w: unknown definition key %q (allowed: %s)", ErrInvalidArgument, key, strings.Join(definitionKeys, ", "))
		}
		if err != nil {
			return nil, err
		}
	}
	return def, nil
}

// Clone returns a deep copy of the definition.
func (d *Definition) Clone() *Definition {
	if d == nil {
		return nil
	}
	out := *d
	out.Fragments = slices.Clone(d.Fragments)
	if d.ParamMap != nil {
		out.ParamMap = make(map[string]string, len(d.ParamMap))
		for k, v := range d.ParamMap {
			out.ParamMap[k] = v
		}
	}
	return &out
}

func stringField(key string, value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidArgument, key, value)
	}
	return s, nil
}

func stringsField(key string, value any) ([]string, error) {
	switch typed := value.(type) {
	case []string:
		return slices.Clone(typed), nil
	case []any:
		out := make([]string, len(typed))
		for i, item := range typed {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s[%d] must be a string, got %T", ErrInvalidArgument, key, i, item)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s must be a list of strings, got %T", ErrInvalidArgument, key, value)
	}
}

func aliasField(key string, value any) (map[string]string, error) {
	switch typed := value.(type) {
	case map[string]string:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = v
		}
		return out, nil
	case map[string]any:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s.%s must be a string, got %T", ErrInvalidArgument, key, k, v)
			}
			out[k] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s must be a mapping, got %T", ErrInvalidArgument, key, value)
	}
}

// ResourceStore is the store a descriptor resolves to. *store.Store
// satisfies it.
type ResourceStore interface {
	Type() string
	FetchResource(addr cache.Address) (cache.Result, error)
	TouchResource(addr cache.Address, patch cache.Patch, noNotify bool)
	UpdateResource(addr cache.Address, data any, status cache.Status) error
	DestroyResource(addr cache.Address)
	Invalidate(addr *cache.Address, opts cache.InvalidateOptions)
	Subscribe(channel string, fn store.Listener) func()
}

var _ ResourceStore = (*store.Store)(nil)
