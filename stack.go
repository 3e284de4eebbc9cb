package restcache

import (
	"fmt"
	"maps"
	"strings"

	"github.com/goliatone/go-restcache/cache"
)

// Stack is the ordered list of entries a descriptor is resolved from. Entries
// are ResourceStore values, *Definition, Path, Parameters, QueryParameters,
// Options and Payload (or plain map[string]any payloads).
type Stack []any

// Path is a literal URL segment. Modifier paths are appended to the request
// URL only and never become part of the cache key.
type Path struct {
	Segment  string
	Modifier bool
}

// NewPath validates segment as a non-empty path.
func NewPath(segment string) (Path, error) {
	trimmed := strings.Trim(strings.TrimSpace(segment), "/")
	if trimmed == "" {
		return Path{}, fmt.Errorf("%w: path must be a non-empty string", ErrInvalidArgument)
	}
	return Path{Segment: trimmed}, nil
}

// NewModifier validates segment as a request-only path suffix.
func NewModifier(segment string) (Path, error) {
	p, err := NewPath(segment)
	if err != nil {
		return Path{}, err
	}
	p.Modifier = true
	return p, nil
}

// Parameters fill URI placeholders and resolve the resource id.
type Parameters map[string]any

// QueryParameters are encoded as the query string of GET requests.
type QueryParameters map[string]any

// Payload is the request body of mutations.
type Payload map[string]any

// NewParameters validates value as a mapping.
func NewParameters(value any) (Parameters, error) {
	m, err := asMapping("parameters", value)
	return Parameters(m), err
}

// NewQueryParameters validates value as a mapping.
func NewQueryParameters(value any) (QueryParameters, error) {
	m, err := asMapping("query parameters", value)
	return QueryParameters(m), err
}

// NewPayload validates value as a mapping.
func NewPayload(value any) (Payload, error) {
	m, err := asMapping("payload", value)
	return Payload(m), err
}

// Options tune how a descriptor interacts with the cache.
type Options struct {
	CacheStrategy cache.Strategy
}

// NewOptions validates raw and converts it into Options.
func NewOptions(raw map[string]any) (Options, error) {
	var out Options
	if raw == nil {
		return out, fmt.Errorf("%w: options must be a mapping", ErrInvalidArgument)
	}
	for key, value := range raw {
		switch key {
		case "cacheStrategy":
			s, err := stringField(key, value)
			if err != nil {
				return Options{}, err
			}
			strategy, ok := cache.ParseStrategy(s)
			if !ok {
				return Options{}, fmt.Errorf("%w: unknown cache strategy %q", ErrInvalidArgument, s)
			}
			out.CacheStrategy = strategy
		default:
			return Options{}, fmt.Errorf("%w: unknown option %q", ErrInvalidArgument, key)
		}
	}
	return out, nil
}

func asMapping(label string, value any) (map[string]any, error) {
	switch typed := value.(type) {
	case map[string]any:
		if typed == nil {
			break
		}
		return maps.Clone(typed), nil
	case map[string]string:
		if typed == nil {
			break
		}
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = v
		}
		return out, nil
	case Parameters:
		return maps.Clone(map[string]any(typed)), nil
	case QueryParameters:
		return maps.Clone(map[string]any(typed)), nil
	case Payload:
		return maps.Clone(map[string]any(typed)), nil
	}
	return nil, fmt.Errorf("%w: %s must be a mapping, got %T", ErrInvalidArgument, label, value)
}
