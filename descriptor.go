package restcache

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"reflect"
	"slices"
	"strings"

	"github.com/goliatone/go-restcache/cache"
	"github.com/goliatone/go-restcache/layering"
)

// Action names what a descriptor is resolved for.
type Action string

const (
	ActionGet     Action = "GET"
	ActionSave    Action = "SAVE"
	ActionDelete  Action = "DELETE"
	ActionInspect Action = "inspect"
)

// Descriptor is the resolved request and cache address of one schema
// traversal. Event is the id when present, otherwise BasePath.
type Descriptor struct {
	Action        Action
	Event         string
	Classify      Classification
	Partial       string
	ID            string
	Params        map[string]any
	Query         map[string]any
	Fragments     []string
	Payload       map[string]any
	Store         ResourceStore
	Type          string
	CacheStrategy cache.Strategy
	BasePath      string
	Path          string
}

// Address returns the cache address of the descriptor.
func (d *Descriptor) Address() cache.Address {
	return cache.Address{
		ID:            d.ID,
		BasePath:      d.BasePath,
		Partial:       d.Partial,
		Fragments:     slices.Clone(d.Fragments),
		CacheStrategy: d.CacheStrategy,
	}
}

// Method maps the action to an HTTP verb. SAVE is a POST without an id and a
// PUT with one.
func (d *Descriptor) Method() string {
	switch d.Action {
	case ActionSave:
		if d.ID != "" {
			return http.MethodPut
		}
		return http.MethodPost
	case ActionDelete:
		return http.MethodDelete
	default:
		return http.MethodGet
	}
}

// ResolveOption configures Resolve.
type ResolveOption func(*resolveConfig)

type resolveConfig struct {
	hostname string
	lenient  bool
}

// WithHostname prefixes resolved paths with hostname.
func WithHostname(hostname string) ResolveOption {
	return func(cfg *resolveConfig) {
		cfg.hostname = strings.TrimRight(hostname, "/")
	}
}

// WithLenientTemplates keeps unresolved `:name` placeholders instead of
// failing.
func WithLenientTemplates() ResolveOption {
	return func(cfg *resolveConfig) {
		cfg.lenient = true
	}
}

type appendPath struct {
	segment  string
	modifier bool
}

// Resolve reduces stack into a descriptor for action. The first pass
// accumulates scope, parameters, query parameters, options and payload; the
// second fills URI templates with the resolved parameters.
func Resolve(action Action, stack Stack, opts ...ResolveOption) (*Descriptor, error) {
	cfg := resolveConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	d := &Descriptor{
		Action:        action,
		Classify:      ClassifyCollection,
		Params:        map[string]any{},
		Query:         map[string]any{},
		Payload:       map[string]any{},
		CacheStrategy: cache.StrategyReplace,
	}
	stack = normalizeStack(stack)
	aliases := map[string]string{}
	var appends []appendPath
	var terminal *Definition

	for i, item := range stack {
		switch typed := item.(type) {
		case nil:
			return nil, &StackError{Index: i, Item: item, Reason: "nil entry"}
		case *Definition:
			if typed == nil {
				return nil, &StackError{Index: i, Item: item, Reason: "nil definition"}
			}
			maps.Copy(aliases, typed.ParamMap)
			if typed.Partial != "" {
				d.Partial = typed.Partial
			}
			if typed.Fragments != nil {
				d.Fragments = slices.Clone(typed.Fragments)
			}
			if typed.Classify != "" {
				d.Classify = typed.Classify
			}
			terminal = typed
		case Options:
			if typed.CacheStrategy != "" {
				d.CacheStrategy = typed.CacheStrategy
			}
		case Parameters:
			maps.Copy(d.Params, typed)
		case QueryParameters:
			maps.Copy(d.Query, typed)
		case Path:
			if typed.Segment == "" {
				return nil, &StackError{Index: i, Item: item, Reason: "empty path"}
			}
			appends = append(appends, appendPath{segment: typed.Segment, modifier: typed.Modifier})
		case Payload:
			d.Payload = layering.MergeRecords(typed, d.Payload)
		case map[string]any:
			d.Payload = layering.MergeRecords(typed, d.Payload)
		case ResourceStore:
			if isNil(typed) {
				return nil, &StackError{Index: i, Item: item, Reason: "nil store"}
			}
			d.Store = typed
			d.Type = typed.Type()
			d.Classify = ClassifyCollection
			d.Partial = ""
			d.Fragments = nil
		default:
			return nil, &StackError{Index: i, Item: item, Reason: "unsupported entry"}
		}
	}

	var segments []string
	lastKey := ""
	for _, item := range stack {
		def, ok := item.(*Definition)
		if !ok || (def.URI == "" && def.ParamID == "") {
			continue
		}
		template := def.URI
		if template == "" {
			template = ":" + def.ParamID
		}
		filled, key, err := fillTemplate(template, d.Params, aliases, cfg.lenient)
		if err != nil {
			return nil, err
		}
		// Only a trailing placeholder names the resource; a parent placeholder
		// such as projects/:projectId/tasks does not.
		lastKey = ""
		if endsWithPlaceholder(template) {
			lastKey = key
		}
		segments = append(segments, filled...)
	}

	var modifiers []string
	for _, p := range appends {
		if p.modifier {
			modifiers = append(modifiers, p.segment)
			continue
		}
		segments = append(segments, p.segment)
	}

	if len(segments) > 0 {
		d.BasePath = cfg.hostname + "/" + strings.Join(segments, "/")
	}
	d.Path = d.BasePath
	if len(modifiers) > 0 {
		d.Path += "/" + strings.Join(modifiers, "/")
	}
	if action == ActionGet && len(segments) > 0 {
		if qs := encodeQuery(d.Query); qs != "" {
			d.BasePath += qs
			d.Path += qs
		}
	}

	idKey := lastKey
	if terminal != nil && terminal.ParamID != "" {
		idKey = terminal.ParamID
	}
	if idKey == "" {
		idKey = "id"
	}
	if value, ok := lookupParam(d.Params, aliases, idKey); ok {
		if id, ok := cache.IDString(value); ok {
			d.ID = id
		}
	}

	d.Event = d.ID
	if d.Event == "" {
		d.Event = d.BasePath
	}
	if d.Partial == "" {
		d.Partial = cache.DefaultPartial
	}
	return d, nil
}

func normalizeStack(stack Stack) Stack {
	out := make(Stack, len(stack))
	for i, item := range stack {
		if def, ok := item.(Definition); ok {
			out[i] = def.Clone()
			continue
		}
		out[i] = item
	}
	return out
}

// fillTemplate substitutes `:name` segments of template. It returns the
// filled segments and the last placeholder name it substituted.
func fillTemplate(template string, params map[string]any, aliases map[string]string, lenient bool) ([]string, string, error) {
	parts := strings.Split(strings.Trim(template, "/"), "/")
	out := make([]string, 0, len(parts))
	last := ""
	for _, part := range parts {
		if part == "" {
			continue
		}
		if !strings.HasPrefix(part, ":") {
			out = append(out, part)
			continue
		}
		name := part[1:]
		value, ok := lookupParam(params, aliases, name)
		text, hasText := "", false
		if ok {
			text, hasText = cache.IDString(value)
		}
		if !hasText {
			if lenient {
				out = append(out, part)
				continue
			}
			return nil, "", &TemplateError{Template: template, Placeholder: part, Params: dumpValue(params)}
		}
		out = append(out, url.PathEscape(text))
		last = name
	}
	return out, last, nil
}

func endsWithPlaceholder(template string) bool {
	trimmed := strings.Trim(template, "/")
	return strings.HasPrefix(trimmed[strings.LastIndex(trimmed, "/")+1:], ":")
}

func lookupParam(params map[string]any, aliases map[string]string, name string) (any, bool) {
	if alias, ok := aliases[name]; ok {
		if value, ok := params[alias]; ok {
			return value, true
		}
	}
	value, ok := params[name]
	return value, ok
}

// encodeQuery renders query as `?k=v&k[]=v` with sorted keys. Records are
// JSON encoded before escaping. Nil values are skipped.
func encodeQuery(query map[string]any) string {
	if len(query) == 0 {
		return ""
	}
	var pairs []string
	for _, key := range slices.Sorted(maps.Keys(query)) {
		value := query[key]
		if value == nil {
			continue
		}
		rv := reflect.ValueOf(value)
		if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
			for i := 0; i < rv.Len(); i++ {
				pairs = append(pairs, escape(key)+"[]="+escape(queryValue(rv.Index(i).Interface())))
			}
			continue
		}
		pairs = append(pairs, escape(key)+"="+escape(queryValue(value)))
	}
	if len(pairs) == 0 {
		return ""
	}
	return "?" + strings.Join(pairs, "&")
}

func queryValue(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case nil:
		return ""
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map, reflect.Struct, reflect.Slice, reflect.Array:
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprint(value)
		}
		return string(encoded)
	}
	return fmt.Sprint(value)
}

func escape(value string) string {
	return strings.ReplaceAll(url.QueryEscape(value), "+", "%20")
}
