package restcache

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

var (
	// ErrInvalidArgument reports a malformed definition, path, parameter or
	// option value.
	ErrInvalidArgument = errors.New("restcache: invalid argument")
	// ErrUnresolvedParam reports a URI placeholder with no matching parameter.
	ErrUnresolvedParam = errors.New("restcache: unresolved parameter")
	// ErrMalformedStack reports a nil or unknown entry in a descriptor stack.
	ErrMalformedStack = errors.New("restcache: malformed stack")
	// ErrLeafName reports a leaf added without a name or identifier.
	ErrLeafName = errors.New("restcache: leaf requires a name")
	// ErrCyclicSchema reports a node reachable from itself.
	ErrCyclicSchema = errors.New("restcache: cyclic schema")
	// ErrNoStore reports a descriptor without an owning store or type.
	ErrNoStore = errors.New("restcache: descriptor has no store")
	// ErrNoTransport reports a network operation on a client without transport.
	ErrNoTransport = errors.New("restcache: transport not configured")
	// ErrNoData reports a decode of an empty cache read.
	ErrNoData = errors.New("restcache: no data")
)

// TemplateError reports a URI placeholder that could not be filled.
type TemplateError struct {
	Template    string
	Placeholder string
	Params      string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("restcache: cannot fill %q in %q with params %s", e.Placeholder, e.Template, e.Params)
}

func (e *TemplateError) Unwrap() error {
	return ErrUnresolvedParam
}

// StackError reports a descriptor stack entry the resolver cannot use.
type StackError struct {
	Index  int
	Item   any
	Reason string
}

func (e *StackError) Error() string {
	return fmt.Sprintf("restcache: stack entry %d (%T): %s", e.Index, e.Item, e.Reason)
}

func (e *StackError) Unwrap() error {
	return ErrMalformedStack
}

// NetworkError wraps a transport failure with the request it belongs to.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("restcache: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

const dumpDepth = 4

// dumpValue renders value for diagnostics. Nesting beyond dumpDepth is
// elided and reference cycles are printed as [Circular].
func dumpValue(value any) string {
	var b strings.Builder
	writeDump(&b, reflect.ValueOf(value), 0, map[uintptr]bool{})
	return b.String()
}

func writeDump(b *strings.Builder, v reflect.Value, depth int, seen map[uintptr]bool) {
	if !v.IsValid() {
		b.WriteString("null")
		return
	}
	if v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			b.WriteString("null")
			return
		}
		if v.Kind() == reflect.Pointer {
			ptr := v.Pointer()
			if seen[ptr] {
				b.WriteString("[Circular]")
				return
			}
			seen[ptr] = true
			defer delete(seen, ptr)
		}
		writeDump(b, v.Elem(), depth, seen)
		return
	}

	switch v.Kind() {
	case reflect.Map, reflect.Slice:
		if v.IsNil() {
			b.WriteString("null")
			return
		}
		ptr := v.Pointer()
		if seen[ptr] {
			b.WriteString("[Circular]")
			return
		}
		if depth >= dumpDepth {
			b.WriteString("[...]")
			return
		}
		seen[ptr] = true
		defer delete(seen, ptr)
		if v.Kind() == reflect.Map {
			writeMap(b, v, depth, seen)
		} else {
			writeSlice(b, v, depth, seen)
		}
	case reflect.Array:
		writeSlice(b, v, depth, seen)
	case reflect.String:
		fmt.Fprintf(b, "%q", v.String())
	default:
		fmt.Fprintf(b, "%v", v.Interface())
	}
}

func writeMap(b *strings.Builder, v reflect.Value, depth int, seen map[uintptr]bool) {
	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	b.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(b, "%q:", fmt.Sprint(key.Interface()))
		writeDump(b, v.MapIndex(key), depth+1, seen)
	}
	b.WriteByte('}')
}

func writeSlice(b *strings.Builder, v reflect.Value, depth int, seen map[uintptr]bool) {
	b.WriteByte('[')
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		writeDump(b, v.Index(i), depth+1, seen)
	}
	b.WriteByte(']')
}
