package parse

import (
	"fmt"
	"maps"
	"slices"

	"github.com/ohler55/ojg/jp"
)

const (
	keyEmbedded = "_embedded"
	keyLinks    = "_links"
)

var embeddedPath = jp.MustParseString("$." + keyEmbedded)

// Embedded parses HAL-style payloads where collections are flattened under
// `_embedded`. The primary collection is selected by Path when set, otherwise
// by the target type, otherwise by the only embedded key. Remaining embedded
// collections become related entities typed by their key. Payloads without
// `_embedded` are parsed as Nested.
type Embedded struct {
	// Path is a JSONPath selecting the primary collection.
	Path string
}

// Parse implements Parser.
func (p Embedded) Parse(data any, target Target) (Result, error) {
	record, ok := data.(map[string]any)
	if !ok {
		return Nested{}.Parse(data, target)
	}
	embedded, ok := embeddedPath.First(record).(map[string]any)
	if !ok {
		return Nested{}.Parse(data, target)
	}

	primaryKey, primaryData, err := p.primary(record, embedded, target)
	if err != nil {
		return Result{}, err
	}

	var primary Result
	if primaryData != nil {
		primary, err = Nested{}.Parse(primaryData, target)
	} else {
		primary, err = Nested{}.Parse(stripHAL(record), target)
	}
	if err != nil {
		return Result{}, err
	}

	out := Result{Primary: primary.Primary, Related: primary.Related}
	for _, key := range slices.Sorted(maps.Keys(embedded)) {
		if key == primaryKey {
			continue
		}
		related, err := Nested{}.Parse(embedded[key], Target{Type: key})
		if err != nil {
			return Result{}, err
		}
		out.Related = append(out.Related, related.Primary)
		out.Related = append(out.Related, related.Related...)
	}
	return out, nil
}

func (p Embedded) primary(record, embedded map[string]any, target Target) (string, any, error) {
	if p.Path != "" {
		expr, err := jp.ParseString(p.Path)
		if err != nil {
			return "", nil, fmt.Errorf("%w: invalid jsonpath %q: %v", ErrInvalidPayload, p.Path, err)
		}
		matches := expr.Get(record)
		if len(matches) == 0 {
			return "", nil, fmt.Errorf("%w: jsonpath %q matched nothing", ErrInvalidPayload, p.Path)
		}
		key := ""
		if len(expr) > 0 {
			if child, ok := expr[len(expr)-1].(jp.Child); ok {
				key = string(child)
			}
		}
		return key, matches[0], nil
	}
	if value, ok := embedded[target.Type]; ok && target.Type != "" {
		return target.Type, value, nil
	}
	if len(embedded) == 1 {
		for key, value := range embedded {
			if _, ok := value.([]any); ok {
				return key, value, nil
			}
		}
	}
	return "", nil, nil
}

func stripHAL(record map[string]any) map[string]any {
	out := make(map[string]any, len(record))
	for key, value := range record {
		if key == keyEmbedded || key == keyLinks {
			continue
		}
		out[key] = value
	}
	return out
}
