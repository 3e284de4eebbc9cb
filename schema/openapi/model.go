package openapi

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"
)

// schemaNode is the intermediate form of a JSON schema inferred from a
// sample value.
type schemaNode struct {
	Type       string
	Format     string
	Properties map[string]*schemaNode
	Required   []string
	Items      *schemaNode
	Nullable   bool
	Enum       []any
	Default    any
	Minimum    *float64
	Maximum    *float64
	MinLength  *int
	MaxLength  *int
	Pattern    string
}

func objectNode() *schemaNode {
	return &schemaNode{Type: "object", Properties: map[string]*schemaNode{}}
}

func (n *schemaNode) toMap() map[string]any {
	out := map[string]any{}
	if n.Type != "" {
		out["type"] = n.Type
	}
	if n.Format != "" {
		out["format"] = n.Format
	}
	if n.Nullable {
		out["nullable"] = true
	}
	if n.Default != nil {
		out["default"] = n.Default
	}
	if len(n.Enum) > 0 {
		out["enum"] = n.Enum
	}
	if n.Minimum != nil {
		out["minimum"] = *n.Minimum
	}
	if n.Maximum != nil {
		out["maximum"] = *n.Maximum
	}
	if n.MinLength != nil {
		out["minLength"] = *n.MinLength
	}
	if n.MaxLength != nil {
		out["maxLength"] = *n.MaxLength
	}
	if n.Pattern != "" {
		out["pattern"] = n.Pattern
	}
	if n.Type == "object" {
		props := make(map[string]any, len(n.Properties))
		for name, child := range n.Properties {
			props[name] = child.toMap()
		}
		out["properties"] = props
	}
	if len(n.Required) > 0 {
		out["required"] = slices.Sorted(slices.Values(n.Required))
	}
	if n.Items != nil {
		out["items"] = n.Items.toMap()
	}
	return out
}

// inferSchema builds the schema of sample. Struct types are walked through
// their fields so zero values still describe every property; loosely typed
// records are described by the values they hold.
func inferSchema(sample any) (*schemaNode, error) {
	b := &inferrer{active: map[reflect.Type]bool{}}
	rv := reflect.ValueOf(sample)
	if !rv.IsValid() {
		return objectNode(), nil
	}
	return b.infer(rv, rv.Type())
}

type inferrer struct {
	active map[reflect.Type]bool
}

var timeType = reflect.TypeOf(time.Time{})

func (b *inferrer) infer(rv reflect.Value, rt reflect.Type) (*schemaNode, error) {
	nullable := false
	for rt.Kind() == reflect.Pointer {
		nullable = true
		rt = rt.Elem()
		if rv.IsValid() {
			if rv.IsNil() {
				rv = reflect.Value{}
			} else {
				rv = rv.Elem()
			}
		}
	}

	node, err := b.inferKind(rv, rt)
	if err != nil {
		return nil, err
	}
	node.Nullable = nullable
	return node, nil
}

func (b *inferrer) inferKind(rv reflect.Value, rt reflect.Type) (*schemaNode, error) {
	if rt == timeType {
		return &schemaNode{Type: "string", Format: "date-time"}, nil
	}
	switch rt.Kind() {
	case reflect.Interface:
		if rv.IsValid() && !rv.IsNil() {
			return b.infer(rv.Elem(), rv.Elem().Type())
		}
		return &schemaNode{}, nil
	case reflect.Bool:
		return &schemaNode{Type: "boolean"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &schemaNode{Type: "integer"}, nil
	case reflect.Float32, reflect.Float64:
		return &schemaNode{Type: "number"}, nil
	case reflect.String:
		if rt.PkgPath() == "encoding/json" && rt.Name() == "Number" {
			return &schemaNode{Type: "number"}, nil
		}
		return &schemaNode{Type: "string"}, nil
	case reflect.Struct:
		return b.inferStruct(rv, rt)
	case reflect.Map:
		return b.inferMap(rv, rt)
	case reflect.Slice, reflect.Array:
		if rt.Elem().Kind() == reflect.Uint8 {
			return &schemaNode{Type: "string", Format: "byte"}, nil
		}
		items, err := b.inferItems(rv, rt)
		if err != nil {
			return nil, err
		}
		return &schemaNode{Type: "array", Items: items}, nil
	default:
		return nil, fmt.Errorf("openapi: %s values cannot be described", rt)
	}
}

func (b *inferrer) inferStruct(rv reflect.Value, rt reflect.Type) (*schemaNode, error) {
	if b.active[rt] {
		return objectNode(), nil
	}
	b.active[rt] = true
	defer delete(b.active, rt)

	if !rv.IsValid() {
		rv = reflect.Zero(rt)
	}
	node := objectNode()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name, omitEmpty, skip := jsonName(field)
		if skip {
			continue
		}
		child, err := b.infer(rv.Field(i), field.Type)
		if err != nil {
			return nil, err
		}
		if err := applyTags(child, field); err != nil {
			return nil, err
		}
		node.Properties[name] = child
		if !omitEmpty && field.Type.Kind() != reflect.Pointer {
			node.Required = append(node.Required, name)
		}
	}
	return node, nil
}

func (b *inferrer) inferMap(rv reflect.Value, rt reflect.Type) (*schemaNode, error) {
	if rt.Key().Kind() != reflect.String {
		return nil, fmt.Errorf("openapi: map key type %s unsupported", rt.Key())
	}
	node := objectNode()
	if !rv.IsValid() {
		return node, nil
	}
	iter := rv.MapRange()
	for iter.Next() {
		value := iter.Value()
		child, err := b.infer(value, value.Type())
		if err != nil {
			return nil, err
		}
		node.Properties[iter.Key().String()] = child
	}
	return node, nil
}

// inferItems describes array items by their first element, falling back to
// the element type.
func (b *inferrer) inferItems(rv reflect.Value, rt reflect.Type) (*schemaNode, error) {
	if rv.IsValid() && rv.Len() > 0 {
		first := rv.Index(0)
		return b.infer(first, first.Type())
	}
	return b.infer(reflect.Value{}, rt.Elem())
}

func jsonName(field reflect.StructField) (name string, omitEmpty bool, skip bool) {
	tag, ok := field.Tag.Lookup("json")
	if !ok {
		return field.Name, false, false
	}
	name, rest, _ := strings.Cut(tag, ",")
	if name == "-" && rest == "" {
		return "", false, true
	}
	if name == "" {
		name = field.Name
	}
	for _, opt := range strings.Split(rest, ",") {
		if opt == "omitempty" || opt == "omitzero" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

// applyTags copies constraint tags (format, default, enum, minimum, maximum,
// minLength, maxLength, pattern) onto node.
func applyTags(node *schemaNode, field reflect.StructField) error {
	base := field.Type
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	tag := field.Tag

	if format := tag.Get("format"); format != "" {
		node.Format = format
	}
	if raw := tag.Get("default"); raw != "" {
		value, err := parseScalar(base, raw)
		if err != nil {
			return fmt.Errorf("openapi: default of %s: %w", field.Name, err)
		}
		node.Default = value
	}
	if raw := tag.Get("enum"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			value, err := parseScalar(base, part)
			if err != nil {
				return fmt.Errorf("openapi: enum of %s: %w", field.Name, err)
			}
			node.Enum = append(node.Enum, value)
		}
	}
	for key, target := range map[string]**float64{"minimum": &node.Minimum, "maximum": &node.Maximum} {
		raw := tag.Get(key)
		if raw == "" {
			continue
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("openapi: %s of %s: %w", key, field.Name, err)
		}
		*target = &value
	}
	for key, target := range map[string]**int{"minLength": &node.MinLength, "maxLength": &node.MaxLength} {
		raw := tag.Get(key)
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("openapi: %s of %s: %w", key, field.Name, err)
		}
		*target = &value
	}
	if pattern := tag.Get("pattern"); pattern != "" {
		node.Pattern = pattern
	}
	return nil
}

func parseScalar(t reflect.Type, raw string) (any, error) {
	switch t.Kind() {
	case reflect.Bool:
		return strconv.ParseBool(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.ParseInt(raw, 10, t.Bits())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.ParseUint(raw, 10, t.Bits())
	case reflect.Float32, reflect.Float64:
		return strconv.ParseFloat(raw, t.Bits())
	default:
		return raw, nil
	}
}
