// Package layering deep-copies and merges loosely typed values such as
// request payloads and cached records.
package layering

import "reflect"

// Clone returns a deep copy of value. Maps, slices, pointers and interfaces are
// copied recursively so the result shares no mutable state with value.
func Clone[T any](value T) T {
	var zero T
	cloned := cloneValue(reflect.ValueOf(value))
	if !cloned.IsValid() {
		return zero
	}
	out, ok := cloned.Interface().(T)
	if !ok {
		return zero
	}
	return out
}

// MergeRecords merges records ordered from strongest to weakest. Nil records
// are skipped and the result is always a fresh map. Nested records merge key
// by key; any other value, lists included, is taken whole from the strongest
// record that sets it.
func MergeRecords(records ...map[string]any) map[string]any {
	out := map[string]any{}
	for i := len(records) - 1; i >= 0; i-- {
		mergeInto(out, records[i])
	}
	return out
}

// mergeInto overlays src onto dst. dst is owned by the caller; src is copied.
func mergeInto(dst, src map[string]any) {
	for key, value := range src {
		nested, ok := value.(map[string]any)
		if !ok || nested == nil {
			dst[key] = Clone(value)
			continue
		}
		existing, ok := dst[key].(map[string]any)
		if !ok || existing == nil {
			dst[key] = Clone(nested)
			continue
		}
		mergeInto(existing, nested)
	}
}

func cloneValue(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.New(v.Type().Elem())
		clone.Elem().Set(cloneValue(v.Elem()))
		return clone
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		elem := cloneValue(v.Elem())
		if !elem.IsValid() {
			return reflect.Zero(v.Type())
		}
		return elem.Convert(v.Type())
	case reflect.Struct:
		clone := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			field := clone.Field(i)
			if !field.CanSet() {
				continue
			}
			field.Set(cloneValue(v.Field(i)))
		}
		return clone
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			clone.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return clone
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	case reflect.Array:
		clone := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	default:
		return reflect.ValueOf(v.Interface())
	}
}
