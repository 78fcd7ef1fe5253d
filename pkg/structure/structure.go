// Package structure contains type-related operations, such as turning values of
// type any into wire lists and documents, converting numbers and cloning wire
// values.
package structure

import (
	"iter"
	"math"
	"strings"
	"time"

	"github.com/goccy/go-reflect"
)

// TagName is the struct tag read when turning structs into documents.
const TagName = "godm"

// List returns the items of a slice or array of any element type. Strings and
// byte slices are not lists.
func List(obj any) ([]any, bool) {
	switch t := obj.(type) {
	case nil, string, []byte:
		return nil, false
	case []any:
		return t, true
	case []string:
		return fromSlice(t), true
	case []int:
		return fromSlice(t), true
	case []int64:
		return fromSlice(t), true
	case []float64:
		return fromSlice(t), true
	case []bool:
		return fromSlice(t), true
	case []map[string]any:
		return fromSlice(t), true
	case []time.Time:
		return fromSlice(t), true
	}
	v := reflect.ValueNoEscapeOf(obj)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
	default:
		return nil, false
	}
	res := make([]any, v.Len())
	for n := range v.Len() {
		res[n] = v.Index(n).Interface()
	}
	return res, true
}

func fromSlice[T any](s []T) []any {
	res := make([]any, len(s))
	for n, v := range s {
		res[n] = v
	}
	return res
}

// Seq returns an iterator over a list value, see [List].
func Seq(obj any) (iter.Seq[any], int, bool) {
	l, ok := List(obj)
	if !ok {
		return nil, 0, false
	}
	return func(yield func(any) bool) {
		for _, v := range l {
			if !yield(v) {
				return
			}
		}
	}, len(l), true
}

// Map returns the keys and values of a map with string keys or of a struct.
// Struct fields are named after their `godm` tag, falling back to the field
// name; fields tagged "-" and unexported fields are skipped, and ",omitzero"
// skips zero values.
func Map(obj any) (map[string]any, bool) {
	switch t := obj.(type) {
	case nil:
		return nil, false
	case map[string]any:
		return t, true
	case map[string]string:
		return fromMap(t), true
	case map[string]int:
		return fromMap(t), true
	case map[string]float64:
		return fromMap(t), true
	case time.Time:
		return nil, false
	}
	v := reflect.ValueNoEscapeOf(obj)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		res := make(map[string]any, v.Len())
		for _, k := range v.MapKeys() {
			res[k.String()] = v.MapIndex(k).Interface()
		}
		return res, true
	case reflect.Struct:
		return structFields(v), true
	default:
		return nil, false
	}
}

func fromMap[T any](m map[string]T) map[string]any {
	res := make(map[string]any, len(m))
	for k, v := range m {
		res[k] = v
	}
	return res
}

func structFields(v reflect.Value) map[string]any {
	typ := v.Type()
	res := make(map[string]any, typ.NumField())
	for n := range typ.NumField() {
		field := typ.Field(n)
		if field.PkgPath != "" {
			continue
		}
		name := field.Name
		omitZero := false
		if tag, ok := field.Tag.Lookup(TagName); ok {
			if tag == "-" {
				continue
			}
			parts := strings.Split(tag, ",")
			if parts[0] != "" {
				name = parts[0]
			}
			for _, opt := range parts[1:] {
				if opt == "omitzero" {
					omitZero = true
				}
			}
		}
		if omitZero && v.Field(n).IsZero() {
			continue
		}
		res[name] = v.Field(n).Interface()
	}
	return res
}

// AsInt64 converts any built-in number holding an integer value to int64.
func AsInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint:
		return int64(t), true
	case uint8:
		return int64(t), true
	case uint16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case uint64:
		if t > math.MaxInt64 {
			return 0, false
		}
		return int64(t), true
	case float32:
		if trunc := math.Trunc(float64(t)); trunc == float64(t) {
			return int64(trunc), true
		}
		return 0, false
	case float64:
		if trunc := math.Trunc(t); trunc == t && !math.IsInf(t, 0) {
			return int64(trunc), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// AsFloat64 converts any built-in number to float64.
func AsFloat64(v any) (float64, bool) {
	switch t := v.(type) {
	case float32:
		return float64(t), true
	case float64:
		return t, true
	}
	if i, ok := AsInt64(v); ok {
		return float64(i), true
	}
	if u, ok := v.(uint64); ok {
		return float64(u), true
	}
	return 0, false
}

// IsNumber reports whether v is a built-in number.
func IsNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

// Clone returns a deep copy of a wire value. Documents and lists are copied,
// everything else is returned as is.
func Clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		res := make(map[string]any, len(t))
		for k, item := range t {
			res[k] = Clone(item)
		}
		return res
	case []any:
		res := make([]any, len(t))
		for n, item := range t {
			res[n] = Clone(item)
		}
		return res
	case []byte:
		return append([]byte(nil), t...)
	default:
		return v
	}
}

// CloneDoc is [Clone] for documents.
func CloneDoc(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	return Clone(doc).(map[string]any)
}
