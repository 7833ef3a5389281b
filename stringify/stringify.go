// Package stringify renders arbitrary values for log output.
//
// It never panics and never fails: strings pass through, values with their
// own JSON or text representation use it, plain structured values are
// JSON-encoded, and anything that cannot be encoded (cyclic graphs, channels,
// functions) falls back to a type-only description.
package stringify

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// MaxItems bounds how many elements of a slice or array are rendered.
const MaxItems = 100

// Join renders each argument and joins them with a single space.
func Join(args ...any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = Value(a)
	}
	return strings.Join(parts, " ")
}

// Value renders v as a single string.
func Value(v any) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = fallback(v)
		}
	}()

	switch t := v.(type) {
	case nil:
		return "<nil>"
	case string:
		return t
	case []byte:
		return string(t)
	case json.Marshaler:
		if b, err := t.MarshalJSON(); err == nil {
			return string(b)
		}
	case error:
		return t.Error()
	case fmt.Stringer:
		return t.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprint(v)
	case reflect.Slice, reflect.Array:
		if rv.Len() > MaxItems {
			return truncated(rv)
		}
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return fallback(v)
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fallback(v)
	}
	return string(b)
}

func truncated(rv reflect.Value) string {
	items := make([]any, 0, MaxItems+1)
	for i := 0; i < MaxItems; i++ {
		items = append(items, rv.Index(i).Interface())
	}
	items = append(items, fmt.Sprintf("... %d more items", rv.Len()-MaxItems))
	b, err := json.Marshal(items)
	if err != nil {
		return fallback(rv.Interface())
	}
	return string(b)
}

func fallback(v any) string {
	return fmt.Sprintf("<unrepresentable %T>", v)
}
