package validation

import (
	"reflect"
	"strconv"
	"strings"
)

// coerce converts string values, such as query parameters, to the kinds of
// the matching json fields of T. Values that do not parse are left as strings
// so that decoding reports the type mismatch.
func coerce[T any](values map[string]string) map[string]any {
	kinds := fieldKinds(reflect.TypeFor[T]())
	out := make(map[string]any, len(values))
	for key, value := range values {
		out[key] = convert(value, kinds[key])
	}
	return out
}

func fieldKinds(t reflect.Type) map[string]reflect.Kind {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	kinds := map[string]reflect.Kind{}
	if t.Kind() != reflect.Struct {
		return kinds
	}
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		kinds[name] = ft.Kind()
	}
	return kinds
}

func convert(value string, kind reflect.Kind) any {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n, err := strconv.ParseUint(value, 10, 64); err == nil {
			return n
		}
	case reflect.Float32, reflect.Float64:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	case reflect.Bool:
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	case reflect.Slice, reflect.Array:
		return []string{value}
	}
	return value
}
