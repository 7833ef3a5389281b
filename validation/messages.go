package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// fieldMessage renders a validator error the way schema validators in the
// JavaScript ecosystem word them, e.g. `"name" is required`.
func fieldMessage(fe validator.FieldError) string {
	label := quote(fieldPath(fe.Namespace()))
	param := fe.Param()

	switch fe.Tag() {
	case "required", "required_if", "required_unless", "required_with", "required_without":
		return label + " is required"
	case "min", "gte":
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("%s length must be at least %s characters long", label, param)
		case reflect.Slice, reflect.Array, reflect.Map:
			return fmt.Sprintf("%s must contain at least %s items", label, param)
		default:
			return fmt.Sprintf("%s must be greater than or equal to %s", label, param)
		}
	case "max", "lte":
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("%s length must be less than or equal to %s characters long", label, param)
		case reflect.Slice, reflect.Array, reflect.Map:
			return fmt.Sprintf("%s must contain less than or equal to %s items", label, param)
		default:
			return fmt.Sprintf("%s must be less than or equal to %s", label, param)
		}
	case "len":
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("%s length must be %s characters long", label, param)
		default:
			return fmt.Sprintf("%s must contain %s items", label, param)
		}
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", label, param)
	case "lt":
		return fmt.Sprintf("%s must be less than %s", label, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", label, strings.Join(strings.Fields(param), ", "))
	case "email":
		return label + " must be a valid email"
	case "url", "uri", "http_url":
		return label + " must be a valid uri"
	case "uuid", "uuid4":
		return label + " must be a valid GUID"
	case "alphanum":
		return label + " must only contain alpha-numeric characters"
	case "number", "numeric":
		return label + " must be a number"
	default:
		return fmt.Sprintf("%s failed the %q check", label, fe.Tag())
	}
}

// decodeMessage translates JSON decoding failures that describe the payload
// rather than a broken document.
func decodeMessage(err error) (string, bool) {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "value"
		}
		return fmt.Sprintf("%s must be %s", quote(field), typeName(typeErr.Type)), true
	}
	if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		return field + " is not allowed", true
	}
	return "", false
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "a valid value"
	}
	switch t.Kind() {
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "a boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.Slice, reflect.Array:
		return "an array"
	default:
		return "of type object"
	}
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func quote(field string) string {
	return `"` + field + `"`
}
