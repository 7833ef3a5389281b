// Package validation provides checks that validate request bodies, query
// parameters, and response bodies against a Schema.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ValidateOptions is passed through to the schema on every validation.
type ValidateOptions struct {
	// AllErrors reports every violation instead of stopping at the first.
	AllErrors bool
	// DisallowUnknownFields rejects keys the schema does not declare.
	DisallowUnknownFields bool
}

// Schema validates data and returns the value it accepted.
type Schema interface {
	Validate(data any, opts ValidateOptions) (any, error)
}

// SchemaFunc adapts a function to a Schema.
type SchemaFunc func(data any, opts ValidateOptions) (any, error)

// Validate calls f.
func (f SchemaFunc) Validate(data any, opts ValidateOptions) (any, error) {
	return f(data, opts)
}

// Error is a schema violation. Its message lists the violations in the
// order they were found.
type Error struct {
	Details []string
}

func (e *Error) Error() string {
	return strings.Join(e.Details, ". ")
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Struct returns a Schema backed by the `validate` struct tags of T. Data is
// decoded into T through its JSON form, so raw JSON, maps, and values of T
// are all accepted. String maps, such as query parameters, are first
// converted to the kinds of T's fields. Field names in messages follow the
// json tags. A missing (null) value is itself a violation.
func Struct[T any]() Schema {
	return SchemaFunc(func(data any, opts ValidateOptions) (any, error) {
		var raw []byte
		switch d := data.(type) {
		case json.RawMessage:
			raw = d
		case []byte:
			raw = d
		case map[string]string:
			b, err := json.Marshal(coerce[T](d))
			if err != nil {
				return nil, fmt.Errorf("encode value: %w", err)
			}
			raw = b
		default:
			b, err := json.Marshal(data)
			if err != nil {
				return nil, fmt.Errorf("encode value: %w", err)
			}
			raw = b
		}

		if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
			return nil, &Error{Details: []string{`"value" is required`}}
		}

		var value T
		dec := json.NewDecoder(bytes.NewReader(raw))
		if opts.DisallowUnknownFields {
			dec.DisallowUnknownFields()
		}
		if err := dec.Decode(&value); err != nil {
			if msg, ok := decodeMessage(err); ok {
				return nil, &Error{Details: []string{msg}}
			}
			return nil, fmt.Errorf("decode value: %w", err)
		}

		err := structValidator().Struct(&value)
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			details := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				details = append(details, fieldMessage(fe))
				if !opts.AllErrors {
					break
				}
			}
			return nil, &Error{Details: details}
		}
		if err != nil {
			return nil, fmt.Errorf("validate value: %w", err)
		}
		return value, nil
	})
}
