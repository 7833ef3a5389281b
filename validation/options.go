package validation

import (
	"slices"

	"github.com/menezmethod/funcware/apierror"
	"github.com/menezmethod/funcware/invocation"
	"github.com/menezmethod/funcware/middleware"
)

// DefaultExcludedQueryParams are injected by the function host for key-based
// authentication and never validated.
var DefaultExcludedQueryParams = []string{"code"}

// Extractor selects the content to validate instead of the request body.
// The request it receives is a clone whose body may be read freely.
type Extractor func(req *invocation.Request, inv *invocation.Context, result middleware.HTTPResult) (any, error)

// Option configures a validation check.
type Option func(*options)

type options struct {
	shouldThrow   bool
	transform     func(message string) any
	printInput    bool
	sanitize      func(v any) any
	extract       Extractor
	validate      ValidateOptions
	excludedQuery []string
	skipIfFaulty  bool
}

func newOptions(opts []Option) options {
	o := options{
		shouldThrow:   true,
		transform:     func(message string) any { return apierror.Message(message) },
		printInput:    true,
		sanitize:      func(v any) any { return v },
		validate:      ValidateOptions{},
		excludedQuery: slices.Clone(DefaultExcludedQueryParams),
		skipIfFaulty:  true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithShouldThrow controls whether a violation fails the invocation. When
// false, violations are only logged. Defaults to true.
func WithShouldThrow(throw bool) Option {
	return func(o *options) { o.shouldThrow = throw }
}

// WithTransformErrorMessage maps the violation message to the response body.
// The default wraps it as {"message": ...}.
func WithTransformErrorMessage(fn func(message string) any) Option {
	return func(o *options) {
		if fn != nil {
			o.transform = fn
		}
	}
}

// WithPrintInput controls whether offending input is logged. Defaults to
// true.
func WithPrintInput(enabled bool) Option {
	return func(o *options) { o.printInput = enabled }
}

// WithSanitizer redacts input before it is logged.
func WithSanitizer(fn func(v any) any) Option {
	return func(o *options) {
		if fn != nil {
			o.sanitize = fn
		}
	}
}

// WithExtractor replaces the request body as the validated content.
func WithExtractor(fn Extractor) Option {
	return func(o *options) { o.extract = fn }
}

// WithValidateOptions is passed through to the schema.
func WithValidateOptions(v ValidateOptions) Option {
	return func(o *options) { o.validate = v }
}

// WithExcludedQueryParams replaces the query parameters removed before
// validation.
func WithExcludedQueryParams(keys ...string) Option {
	return func(o *options) { o.excludedQuery = keys }
}

// WithSkipIfFaulty controls whether the check does nothing when the
// invocation already failed. Defaults to true.
func WithSkipIfFaulty(skip bool) Option {
	return func(o *options) { o.skipIfFaulty = skip }
}
