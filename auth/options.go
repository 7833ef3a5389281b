// Package auth provides before-execution checks that authenticate and
// authorize HTTP-triggered function invocations.
//
// Header checks answer 403 when the caller presents no acceptable
// credentials. JWT checks answer 401 when the bearer token is missing or its
// claims do not match the route parameters. Policy checks answer 403 when a
// Casbin enforcer denies the subject.
package auth

import (
	"context"
	"net/http"
	"strings"
)

// PrincipalHeader is the header populated by the platform's built-in
// authentication with the authenticated principal's ID.
const PrincipalHeader = "x-ms-client-principal-id"

// HeaderValidator reports whether the request headers carry acceptable
// credentials. It may block; ctx is the invocation's context.
type HeaderValidator func(ctx context.Context, headers http.Header) (bool, error)

// Option configures an auth check.
type Option func(*options)

type options struct {
	errorBody    any
	skipIfFaulty bool
	validator    HeaderValidator
	decoder      Decoder
	scheme       string
}

func newOptions(defaultBody any, opts []Option) options {
	o := options{
		errorBody:    defaultBody,
		skipIfFaulty: true,
		validator:    PrincipalHeaderValidator(PrincipalHeader),
		decoder:      UnverifiedDecoder(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithErrorBody replaces the response body sent when the check fails.
func WithErrorBody(body any) Option {
	return func(o *options) { o.errorBody = body }
}

// WithSkipIfFaulty controls whether the check does nothing when an earlier
// check already failed. Defaults to true.
func WithSkipIfFaulty(skip bool) Option {
	return func(o *options) { o.skipIfFaulty = skip }
}

// WithHeaderValidator replaces the header predicate used by Header.
func WithHeaderValidator(v HeaderValidator) Option {
	return func(o *options) {
		if v != nil {
			o.validator = v
		}
	}
}

// WithDecoder replaces the token decoder used by JWT.
func WithDecoder(d Decoder) Option {
	return func(o *options) {
		if d != nil {
			o.decoder = d
		}
	}
}

// WithScheme restricts JWT to Authorization headers using the given scheme,
// compared case-insensitively. Any scheme is accepted by default.
func WithScheme(scheme string) Option {
	return func(o *options) { o.scheme = scheme }
}

// PrincipalHeaderValidator accepts requests whose header name is present
// and non-empty.
func PrincipalHeaderValidator(name string) HeaderValidator {
	return func(_ context.Context, headers http.Header) (bool, error) {
		return strings.TrimSpace(headers.Get(name)) != "", nil
	}
}

// HeaderEquals accepts requests whose header name equals value.
func HeaderEquals(name, value string) HeaderValidator {
	return func(_ context.Context, headers http.Header) (bool, error) {
		return headers.Get(name) == value, nil
	}
}
