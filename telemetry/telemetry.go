// Package telemetry records one server span per function invocation with
// OpenTelemetry. Setup starts the span and mirrors invocation logs onto it as
// span events. Finalize records the request outcome, ends the span, and
// flushes the provider.
//
// The client handle lives on the invocation itself, so concurrent
// invocations share nothing. Wrap and WrapTrigger pair Setup and Finalize
// around a handler so cleanup runs on every exit path.
package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/menezmethod/funcware/middleware"
)

const instrumentationName = "github.com/menezmethod/funcware/telemetry"

// LogBehavior decides when request and response bodies are attached to the
// request telemetry.
type LogBehavior int

const (
	// OnError attaches bodies to failed requests only.
	OnError LogBehavior = iota
	// Always attaches bodies to every request.
	Always
	// OnSuccess attaches bodies to successful requests only.
	OnSuccess
	// Never attaches no bodies.
	Never
)

// String returns the configuration name of b.
func (b LogBehavior) String() string {
	switch b {
	case Always:
		return "always"
	case OnError:
		return "on_error"
	case OnSuccess:
		return "on_success"
	case Never:
		return "never"
	default:
		return fmt.Sprintf("LogBehavior(%d)", int(b))
	}
}

// ParseLogBehavior parses always, on_error, on_success, or never.
func ParseLogBehavior(s string) (LogBehavior, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "always":
		return Always, nil
	case "", "on_error":
		return OnError, nil
	case "on_success":
		return OnSuccess, nil
	case "never":
		return Never, nil
	default:
		return OnError, fmt.Errorf("unknown log behavior %q", s)
	}
}

func (b LogBehavior) logs(success bool) bool {
	switch b {
	case Always:
		return true
	case OnError:
		return !success
	case OnSuccess:
		return success
	default:
		return false
	}
}

// Sanitizer redacts a body before it is attached to telemetry.
type Sanitizer func(body any) any

// Flusher is implemented by tracer providers that can export buffered spans
// on demand, such as the SDK provider.
type Flusher interface {
	ForceFlush(ctx context.Context) error
}

// Telemetry creates per-invocation clients.
type Telemetry struct {
	tracer      trace.Tracer
	flusher     Flusher
	propagator  propagation.TextMapPropagator
	environment string
	disabled    bool
	errResponse middleware.ErrorResponseHandler
}

// Option configures Telemetry.
type Option func(*config)

type config struct {
	provider    trace.TracerProvider
	propagator  propagation.TextMapPropagator
	environment string
	disabled    bool
	errResponse middleware.ErrorResponseHandler
}

// WithTracerProvider sets the provider spans are created with. Defaults to
// the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) { c.provider = tp }
}

// WithPropagator sets the propagator used to continue incoming traces.
// Defaults to W3C trace context.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(c *config) { c.propagator = p }
}

// WithEnvironment tags every span with the deployment environment.
func WithEnvironment(env string) Option {
	return func(c *config) { c.environment = env }
}

// WithDisabled turns every check into a no-op that only logs.
func WithDisabled(disabled bool) Option {
	return func(c *config) { c.disabled = disabled }
}

// WithErrorResponseHandler tells FinalizeHTTP which handler the function's
// chain uses for unexpected errors, so the recorded result code matches the
// response actually sent. It must be the same handler as in the chain's
// Options and is called once more per failed invocation.
func WithErrorResponseHandler(h middleware.ErrorResponseHandler) Option {
	return func(c *config) { c.errResponse = h }
}

// New returns a Telemetry configured by opts.
func New(opts ...Option) *Telemetry {
	c := config{
		propagator:  propagation.TraceContext{},
		environment: "UNDEFINED",
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.provider == nil {
		c.provider = otel.GetTracerProvider()
	}

	t := &Telemetry{
		tracer:      c.provider.Tracer(instrumentationName),
		propagator:  c.propagator,
		environment: c.environment,
		disabled:    c.disabled,
		errResponse: c.errResponse,
	}
	if f, ok := c.provider.(Flusher); ok {
		t.flusher = f
	}
	return t
}

// Disabled reports whether t records nothing.
func (t *Telemetry) Disabled() bool {
	return t == nil || t.disabled
}
