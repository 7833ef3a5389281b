// Package middleware wraps a single function invocation with ordered
// before-execution checks, the handler call, and ordered post-execution
// checks, and turns any failure into a uniform HTTP-shaped response.
//
// Checks share one contract: they receive the request, the invocation
// context, and the running Result, and signal failure by returning an error.
//
//	fn := middleware.HTTP(
//		[]middleware.HTTPCheck{auth.Header(), validation.RequestBody(schema)},
//		handler,
//		[]middleware.HTTPCheck{validation.ResponseBody(schemas)},
//		middleware.Options{},
//	)
//
// Before-checks run in list order and each one decides, from the Result it
// receives, whether to do its work. The handler runs only while the Result is
// still a success. Post-checks always run, in list order, and observe the
// terminal Result.
package middleware

import (
	"time"

	"github.com/menezmethod/funcware/invocation"
)

// Check is a before- or post-execution function. Returning a non-nil error
// marks the invocation as failed.
type Check[Req, Res any] func(req Req, inv *invocation.Context, result Result[Res]) error

// Handler is the function being decorated.
type Handler[Req, Res any] func(req Req, inv *invocation.Context) (Res, error)

// FailurePolicy decides which before-check failure is kept when several fail.
type FailurePolicy int

const (
	// FirstFailureWins keeps the earliest failure.
	FirstFailureWins FailurePolicy = iota
	// LastFailureWins replaces the recorded failure with each later one.
	LastFailureWins
)

// ErrorResponseHandler builds the response for an unexpected error.
type ErrorResponseHandler func(err error, inv *invocation.Context) *invocation.Response

// Options configures a chain. The zero value enables error handling with the
// default 500 response and first-failure-wins semantics.
type Options struct {
	// ErrorResponseHandler replaces the default 500 response for errors that
	// are not application errors.
	ErrorResponseHandler ErrorResponseHandler
	// DisableErrorHandling returns failures to the caller as errors instead
	// of translating them into responses.
	DisableErrorHandling bool
	FailurePolicy        FailurePolicy
}

// When returns c if enabled is true and nil otherwise. Nil checks are
// dropped when the chain is built, so a disabled check is never invoked.
func When[Req, Res any](enabled bool, c Check[Req, Res]) Check[Req, Res] {
	if !enabled {
		return nil
	}
	return c
}

// Chain is a composed invocation pipeline.
type Chain[Req, Res any] struct {
	before  []Check[Req, Res]
	handler Handler[Req, Res]
	after   []Check[Req, Res]
	opts    Options
}

// NewChain composes before-checks, handler, and post-checks. Nil checks are
// filtered out here, at composition time.
func NewChain[Req, Res any](before []Check[Req, Res], handler Handler[Req, Res], after []Check[Req, Res], opts Options) *Chain[Req, Res] {
	return &Chain[Req, Res]{
		before:  enabled(before),
		handler: handler,
		after:   enabled(after),
		opts:    opts,
	}
}

// Len returns the number of checks that will run per invocation.
func (c *Chain[Req, Res]) Len() int {
	return len(c.before) + len(c.after)
}

// Run executes the chain once and returns the terminal Result. It never
// panics; panics in checks and the handler are recorded as *PanicError.
func (c *Chain[Req, Res]) Run(req Req, inv *invocation.Context) Result[Res] {
	start := time.Now()
	invocationsInFlight.Inc()
	defer invocationsInFlight.Dec()

	result := Empty[Res]()

	for i, check := range c.before {
		err := protect(func() error { return check(req, inv, result) })
		if err == nil {
			continue
		}
		checkFailures.WithLabelValues(inv.FunctionName, phaseBefore).Inc()
		inv.Log().Debug("before-execution check failed", "index", i, "err", err)
		if !result.Failed() || c.opts.FailurePolicy == LastFailureWins {
			result = Failure[Res](err)
		}
	}

	if !result.Failed() && c.handler != nil {
		var out Res
		err := protect(func() error {
			var err error
			out, err = c.handler(req, inv)
			return err
		})
		if err != nil {
			checkFailures.WithLabelValues(inv.FunctionName, phaseHandler).Inc()
			result = Failure[Res](err)
		} else {
			result = Success(out)
		}
	}

	for i, check := range c.after {
		err := protect(func() error { return check(req, inv, result) })
		if err == nil {
			continue
		}
		checkFailures.WithLabelValues(inv.FunctionName, phaseAfter).Inc()
		if result.Failed() {
			inv.Log().Error("post-execution check failed, keeping the earlier failure",
				"index", i, "err", err, "original_err", result.Err())
		} else {
			inv.Log().Debug("post-execution check failed", "index", i, "err", err)
			result = Failure[Res](err)
		}
		if c.opts.DisableErrorHandling {
			break
		}
	}

	observeInvocation(inv.FunctionName, result.Failed(), time.Since(start))
	return result
}

func enabled[Req, Res any](checks []Check[Req, Res]) []Check[Req, Res] {
	out := make([]Check[Req, Res], 0, len(checks))
	for _, c := range checks {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}
