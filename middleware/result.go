package middleware

import "errors"

// ErrIllegalState is reported when an invocation finishes successfully but
// has nothing to return.
var ErrIllegalState = errors.New("illegal state: successful result carries no value")

// Result is the running outcome of one invocation. It holds either a
// success, optionally carrying the handler's value, or a failure carrying the
// captured error.
type Result[T any] struct {
	value    T
	hasValue bool
	err      error
}

// Empty returns a success without a value. Every invocation starts here.
func Empty[T any]() Result[T] {
	return Result[T]{}
}

// Success returns a success carrying v.
func Success[T any](v T) Result[T] {
	return Result[T]{value: v, hasValue: true}
}

// Failure returns a failure carrying err. A nil err is recorded as
// ErrIllegalState so that a failure always has a cause.
func Failure[T any](err error) Result[T] {
	if err == nil {
		err = ErrIllegalState
	}
	return Result[T]{err: err}
}

// Failed reports whether the result is a failure.
func (r Result[T]) Failed() bool {
	return r.err != nil
}

// Err returns the captured error, or nil on success.
func (r Result[T]) Err() error {
	return r.err
}

// Value returns the carried value and whether one is present. A failure
// never carries a value.
func (r Result[T]) Value() (T, bool) {
	return r.value, r.hasValue
}
