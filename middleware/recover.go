package middleware

import (
	"runtime/debug"

	"github.com/menezmethod/funcware/stringify"
)

// PanicError is the failure recorded when a check or handler panics.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return "panic: " + stringify.Value(e.Value)
}

// Unwrap exposes a panicked error value so that errors.As still finds
// application errors raised through panic.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// protect runs fn and converts a panic into a *PanicError.
func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}
