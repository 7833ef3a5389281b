package middleware

import (
	"errors"
	"net/http"

	"github.com/menezmethod/funcware/apierror"
	"github.com/menezmethod/funcware/invocation"
	"github.com/menezmethod/funcware/stringify"
)

// DefaultErrorResponse is returned for unexpected errors when no
// ErrorResponseHandler is configured.
func DefaultErrorResponse() *invocation.Response {
	return invocation.JSON(http.StatusInternalServerError, apierror.Message("Internal server error"))
}

// HandleError logs err and converts it into a response. Application errors
// keep their status and body. Anything else yields the configured
// ErrorResponseHandler's response or DefaultErrorResponse. It never panics.
func HandleError(err error, inv *invocation.Context, opts Options) *invocation.Response {
	logger := inv.Log()

	if appErr, ok := apierror.As(err); ok {
		logger.Error("received application error", "message", appErr.Message, "status", appErr.Status)
	} else {
		logger.Error("unexpected error", "err", describe(err))
	}

	resp, handlerErr := ErrorResponse(err, inv, opts)
	if handlerErr != nil {
		logger.Error("error response handler failed", "err", describe(handlerErr))
	}
	return resp
}

// ErrorResponse returns the response HandleError would send for err, without
// logging. When the ErrorResponseHandler panics or returns nil, the response
// is DefaultErrorResponse and the handler's failure is returned alongside.
func ErrorResponse(err error, inv *invocation.Context, opts Options) (*invocation.Response, error) {
	if appErr, ok := apierror.As(err); ok {
		return invocation.NewResponse(appErr.Status, appErr.Body), nil
	}
	if opts.ErrorResponseHandler == nil {
		return DefaultErrorResponse(), nil
	}
	resp, handlerErr := customResponse(opts.ErrorResponseHandler, err, inv)
	if handlerErr != nil {
		return DefaultErrorResponse(), handlerErr
	}
	return resp, nil
}

func customResponse(h ErrorResponseHandler, err error, inv *invocation.Context) (resp *invocation.Response, handlerErr error) {
	handlerErr = protect(func() error {
		resp = h(err, inv)
		return nil
	})
	if handlerErr == nil && resp == nil {
		handlerErr = errors.New("error response handler returned no response")
	}
	return resp, handlerErr
}

// describe renders an error for logging without ever failing.
func describe(err error) string {
	if err == nil {
		return "the provided error was nil, unable to log a specific message"
	}
	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		return "panic: " + stringify.Value(panicErr.Value)
	}
	return stringify.Value(err)
}
