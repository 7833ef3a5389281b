package middleware

import (
	"log/slog"
	"net/http"

	"github.com/menezmethod/funcware/invocation"
)

// InvocationIDHeader carries the host-assigned invocation ID.
const InvocationIDHeader = "X-Azure-Functions-InvocationId"

// HTTPCheck is a check for HTTP-triggered functions.
type HTTPCheck = Check[*invocation.Request, *invocation.Response]

// HTTPHandler is an HTTP-triggered function.
type HTTPHandler = Handler[*invocation.Request, *invocation.Response]

// HTTPResult is the running result of an HTTP-triggered function.
type HTTPResult = Result[*invocation.Response]

// HTTP wraps handler with the given checks. The returned handler yields the
// handler's response on success and an error response on failure. With
// DisableErrorHandling the failure is returned as an error instead.
//
// A successful invocation that produces a nil response is treated as
// ErrIllegalState.
func HTTP(before []HTTPCheck, handler HTTPHandler, after []HTTPCheck, opts Options) HTTPHandler {
	chain := NewChain(before, handler, after, opts)
	return func(req *invocation.Request, inv *invocation.Context) (*invocation.Response, error) {
		result := chain.Run(req, inv)

		err := result.Err()
		if err == nil {
			if resp, ok := result.Value(); ok && resp != nil {
				return resp, nil
			}
			err = ErrIllegalState
		}

		if opts.DisableErrorHandling {
			return nil, err
		}
		return HandleError(err, inv, opts), nil
	}
}

// ServeHTTP adapts an HTTP-triggered function to an http.Handler so it can
// run behind a custom-handler host. Errors returned by fn (only possible with
// DisableErrorHandling) are translated with the default error handler.
func ServeHTTP(name string, fn HTTPHandler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inv := invocation.New(r.Context(), r.Header.Get(InvocationIDHeader), name, invocation.TriggerHTTP, logger)
		req := invocation.NewRequest(r, nil)

		resp, err := fn(req, inv)
		if err == nil && resp == nil {
			err = ErrIllegalState
		}
		if err != nil {
			resp = HandleError(err, inv, Options{})
		}

		w.Header().Set(InvocationIDHeader, inv.ID)
		resp.Write(w)
	})
}
