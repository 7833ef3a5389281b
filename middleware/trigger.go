package middleware

import (
	"log/slog"
	"net/http"

	"github.com/menezmethod/funcware/apierror"
	"github.com/menezmethod/funcware/invocation"
)

// Trigger wraps a non-HTTP handler with the given checks. On failure the
// error handler runs as for HTTP functions and the returned error is an
// *apierror.Error carrying the resulting status and body, so callers always
// see the normalized shape. With DisableErrorHandling the captured error is
// returned unchanged.
func Trigger[In, Out any](before []Check[In, Out], handler Handler[In, Out], after []Check[In, Out], opts Options) Handler[In, Out] {
	chain := NewChain(before, handler, after, opts)
	return func(input In, inv *invocation.Context) (Out, error) {
		result := chain.Run(input, inv)

		err := result.Err()
		if err == nil {
			if out, ok := result.Value(); ok {
				return out, nil
			}
			err = ErrIllegalState
		}

		var zero Out
		if opts.DisableErrorHandling {
			return zero, err
		}
		resp := HandleError(err, inv, opts)
		return zero, apierror.New(err.Error(), resp.StatusCode(), responseBody(resp))
	}
}

func responseBody(resp *invocation.Response) any {
	if resp.JSONBody != nil {
		return resp.JSONBody
	}
	if len(resp.Body) > 0 {
		return string(resp.Body)
	}
	return nil
}

// TriggerPayload is the request a custom-handler host sends for non-HTTP
// triggers.
type TriggerPayload[In any] struct {
	Data     In             `json:"Data"`
	Metadata map[string]any `json:"Metadata,omitempty"`
}

// TriggerReply is the response a custom-handler host expects for non-HTTP
// triggers.
type TriggerReply struct {
	Outputs     map[string]any `json:"Outputs"`
	Logs        []string       `json:"Logs"`
	ReturnValue any            `json:"ReturnValue,omitempty"`
}

// ServeTrigger adapts a non-HTTP function to an http.Handler speaking the
// custom-handler payload format.
func ServeTrigger[In, Out any](name string, fn Handler[In, Out], logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inv := invocation.New(r.Context(), r.Header.Get(InvocationIDHeader), name, invocation.TriggerGeneric, logger)
		w.Header().Set(InvocationIDHeader, inv.ID)

		var payload TriggerPayload[In]
		if err := invocation.NewRequest(r, nil).JSON(&payload); err != nil {
			HandleError(apierror.BadRequest("Invalid trigger payload", apierror.Message(err.Error())), inv, Options{}).Write(w)
			return
		}

		out, err := fn(payload.Data, inv)
		if err != nil {
			if appErr, ok := apierror.As(err); ok {
				invocation.NewResponse(appErr.Status, appErr.Body).Write(w)
				return
			}
			HandleError(err, inv, Options{}).Write(w)
			return
		}

		invocation.JSON(http.StatusOK, TriggerReply{
			Outputs:     map[string]any{},
			Logs:        []string{},
			ReturnValue: out,
		}).Write(w)
	})
}
