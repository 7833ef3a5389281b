package auth

import (
	"fmt"
	"net/http"

	"github.com/menezmethod/funcware/apierror"
	"github.com/menezmethod/funcware/invocation"
	"github.com/menezmethod/funcware/middleware"
)

// DefaultHeaderErrorBody is sent when header authentication fails.
const DefaultHeaderErrorBody = "No sophisticated credentials provided"

// Header returns a before-execution check that authenticates the request by
// its headers. By default the platform principal header must be present.
// Rejected requests fail with a 403 application error.
func Header(opts ...Option) middleware.HTTPCheck {
	o := newOptions(DefaultHeaderErrorBody, opts)

	return func(req *invocation.Request, inv *invocation.Context, result middleware.HTTPResult) error {
		logger := inv.Log()
		if o.skipIfFaulty && result.Failed() {
			logger.Info("skipping header authentication because the result is faulty")
			return nil
		}

		logger.Info("executing header authentication")
		ok, err := o.validator(inv.Context(), req.Header)
		if err != nil {
			return fmt.Errorf("validate headers: %w", err)
		}
		if !ok {
			logger.Info("header authentication was not successful")
			return apierror.New("Authentication error", http.StatusForbidden, o.errorBody)
		}

		logger.Info("header authentication was successful")
		return nil
	}
}
