package validation

import (
	"encoding/json"
	"fmt"

	"github.com/menezmethod/funcware/apierror"
	"github.com/menezmethod/funcware/invocation"
	"github.com/menezmethod/funcware/middleware"
	"github.com/menezmethod/funcware/stringify"
)

// ResponseBody returns a post-execution check validating the handler's
// response body against the schema registered for its status code. A
// missing schema and a violation both fail with 500, since the function
// produced a response it does not declare.
func ResponseBody(schemas map[int]Schema, opts ...Option) middleware.HTTPCheck {
	o := newOptions(opts)

	return func(_ *invocation.Request, inv *invocation.Context, result middleware.HTTPResult) error {
		logger := inv.Log()
		if o.skipIfFaulty && result.Failed() {
			logger.Info("skipping response body validation because the result is faulty")
			return nil
		}

		resp, ok := result.Value()
		if !ok || resp == nil {
			logger.Info("skipping response body validation because there is no response")
			return nil
		}

		status := resp.StatusCode()
		schema, ok := schemas[status]
		if !ok || schema == nil {
			logger.Error("no response schema for status", "status", status)
			if o.shouldThrow {
				return apierror.Internal(
					fmt.Sprintf("Response body validation error as there is no schema for status %d", status),
					apierror.Message("Internal server error"),
				)
			}
			return nil
		}

		content := responseContent(resp)
		if _, err := schema.Validate(content, o.validate); err != nil {
			logger.Error("response body did not match the given schema", "status", status, "err", err.Error())
			if o.printInput {
				logger.Info("invalid response body", "body", stringify.Value(o.sanitize(printable(content))))
			}
			if o.shouldThrow {
				return apierror.Internal("Response body validation error", apierror.Message("Internal server error"))
			}
			return nil
		}

		logger.Info("response body is valid")
		return nil
	}
}

func responseContent(resp *invocation.Response) any {
	if resp.JSONBody != nil {
		return resp.JSONBody
	}
	if json.Valid(resp.Body) {
		return json.RawMessage(resp.Body)
	}
	return string(resp.Body)
}
