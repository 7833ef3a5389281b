package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/menezmethod/funcware/apierror"
	"github.com/menezmethod/funcware/invocation"
	"github.com/menezmethod/funcware/middleware"
	"github.com/menezmethod/funcware/stringify"
)

// InvalidJSONMessage is reported when the request body is not JSON.
const InvalidJSONMessage = "Request body contains invalid json"

// RequestBody returns a before-execution check validating the JSON request
// body against schema. The body is read from a clone, so the handler can
// read it again. An empty body is validated as null. Broken JSON and schema
// violations both fail with 400.
func RequestBody(schema Schema, opts ...Option) middleware.HTTPCheck {
	o := newOptions(opts)

	return func(req *invocation.Request, inv *invocation.Context, result middleware.HTTPResult) error {
		logger := inv.Log()
		if o.skipIfFaulty && result.Failed() {
			logger.Info("skipping request body validation because the result is faulty")
			return nil
		}

		content, err := bodyContent(req, inv, result, o)
		if err != nil {
			return err
		}

		if _, err := schema.Validate(content, o.validate); err != nil {
			logger.Error("request body did not match the given schema", "err", err.Error())
			if o.printInput {
				logger.Info("invalid request body", "body", stringify.Value(o.sanitize(printable(content))))
			}
			if o.shouldThrow {
				return apierror.BadRequest("Request body validation error", o.transform(err.Error()))
			}
			return nil
		}

		logger.Info("request body is valid")
		return nil
	}
}

func bodyContent(req *invocation.Request, inv *invocation.Context, result middleware.HTTPResult, o options) (any, error) {
	clone := req.Clone()
	if o.extract != nil {
		content, err := o.extract(clone, inv, result)
		if err != nil {
			return nil, fmt.Errorf("extract validation content: %w", err)
		}
		return content, nil
	}

	raw, err := clone.Bytes()
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(raw) {
		inv.Log().Error("request body is not valid json")
		return nil, apierror.BadRequest(InvalidJSONMessage, o.transform(InvalidJSONMessage))
	}
	return json.RawMessage(raw), nil
}

// QueryParams returns a before-execution check validating the query string.
// Each key maps to its last value and the schema receives a
// map[string]string. Excluded keys are removed first.
func QueryParams(schema Schema, opts ...Option) middleware.HTTPCheck {
	o := newOptions(opts)

	return func(req *invocation.Request, inv *invocation.Context, result middleware.HTTPResult) error {
		logger := inv.Log()
		if o.skipIfFaulty && result.Failed() {
			logger.Info("skipping request query params validation because the result is faulty")
			return nil
		}

		params := make(map[string]string)
		for key, values := range req.Query() {
			if len(values) == 0 || slices.Contains(o.excludedQuery, key) {
				continue
			}
			params[key] = values[len(values)-1]
		}

		if _, err := schema.Validate(params, o.validate); err != nil {
			logger.Error("request query params did not match the given schema", "err", err.Error())
			if o.printInput {
				logger.Info("invalid request query params", "query", stringify.Value(o.sanitize(params)))
			}
			if o.shouldThrow {
				return apierror.BadRequest("Request query params validation error", o.transform(err.Error()))
			}
			return nil
		}

		logger.Info("request query params are valid")
		return nil
	}
}

// printable decodes raw JSON so sanitizers see structured values.
func printable(content any) any {
	raw, ok := content.(json.RawMessage)
	if !ok {
		return content
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}
