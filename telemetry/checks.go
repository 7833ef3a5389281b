package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/menezmethod/funcware/invocation"
	"github.com/menezmethod/funcware/middleware"
)

// Setup returns a before-execution check that starts the invocation span,
// continuing any trace propagated on an HTTP request, and routes the
// invocation logger through it. Place it first.
func Setup[Req, Res any](t *Telemetry) middleware.Check[Req, Res] {
	return func(req Req, inv *invocation.Context, _ middleware.Result[Res]) error {
		if t.Disabled() {
			return nil
		}
		t.start(req, inv)
		return nil
	}
}

func (t *Telemetry) start(req any, inv *invocation.Context) *Client {
	inv.Log().Debug("setting up telemetry")

	ctx := inv.Context()
	if r, ok := req.(*invocation.Request); ok && r != nil {
		ctx = t.propagator.Extract(ctx, propagation.HeaderCarrier(r.Header))
	}
	ctx, span := t.tracer.Start(ctx, inv.FunctionName,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("funcware.invocation_id", inv.ID),
			attribute.String("funcware.trigger", string(inv.Trigger)),
			attribute.String("deployment.environment", t.environment),
		),
	)
	inv.SetContext(ctx)

	client := &Client{span: span, flusher: t.flusher, start: time.Now(), logger: inv.Logger}
	inv.Logger = slog.New(&spanHandler{next: inv.Log().Handler(), client: client})
	inv.Set(clientKey{}, client)

	inv.Log().Debug("set up telemetry")
	return client
}

// FinalizeHTTP returns a post-execution check that records the HTTP outcome
// and releases the client. Requests with a status of 400 or above count as
// failed. Bodies are attached according to behavior after passing through
// sanitize, which may be nil.
func FinalizeHTTP(t *Telemetry, behavior LogBehavior, sanitize Sanitizer) middleware.HTTPCheck {
	return func(req *invocation.Request, inv *invocation.Context, result middleware.HTTPResult) error {
		if t.Disabled() {
			return nil
		}
		client, ok := ClientFrom(inv)
		if !ok {
			inv.Log().Error("no telemetry client could be found for invocation", "invocation_id", inv.ID)
			return nil
		}

		status, respBody := t.httpOutcome(inv, result)
		success := status > 0 && status < 400

		props := map[string]any{"traceparent": t.traceparent(inv.Context())}
		if behavior.logs(success) {
			props["request.body"] = sanitized(sanitize, requestBody(req))
			if respBody != nil {
				props["response.body"] = sanitized(sanitize, respBody)
			}
		}

		url := ""
		if req != nil && req.URL != nil {
			url = req.URL.String()
		}
		t.finish(inv, client, RequestTelemetry{
			Name:       inv.FunctionName,
			ResultCode: status,
			Success:    success,
			URL:        url,
			Properties: props,
		})
		return nil
	}
}

// FinalizeTrigger returns a post-execution check for non-HTTP triggers. The
// result code is always 0; success follows the Result.
func FinalizeTrigger[Req, Res any](t *Telemetry) middleware.Check[Req, Res] {
	return func(_ Req, inv *invocation.Context, result middleware.Result[Res]) error {
		if t.Disabled() {
			return nil
		}
		client, ok := ClientFrom(inv)
		if !ok {
			inv.Log().Error("no telemetry client could be found for invocation", "invocation_id", inv.ID)
			return nil
		}
		t.finish(inv, client, RequestTelemetry{
			Name:       inv.FunctionName,
			ResultCode: 0,
			Success:    !result.Failed(),
			Properties: map[string]any{"traceparent": t.traceparent(inv.Context())},
		})
		return nil
	}
}

func (t *Telemetry) finish(inv *invocation.Context, client *Client, r RequestTelemetry) {
	inv.Log().Debug("finalizing telemetry")

	r.Duration = time.Since(client.start)
	r.CorrelationID = client.CorrelationID()
	client.TrackRequest(r)

	if err := client.Flush(inv.Context()); err != nil {
		inv.Log().Warn("failed to flush telemetry", "err", err)
	}
	inv.Delete(clientKey{})
	inv.Logger = client.logger
	inv.Log().Debug("finalized telemetry")
}

func (t *Telemetry) traceparent(ctx context.Context) string {
	carrier := propagation.MapCarrier{}
	t.propagator.Inject(ctx, carrier)
	if tp := carrier.Get("traceparent"); tp != "" {
		return tp
	}
	return "UNDEFINED"
}

// httpOutcome resolves the status and body the invocation responds with.
// Failures are resolved the way the chain's error handler resolves them.
func (t *Telemetry) httpOutcome(inv *invocation.Context, result middleware.HTTPResult) (int, any) {
	if result.Failed() {
		resp, _ := middleware.ErrorResponse(result.Err(), inv, middleware.Options{ErrorResponseHandler: t.errResponse})
		return resp.StatusCode(), responseBody(resp)
	}
	resp, ok := result.Value()
	if !ok || resp == nil {
		inv.Log().Warn("response is empty and probably should not be")
		return 0, nil
	}
	return resp.StatusCode(), responseBody(resp)
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

func requestBody(req *invocation.Request) any {
	if req == nil {
		return "NO_REQ_BODY"
	}
	body, err := req.Bytes()
	if err != nil || len(body) == 0 {
		return "NO_REQ_BODY"
	}
	return string(body)
}

func sanitized(sanitize Sanitizer, v any) any {
	if sanitize == nil {
		return v
	}
	return sanitize(v)
}

// Wrap runs fn between Setup and FinalizeHTTP. Finalize runs even if fn
// panics, after which the panic continues.
func Wrap(t *Telemetry, fn middleware.HTTPHandler, behavior LogBehavior, sanitize Sanitizer) middleware.HTTPHandler {
	setup := Setup[*invocation.Request, *invocation.Response](t)
	finalize := FinalizeHTTP(t, behavior, sanitize)

	return func(req *invocation.Request, inv *invocation.Context) (resp *invocation.Response, err error) {
		_ = setup(req, inv, middleware.Empty[*invocation.Response]())

		defer func() {
			r := recover()
			result := middleware.Success(resp)
			switch {
			case r != nil:
				result = middleware.Failure[*invocation.Response](fmt.Errorf("panic: %v", r))
			case err != nil:
				result = middleware.Failure[*invocation.Response](err)
			}
			_ = finalize(req, inv, result)
			if r != nil {
				panic(r)
			}
		}()

		return fn(req, inv)
	}
}

// WrapTrigger runs fn between Setup and FinalizeTrigger with the same
// cleanup guarantee as Wrap.
func WrapTrigger[In, Out any](t *Telemetry, fn middleware.Handler[In, Out]) middleware.Handler[In, Out] {
	setup := Setup[In, Out](t)
	finalize := FinalizeTrigger[In, Out](t)

	return func(input In, inv *invocation.Context) (out Out, err error) {
		_ = setup(input, inv, middleware.Empty[Out]())

		defer func() {
			r := recover()
			result := middleware.Success(out)
			switch {
			case r != nil:
				result = middleware.Failure[Out](fmt.Errorf("panic: %v", r))
			case err != nil:
				result = middleware.Failure[Out](err)
			}
			_ = finalize(input, inv, result)
			if r != nil {
				panic(r)
			}
		}()

		return fn(input, inv)
	}
}
