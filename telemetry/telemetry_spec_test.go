package telemetry

import (
	"errors"
	"log/slog"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/menezmethod/funcware/apierror"
	"github.com/menezmethod/funcware/invocation"
	"github.com/menezmethod/funcware/middleware"
)

var _ = Describe("Telemetry", func() {
	var (
		recorder *tracetest.SpanRecorder
		provider *sdktrace.TracerProvider
		tel      *Telemetry
	)

	BeforeEach(func() {
		recorder = tracetest.NewSpanRecorder()
		provider = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
		DeferCleanup(provider.Shutdown)
		tel = New(WithTracerProvider(provider), WithEnvironment("test"))
	})

	chain := func(behavior LogBehavior, before []middleware.HTTPCheck, handler middleware.HTTPHandler) middleware.HTTPHandler {
		checks := append([]middleware.HTTPCheck{Setup[*invocation.Request, *invocation.Response](tel)}, before...)
		return middleware.HTTP(checks, handler, []middleware.HTTPCheck{FinalizeHTTP(tel, behavior, nil)}, middleware.Options{})
	}

	ok := func(_ *invocation.Request, inv *invocation.Context) (*invocation.Response, error) {
		inv.Log().Info("handling request", "step", "handler")
		return invocation.JSON(http.StatusOK, map[string]string{"greeting": "hi"}), nil
	}

	It("records one successful server span per invocation", func() {
		inv := newInvocation("greet", invocation.TriggerHTTP)
		_, err := chain(OnError, nil, ok)(newRequest(`{"name":"Tester"}`), inv)
		Expect(err).NotTo(HaveOccurred())

		spans := recorder.Ended()
		Expect(spans).To(HaveLen(1))
		span := spans[0]
		Expect(span.Name()).To(Equal("greet"))
		Expect(span.Status().Code).To(Equal(codes.Ok))

		code, _ := attr(span, "funcware.result_code")
		Expect(code.AsInt64()).To(Equal(int64(http.StatusOK)))
		url, _ := attr(span, "url.full")
		Expect(url.AsString()).To(Equal("https://example.com/api/test?x=1"))
		env, _ := attr(span, "deployment.environment")
		Expect(env.AsString()).To(Equal("test"))
		_, hasBody := attr(span, "funcware.property.request.body")
		Expect(hasBody).To(BeFalse())
	})

	It("mirrors invocation logs as span events", func() {
		_, _ = chain(OnError, nil, ok)(newRequest(""), newInvocation("greet", invocation.TriggerHTTP))

		events := recorder.Ended()[0].Events()
		messages := make([]string, 0, len(events))
		for _, e := range events {
			for _, kv := range e.Attributes {
				if kv.Key == "log.message" {
					messages = append(messages, kv.Value.AsString())
				}
			}
		}
		Expect(messages).To(ContainElement("handling request"))
	})

	It("marks failed requests and attaches the request body on error", func() {
		deny := func(*invocation.Request, *invocation.Context, middleware.HTTPResult) error {
			return apierror.Forbidden("Authentication error", "denied")
		}
		resp, err := chain(OnError, []middleware.HTTPCheck{deny}, ok)(newRequest(`{"name":"Te"}`), newInvocation("greet", invocation.TriggerHTTP))
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Status).To(Equal(http.StatusForbidden))

		span := recorder.Ended()[0]
		Expect(span.Status().Code).To(Equal(codes.Error))
		code, _ := attr(span, "funcware.result_code")
		Expect(code.AsInt64()).To(Equal(int64(http.StatusForbidden)))
		body, hasBody := attr(span, "funcware.property.request.body")
		Expect(hasBody).To(BeTrue())
		Expect(body.AsString()).To(Equal(`{"name":"Te"}`))
	})

	It("records unexpected errors as 500", func() {
		failing := func(*invocation.Request, *invocation.Context) (*invocation.Response, error) {
			return nil, errors.New("boom")
		}
		_, _ = chain(Never, nil, failing)(newRequest(""), newInvocation("greet", invocation.TriggerHTTP))

		span := recorder.Ended()[0]
		code, _ := attr(span, "funcware.result_code")
		Expect(code.AsInt64()).To(Equal(int64(http.StatusInternalServerError)))
		_, hasBody := attr(span, "funcware.property.request.body")
		Expect(hasBody).To(BeFalse())
	})

	It("records the status chosen by a custom error response handler", func() {
		teapot := func(error, *invocation.Context) *invocation.Response {
			return invocation.Text(http.StatusTeapot, "short and stout")
		}
		custom := New(WithTracerProvider(provider), WithErrorResponseHandler(teapot))
		failing := func(*invocation.Request, *invocation.Context) (*invocation.Response, error) {
			return nil, errors.New("boom")
		}
		fn := middleware.HTTP(
			[]middleware.HTTPCheck{Setup[*invocation.Request, *invocation.Response](custom)},
			failing,
			[]middleware.HTTPCheck{FinalizeHTTP(custom, Always, nil)},
			middleware.Options{ErrorResponseHandler: teapot},
		)

		resp, err := fn(newRequest(""), newInvocation("greet", invocation.TriggerHTTP))
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Status).To(Equal(http.StatusTeapot))

		span := recorder.Ended()[0]
		code, _ := attr(span, "funcware.result_code")
		Expect(code.AsInt64()).To(Equal(int64(http.StatusTeapot)))
		body, _ := attr(span, "funcware.property.response.body")
		Expect(body.AsString()).To(Equal("short and stout"))
	})

	It("sanitizes attached bodies", func() {
		finalize := FinalizeHTTP(tel, Always, func(any) any { return "redacted" })
		fn := middleware.HTTP([]middleware.HTTPCheck{Setup[*invocation.Request, *invocation.Response](tel)}, ok, []middleware.HTTPCheck{finalize}, middleware.Options{})
		_, _ = fn(newRequest(`{"password":"secret"}`), newInvocation("greet", invocation.TriggerHTTP))

		body, _ := attr(recorder.Ended()[0], "funcware.property.request.body")
		Expect(body.AsString()).To(Equal("redacted"))
	})

	It("continues an incoming trace", func() {
		req := newRequest("")
		req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
		_, _ = chain(OnError, nil, ok)(req, newInvocation("greet", invocation.TriggerHTTP))

		span := recorder.Ended()[0]
		Expect(span.SpanContext().TraceID().String()).To(Equal("4bf92f3577b34da6a3ce929d0e0e4736"))
		Expect(span.Parent().SpanID().String()).To(Equal("00f067aa0ba902b7"))
		correlation, _ := attr(span, "funcware.correlation_id")
		Expect(correlation.AsString()).To(Equal("4bf92f3577b34da6a3ce929d0e0e4736"))
	})

	It("releases the client and restores the logger", func() {
		inv := newInvocation("greet", invocation.TriggerHTTP)
		original := inv.Logger
		_, _ = chain(OnError, nil, ok)(newRequest(""), inv)

		_, found := ClientFrom(inv)
		Expect(found).To(BeFalse())
		Expect(inv.Logger).To(BeIdenticalTo(original))
	})

	It("logs instead of failing when no client was set up", func() {
		finalize := FinalizeHTTP(tel, OnError, nil)
		err := finalize(newRequest(""), newInvocation("greet", invocation.TriggerHTTP), middleware.Empty[*invocation.Response]())
		Expect(err).NotTo(HaveOccurred())
		Expect(recorder.Ended()).To(BeEmpty())
	})

	It("records nothing when disabled", func() {
		disabled := New(WithDisabled(true))
		fn := middleware.HTTP(
			[]middleware.HTTPCheck{Setup[*invocation.Request, *invocation.Response](disabled)},
			ok,
			[]middleware.HTTPCheck{FinalizeHTTP(disabled, Always, nil)},
			middleware.Options{},
		)
		resp, err := fn(newRequest(""), newInvocation("greet", invocation.TriggerHTTP))
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Status).To(Equal(http.StatusOK))
		Expect(recorder.Ended()).To(BeEmpty())
	})

	Describe("Wrap", func() {
		It("finalizes even when the handler panics", func() {
			inv := newInvocation("greet", invocation.TriggerHTTP)
			panicking := Wrap(tel, func(*invocation.Request, *invocation.Context) (*invocation.Response, error) {
				panic("kaboom")
			}, OnError, nil)

			Expect(func() { _, _ = panicking(newRequest(""), inv) }).To(PanicWith("kaboom"))
			Expect(recorder.Ended()).To(HaveLen(1))
			Expect(recorder.Ended()[0].Status().Code).To(Equal(codes.Error))
			_, found := ClientFrom(inv)
			Expect(found).To(BeFalse())
		})

		It("wraps a composed chain", func() {
			fn := Wrap(tel, middleware.HTTP(nil, ok, nil, middleware.Options{}), OnError, nil)
			resp, err := fn(newRequest(""), newInvocation("greet", invocation.TriggerHTTP))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Status).To(Equal(http.StatusOK))
			Expect(recorder.Ended()[0].Status().Code).To(Equal(codes.Ok))
		})
	})

	Describe("WrapTrigger", func() {
		It("records result code 0 and success from the result", func() {
			fn := WrapTrigger(tel, func(in string, inv *invocation.Context) (string, error) {
				inv.Log().Log(inv.Context(), slog.LevelInfo, "beat")
				return "pong " + in, nil
			})
			out, err := fn("ping", newInvocation("heartbeat", invocation.TriggerGeneric))
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("pong ping"))

			span := recorder.Ended()[0]
			code, _ := attr(span, "funcware.result_code")
			Expect(code.AsInt64()).To(BeZero())
			Expect(span.Status().Code).To(Equal(codes.Ok))
			_, hasURL := attr(span, "url.full")
			Expect(hasURL).To(BeFalse())
		})

		It("marks failed triggers", func() {
			fn := WrapTrigger(tel, func(string, *invocation.Context) (string, error) {
				return "", errors.New("boom")
			})
			_, err := fn("ping", newInvocation("heartbeat", invocation.TriggerGeneric))
			Expect(err).To(HaveOccurred())
			Expect(recorder.Ended()[0].Status().Code).To(Equal(codes.Error))
		})
	})
})
