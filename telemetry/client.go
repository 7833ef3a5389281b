package telemetry

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/menezmethod/funcware/invocation"
	"github.com/menezmethod/funcware/stringify"
)

// RequestTelemetry describes the outcome of one invocation.
type RequestTelemetry struct {
	Name          string
	ResultCode    int
	Success       bool
	URL           string
	Duration      time.Duration
	CorrelationID string
	Properties    map[string]any
}

// Client records telemetry for a single invocation.
type Client struct {
	span    trace.Span
	flusher Flusher
	start   time.Time
	logger  *slog.Logger
}

type clientKey struct{}

// ClientFrom returns the client Setup stored on inv.
func ClientFrom(inv *invocation.Context) (*Client, bool) {
	v, ok := inv.Value(clientKey{})
	if !ok {
		return nil, false
	}
	c, ok := v.(*Client)
	return c, ok
}

// TrackTrace records a log line as a span event.
func (c *Client) TrackTrace(level slog.Level, msg string, attrs ...attribute.KeyValue) {
	if !c.span.IsRecording() {
		return
	}
	kv := make([]attribute.KeyValue, 0, len(attrs)+2)
	kv = append(kv, attribute.String("log.severity", level.String()), attribute.String("log.message", msg))
	kv = append(kv, attrs...)
	c.span.AddEvent("log", trace.WithAttributes(kv...))
}

// TrackRequest records the invocation outcome on the span and ends it.
func (c *Client) TrackRequest(r RequestTelemetry) {
	attrs := []attribute.KeyValue{
		attribute.String("funcware.function", r.Name),
		attribute.Int("funcware.result_code", r.ResultCode),
		attribute.Bool("funcware.success", r.Success),
		attribute.String("funcware.correlation_id", r.CorrelationID),
		attribute.Int64("funcware.duration_ms", r.Duration.Milliseconds()),
	}
	if r.URL != "" {
		attrs = append(attrs, attribute.String("url.full", r.URL), attribute.Int("http.response.status_code", r.ResultCode))
	}
	for k, v := range r.Properties {
		attrs = append(attrs, attribute.String("funcware.property."+k, stringify.Value(v)))
	}
	c.span.SetAttributes(attrs...)

	if r.Success {
		c.span.SetStatus(codes.Ok, "")
	} else {
		c.span.SetStatus(codes.Error, "request failed")
	}
	c.span.End()
}

// Flush exports buffered spans when the provider supports it.
func (c *Client) Flush(ctx context.Context) error {
	if c.flusher == nil {
		return nil
	}
	return c.flusher.ForceFlush(ctx)
}

// CorrelationID returns the trace ID of the invocation span.
func (c *Client) CorrelationID() string {
	sc := c.span.SpanContext()
	if !sc.HasTraceID() {
		return "UNDEFINED"
	}
	return sc.TraceID().String()
}

// spanHandler mirrors log records onto the invocation span.
type spanHandler struct {
	next   slog.Handler
	client *Client
	attrs  []attribute.KeyValue
}

func (h *spanHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *spanHandler) Handle(ctx context.Context, r slog.Record) error {
	attrs := append([]attribute.KeyValue(nil), h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, attribute.String("log."+a.Key, a.Value.String()))
		return true
	})
	h.client.TrackTrace(r.Level, r.Message, attrs...)
	return h.next.Handle(ctx, r)
}

func (h *spanHandler) WithAttrs(as []slog.Attr) slog.Handler {
	attrs := append([]attribute.KeyValue(nil), h.attrs...)
	for _, a := range as {
		attrs = append(attrs, attribute.String("log."+a.Key, a.Value.String()))
	}
	return &spanHandler{next: h.next.WithAttrs(as), client: h.client, attrs: attrs}
}

func (h *spanHandler) WithGroup(name string) slog.Handler {
	return &spanHandler{next: h.next.WithGroup(name), client: h.client, attrs: h.attrs}
}
