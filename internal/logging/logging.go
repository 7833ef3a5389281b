// Package logging builds the host logger, optionally tagging each record
// with the severity field a cloud log collector expects.
package logging

import (
	"context"
	"io"
	"log/slog"
)

// gcpSeverity maps slog.Level to GCP Cloud Logging severity strings.
// https://cloud.google.com/logging/docs/structured-logging#special-payload-fields
var gcpSeverity = map[slog.Level]string{
	slog.LevelDebug: "DEBUG",
	slog.LevelInfo:  "INFO",
	slog.LevelWarn:  "WARNING",
	slog.LevelError: "ERROR",
}

// azureSeverity maps slog.Level to Application Insights severityLevel values.
var azureSeverity = map[slog.Level]int{
	slog.LevelDebug: 0,
	slog.LevelInfo:  1,
	slog.LevelWarn:  2,
	slog.LevelError: 3,
}

// CloudHandler wraps a slog.Handler and adds the severity attribute of the
// configured cloud, plus an optional resource descriptor.
type CloudHandler struct {
	inner    slog.Handler
	severity func(slog.Level) slog.Attr
	resource *slog.Attr
}

// NewGCPHandler returns a handler that adds GCP "severity" to every record.
// If addResource is true, a "resource" object of type "generic_task" is
// attached as well.
func NewGCPHandler(inner slog.Handler, addResource bool) *CloudHandler {
	h := &CloudHandler{inner: inner, severity: func(l slog.Level) slog.Attr {
		sev, ok := gcpSeverity[l]
		if !ok {
			sev = "DEFAULT"
		}
		return slog.String("severity", sev)
	}}
	if addResource {
		res := slog.Any("resource", map[string]any{
			"type":   "generic_task",
			"labels": map[string]string{"service": "funcware"},
		})
		h.resource = &res
	}
	return h
}

// NewAzureHandler returns a handler that adds the Application Insights
// "severityLevel" to every record.
func NewAzureHandler(inner slog.Handler) *CloudHandler {
	return &CloudHandler{inner: inner, severity: func(l slog.Level) slog.Attr {
		sev, ok := azureSeverity[l]
		if !ok {
			sev = 4
		}
		return slog.Int("severityLevel", sev)
	}}
}

// Enabled reports whether the inner handler would log this level.
func (h *CloudHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle adds severity (and optionally resource) then forwards to the inner handler.
func (h *CloudHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(h.severity(r.Level))
	if h.resource != nil {
		r.AddAttrs(*h.resource)
	}
	return h.inner.Handle(ctx, r)
}

// WithAttrs returns a new handler with the given attributes.
func (h *CloudHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CloudHandler{inner: h.inner.WithAttrs(attrs), severity: h.severity, resource: h.resource}
}

// WithGroup returns a new handler for the given group.
func (h *CloudHandler) WithGroup(name string) slog.Handler {
	return &CloudHandler{inner: h.inner.WithGroup(name), severity: h.severity, resource: h.resource}
}

// ParseLevel maps a configured level name to slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger returns a *slog.Logger configured for the given format and cloud mode.
// Cloud mode: "" (none), "gcp" (add severity), "gcp_with_resource" (severity +
// resource), "azure" (add severityLevel).
func NewLogger(w io.Writer, level slog.Level, format string, cloudFormat string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var base slog.Handler
	if format == "text" {
		base = slog.NewTextHandler(w, opts)
	} else {
		base = slog.NewJSONHandler(w, opts)
	}
	switch cloudFormat {
	case "gcp":
		base = NewGCPHandler(base, false)
	case "gcp_with_resource":
		base = NewGCPHandler(base, true)
	case "azure":
		base = NewAzureHandler(base)
	}
	return slog.New(base)
}
