package invocation

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// Response is the HTTP-shaped result of an invocation. JSONBody takes
// precedence over Body when both are set.
type Response struct {
	Status   int
	Headers  http.Header
	Body     []byte
	JSONBody any
}

// JSON returns a response that renders body as JSON.
func JSON(status int, body any) *Response {
	return &Response{Status: status, JSONBody: body}
}

// Text returns a response with a raw text body.
func Text(status int, body string) *Response {
	return &Response{Status: status, Body: []byte(body)}
}

// NewResponse builds a response for an arbitrary body value. Structured
// values become a JSON payload; strings, byte slices, and other primitives
// are rendered as a raw body.
func NewResponse(status int, body any) *Response {
	resp := &Response{Status: status}
	switch b := body.(type) {
	case nil:
	case string:
		resp.Body = []byte(b)
	case []byte:
		resp.Body = b
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		resp.Body = []byte(fmt.Sprint(b))
	default:
		resp.JSONBody = b
	}
	return resp
}

// StatusCode returns Status, defaulting to 200 when unset.
func (r *Response) StatusCode() int {
	if r == nil || r.Status == 0 {
		return http.StatusOK
	}
	return r.Status
}

// Write renders the response onto w.
func (r *Response) Write(w http.ResponseWriter) {
	for k, vs := range r.Headers {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}

	switch {
	case r.JSONBody != nil:
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(r.StatusCode())
		if err := json.NewEncoder(w).Encode(r.JSONBody); err != nil {
			slog.Error("failed to encode response body", "err", err)
		}
	case len(r.Body) > 0:
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		}
		w.WriteHeader(r.StatusCode())
		_, _ = w.Write(r.Body)
	default:
		w.WriteHeader(r.StatusCode())
	}
}
