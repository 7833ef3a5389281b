package invocation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
)

// ErrMalformedJSON is returned by Request.JSON when the body is not valid JSON.
var ErrMalformedJSON = errors.New("malformed json")

// Request wraps an incoming *http.Request so that its body can be read more
// than once. Checks read through Clone; the handler reads the original.
type Request struct {
	*http.Request

	params map[string]string

	once    sync.Once
	raw     []byte
	readErr error
}

// NewRequest wraps r. params holds route parameters that were resolved by
// the host; they take precedence over r.PathValue.
func NewRequest(r *http.Request, params map[string]string) *Request {
	return &Request{Request: r, params: params}
}

// Params returns a read-only view of the route parameters.
func (r *Request) Params() Params {
	return Params{req: r}
}

// Query returns the parsed query string.
func (r *Request) Query() url.Values {
	if r.Request.URL == nil {
		return url.Values{}
	}
	return r.Request.URL.Query()
}

// Bytes returns the full body without consuming the original reader.
func (r *Request) Bytes() ([]byte, error) {
	r.buffer()
	return r.raw, r.readErr
}

// Clone returns a copy of the request with its own body reader positioned at
// the start. Reading the clone leaves the original untouched.
func (r *Request) Clone() *Request {
	r.buffer()
	c := r.Request.Clone(r.Request.Context())
	c.Body = io.NopCloser(bytes.NewReader(r.raw))
	clone := &Request{Request: c, params: r.params, raw: r.raw, readErr: r.readErr}
	clone.once.Do(func() {})
	return clone
}

// JSON decodes the body into v. An empty body leaves v untouched and returns
// nil. Invalid JSON yields an error wrapping ErrMalformedJSON.
func (r *Request) JSON(v any) error {
	body, err := r.Bytes()
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
		}
		return err
	}
	return nil
}

// buffer reads the original body once and replaces it with a fresh reader
// over the buffered bytes.
func (r *Request) buffer() {
	r.once.Do(func() {
		if r.Request.Body == nil || r.Request.Body == http.NoBody {
			return
		}
		r.raw, r.readErr = io.ReadAll(r.Request.Body)
		_ = r.Request.Body.Close()
		r.Request.Body = io.NopCloser(bytes.NewReader(r.raw))
	})
}

// Params exposes route parameters by name.
type Params struct {
	req *Request
}

// Get returns the named parameter, or "" if absent.
func (p Params) Get(name string) string {
	if p.req == nil {
		return ""
	}
	if v, ok := p.req.params[name]; ok {
		return v
	}
	return p.req.Request.PathValue(name)
}
