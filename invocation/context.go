// Package invocation models a single function invocation: the incoming
// request, the response shape, and the per-invocation context that carries
// the logger, the invocation ID, and a side channel for data that checks hand
// to the handler.
//
// Nothing in this package is shared between invocations. A Context is
// created per request and discarded when the invocation ends.
package invocation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Trigger identifies the kind of event that started an invocation.
type Trigger string

const (
	TriggerHTTP    Trigger = "httpTrigger"
	TriggerGeneric Trigger = "generic"
)

// Context is the per-invocation context handed to checks and handlers.
type Context struct {
	ID           string
	FunctionName string
	Trigger      Trigger
	Logger       *slog.Logger

	mu     sync.RWMutex
	ctx    context.Context
	values map[any]any
}

// New creates a Context. An empty id is replaced by a random UUID and a nil
// logger by slog.Default(). The logger is tagged with the invocation ID and
// function name.
func New(ctx context.Context, id, functionName string, trigger Trigger, logger *slog.Logger) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if id == "" {
		id = uuid.NewString()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		ID:           id,
		FunctionName: functionName,
		Trigger:      trigger,
		Logger:       logger.With("invocation_id", id, "function", functionName),
		ctx:          ctx,
		values:       make(map[any]any),
	}
}

// Context returns the context.Context bound to this invocation.
func (c *Context) Context() context.Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ctx
}

// SetContext replaces the bound context.Context, e.g. with one carrying a span.
func (c *Context) SetContext(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctx = ctx
}

// Set stores value under key in the side channel.
func (c *Context) Set(key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// Value returns the side-channel value stored under key.
func (c *Context) Value(key any) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// Delete removes key from the side channel.
func (c *Context) Delete(key any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
}

// Inputs returns a copy of the string-keyed side-channel entries.
func (c *Context) Inputs() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any)
	for k, v := range c.values {
		if s, ok := k.(string); ok {
			out[s] = v
		}
	}
	return out
}

// Log returns the invocation logger, falling back to slog.Default().
func (c *Context) Log() *slog.Logger {
	if c == nil || c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
