//
// Tencent is pleased to support the open source community by making spice-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// spice-go is licensed under the Apache License Version 2.0.
//
//

// Package execution provides the immutable execution context that travels
// with a graph run. The context carries cross-cutting attributes such as
// tenant, user, session and correlation identifiers, plus arbitrary typed
// values. It is never serialized into messages or checkpoints; callers
// re-supply it on resume.
package execution

import (
	"context"
	"sort"
)

// Well-known context keys.
const (
	KeyTenantID      = "tenantId"
	KeyUserID        = "userId"
	KeySessionID     = "sessionId"
	KeyCorrelationID = "correlationId"
)

// Context is an immutable key-value map. All mutating operations return a
// new Context; the receiver is never changed. The zero value is an empty,
// usable context.
type Context struct {
	values map[string]any
}

// Option configures a Context under construction.
type Option func(*Context)

// WithTenantID sets the tenant identifier.
func WithTenantID(id string) Option {
	return func(c *Context) { c.values[KeyTenantID] = id }
}

// WithUserID sets the user identifier.
func WithUserID(id string) Option {
	return func(c *Context) { c.values[KeyUserID] = id }
}

// WithSessionID sets the session identifier.
func WithSessionID(id string) Option {
	return func(c *Context) { c.values[KeySessionID] = id }
}

// WithCorrelationID sets the correlation identifier.
func WithCorrelationID(id string) Option {
	return func(c *Context) { c.values[KeyCorrelationID] = id }
}

// WithValue sets an arbitrary key-value pair.
func WithValue(key string, value any) Option {
	return func(c *Context) { c.values[key] = value }
}

// New creates a Context from the given options.
func New(opts ...Option) Context {
	c := Context{values: make(map[string]any)}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Get returns the value stored under key.
func (c Context) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// GetString returns the string value stored under key. It reports false when
// the key is absent or holds a non-string value.
func (c Context) GetString(key string) (string, bool) {
	v, ok := c.values[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// TenantID returns the tenant identifier, or "" when absent.
func (c Context) TenantID() string {
	s, _ := c.GetString(KeyTenantID)
	return s
}

// UserID returns the user identifier, or "" when absent.
func (c Context) UserID() string {
	s, _ := c.GetString(KeyUserID)
	return s
}

// SessionID returns the session identifier, or "" when absent.
func (c Context) SessionID() string {
	s, _ := c.GetString(KeySessionID)
	return s
}

// CorrelationID returns the correlation identifier, or "" when absent.
func (c Context) CorrelationID() string {
	s, _ := c.GetString(KeyCorrelationID)
	return s
}

// Require returns the value stored under key, failing with a
// MissingKeyError when it is absent.
func (c Context) Require(key string) (any, error) {
	v, ok := c.values[key]
	if !ok {
		return nil, &MissingKeyError{Key: key}
	}
	return v, nil
}

// RequireString returns the string stored under key, failing with a
// MissingKeyError when the key is absent or holds a non-string value.
func (c Context) RequireString(key string) (string, error) {
	s, ok := c.GetString(key)
	if !ok {
		return "", &MissingKeyError{Key: key}
	}
	return s, nil
}

// RequireTenantID returns the tenant identifier or a MissingKeyError.
func (c Context) RequireTenantID() (string, error) {
	return c.RequireString(KeyTenantID)
}

// RequireUserID returns the user identifier or a MissingKeyError.
func (c Context) RequireUserID() (string, error) {
	return c.RequireString(KeyUserID)
}

// RequireSessionID returns the session identifier or a MissingKeyError.
func (c Context) RequireSessionID() (string, error) {
	return c.RequireString(KeySessionID)
}

// RequireCorrelationID returns the correlation identifier or a
// MissingKeyError.
func (c Context) RequireCorrelationID() (string, error) {
	return c.RequireString(KeyCorrelationID)
}

// With returns a new Context with key set to value.
func (c Context) With(key string, value any) Context {
	next := make(map[string]any, len(c.values)+1)
	for k, v := range c.values {
		next[k] = v
	}
	next[key] = value
	return Context{values: next}
}

// Merge returns a new Context combining the receiver with other. Keys
// present in both take other's value.
func (c Context) Merge(other Context) Context {
	next := make(map[string]any, len(c.values)+len(other.values))
	for k, v := range c.values {
		next[k] = v
	}
	for k, v := range other.values {
		next[k] = v
	}
	return Context{values: next}
}

// Keys returns the context keys in sorted order.
func (c Context) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of stored keys.
func (c Context) Len() int {
	return len(c.values)
}

type contextKey struct{}

// NewContext returns a context.Context carrying ec. The executor installs
// the run's execution context before every node invocation so nested calls
// can read it without parameter threading.
func NewContext(ctx context.Context, ec Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ec)
}

// FromContext returns the execution Context carried by ctx.
func FromContext(ctx context.Context) (Context, bool) {
	ec, ok := ctx.Value(contextKey{}).(Context)
	return ec, ok
}
