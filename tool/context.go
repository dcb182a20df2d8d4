//
// Tencent is pleased to support the open source community by making spice-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// spice-go is licensed under the Apache License Version 2.0.
//
//

package tool

import "context"

// contextKeyCall is the context key type for the per-invocation call context.
type contextKeyCall struct{}

// NewContextWithCall returns a context carrying the call context, so tools
// written as plain functions can still see run, node and call identifiers.
func NewContextWithCall(ctx context.Context, call *CallContext) context.Context {
	if call == nil {
		return ctx
	}
	return context.WithValue(ctx, contextKeyCall{}, call)
}

// CallFromContext retrieves the call context injected by the executor.
// Returns the call context and true if found, nil and false otherwise.
func CallFromContext(ctx context.Context) (*CallContext, bool) {
	call, ok := ctx.Value(contextKeyCall{}).(*CallContext)
	return call, ok
}
