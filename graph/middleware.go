//
// Tencent is pleased to support the open source community by making spice-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// spice-go is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"context"

	"trpc.group/trpc-go/spice-go/execution"
)

// RunInfo describes a starting run to OnStart hooks.
type RunInfo struct {
	GraphID string
	RunID   string
	// EntryPoint is the first node the run dispatches to. For resumed runs
	// it is the checkpointed node.
	EntryPoint string
	// Resumed is true when the run continues from a checkpoint.
	Resumed bool
	// Exec is the caller's execution context.
	Exec execution.Context
}

// NodeHandler advances one node. Middleware receives the downstream handler
// as next and decides whether and how to call it.
type NodeHandler func(ctx context.Context, nc *NodeContext) (*NodeResult, error)

// Middleware intercepts run and node execution. Registration order matters:
// the first registered middleware wraps every later one, like the outermost
// layer of an onion.
//
// OnFinish fires once per terminal run (SUCCESS, FAILED, CANCELLED) in
// registration order. Paused runs do not finish; a resumed continuation gets
// its own OnStart/OnFinish pair.
type Middleware interface {
	// OnStart wraps the whole run. Call next to proceed; returning early
	// without calling it fails the run.
	OnStart(ctx context.Context, info *RunInfo, next func(ctx context.Context) error) error
	// OnNode wraps one node execution.
	OnNode(ctx context.Context, node Node, nc *NodeContext, next NodeHandler) (*NodeResult, error)
	// OnFinish observes the final report. It cannot alter the outcome.
	OnFinish(ctx context.Context, report *RunReport)
}

// BaseMiddleware implements Middleware with pass-through behavior. Embed it
// and override only the hooks you need.
type BaseMiddleware struct{}

// OnStart calls next.
func (BaseMiddleware) OnStart(ctx context.Context, _ *RunInfo, next func(ctx context.Context) error) error {
	return next(ctx)
}

// OnNode calls next.
func (BaseMiddleware) OnNode(ctx context.Context, _ Node, nc *NodeContext, next NodeHandler) (*NodeResult, error) {
	return next(ctx, nc)
}

// OnFinish does nothing.
func (BaseMiddleware) OnFinish(context.Context, *RunReport) {}

// composeStart nests the OnStart hooks around inner so the first registered
// middleware runs outermost.
func composeStart(mws []Middleware, info *RunInfo, inner func(ctx context.Context) error) func(ctx context.Context) error {
	next := inner
	for i := len(mws) - 1; i >= 0; i-- {
		mw, downstream := mws[i], next
		next = func(ctx context.Context) error {
			return mw.OnStart(ctx, info, downstream)
		}
	}
	return next
}

// composeNode nests the OnNode hooks around the node handler itself.
func composeNode(mws []Middleware, node Node, inner NodeHandler) NodeHandler {
	next := inner
	for i := len(mws) - 1; i >= 0; i-- {
		mw, downstream := mws[i], next
		next = func(ctx context.Context, nc *NodeContext) (*NodeResult, error) {
			return mw.OnNode(ctx, node, nc, downstream)
		}
	}
	return next
}
