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
	"trpc.group/trpc-go/spice-go/message"
)

// NodeKind identifies the built-in node variants.
type NodeKind string

// Node kinds.
const (
	KindAgent          NodeKind = "agent"
	KindTool           NodeKind = "tool"
	KindOutput         NodeKind = "output"
	KindDecision       NodeKind = "decision"
	KindEngineDecision NodeKind = "engine_decision"
	KindHuman          NodeKind = "human"
)

// Node is one unit of computation in a graph.
type Node interface {
	// ID returns the node identifier, unique within its graph.
	ID() string
	// Kind returns the node variant.
	Kind() NodeKind
	// Run executes the node against the current run state and returns its
	// result. Errors become ExecutionErrors unless middleware intervenes.
	Run(ctx context.Context, nc *NodeContext) (*NodeResult, error)
}

// NodeContext is the read-only view a node gets of its run. The executor
// builds a fresh one per step; nodes must not retain it past Run.
type NodeContext struct {
	GraphID string
	RunID   string
	// Step is the zero-based index of this execution within the run.
	Step int
	// State carries prior node outputs and propagated metadata.
	State message.Data
	// Exec is the caller's ambient execution context.
	Exec execution.Context
	// Message is the current message version.
	Message *message.Message
}

// NodeResult is what a node hands back to the executor. Results are only
// built through the factory functions below: they seed metadata from the
// NodeContext, so correlation and tenant identifiers survive every hop
// without the node's cooperation.
type NodeResult struct {
	data        any
	metadata    map[string]any
	nextEdges   []string
	reply       *message.Message
	interaction *HumanInteraction
}

func newNodeResult(nc *NodeContext) *NodeResult {
	md := make(map[string]any)
	if id := nc.Exec.CorrelationID(); id != "" {
		md[KeyCorrelationID] = id
	}
	if id := nc.Exec.TenantID(); id != "" {
		md[KeyTenantID] = id
	}
	return &NodeResult{metadata: md}
}

// NewResult builds a plain result carrying data.
func NewResult(nc *NodeContext, data any) *NodeResult {
	r := newNodeResult(nc)
	r.data = data
	return r
}

// NewReply builds a result from an agent reply. The reply's content becomes
// the result data; the executor stores the full reply under
// KeyPreviousMessage and adopts it as the current message.
func NewReply(nc *NodeContext, reply *message.Message) *NodeResult {
	r := newNodeResult(nc)
	r.reply = reply
	if reply != nil {
		r.data = reply.Content
	}
	return r
}

// NewInterrupt builds the waiting result a human node pauses the run with.
func NewInterrupt(nc *NodeContext, interaction *HumanInteraction) *NodeResult {
	r := newNodeResult(nc)
	r.interaction = interaction
	r.metadata[KeyExecutionState] = string(message.StateWaiting)
	return r
}

// WithMetadata sets one metadata key and returns the result for chaining.
// Every metadata key is folded into the successor's state by the executor.
func (r *NodeResult) WithMetadata(key string, value any) *NodeResult {
	r.metadata[key] = value
	return r
}

// WithNextEdges records a successor hint. Reserved for fan-out; the executor
// does not act on it yet.
func (r *NodeResult) WithNextEdges(names ...string) *NodeResult {
	r.nextEdges = append([]string(nil), names...)
	return r
}

// Data returns the node output.
func (r *NodeResult) Data() any { return r.data }

// Metadata returns the metadata map. Treat it as read-only.
func (r *NodeResult) Metadata() map[string]any { return r.metadata }

// Reply returns the agent reply carried by the result, nil for non-agent
// results.
func (r *NodeResult) Reply() *message.Message { return r.reply }

// Interaction returns the pending human interaction, nil unless the result
// pauses the run.
func (r *NodeResult) Interaction() *HumanInteraction { return r.interaction }

// NextEdges returns the successor hint recorded by WithNextEdges.
func (r *NodeResult) NextEdges() []string { return r.nextEdges }

// Waiting reports whether the result pauses the run for human input.
func (r *NodeResult) Waiting() bool {
	v, ok := r.metadata[KeyExecutionState]
	return ok && v == string(message.StateWaiting)
}
