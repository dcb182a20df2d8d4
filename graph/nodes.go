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
	"errors"
	"fmt"

	"trpc.group/trpc-go/spice-go/agent"
	"trpc.group/trpc-go/spice-go/message"
	"trpc.group/trpc-go/spice-go/tool"
)

// AgentNode delegates message processing to an agent.
type AgentNode struct {
	id    string
	agent agent.Agent
}

// NewAgentNode builds an agent node.
func NewAgentNode(id string, ag agent.Agent) *AgentNode {
	return &AgentNode{id: id, agent: ag}
}

// ID implements Node.
func (n *AgentNode) ID() string { return n.id }

// Kind implements Node.
func (n *AgentNode) Kind() NodeKind { return KindAgent }

// Run passes the current message to the agent. The reply's content becomes
// the node data; the reply's data entries and any tool calls are exposed
// through metadata so they propagate into the successor's state.
func (n *AgentNode) Run(ctx context.Context, nc *NodeContext) (*NodeResult, error) {
	if n.agent == nil {
		return nil, errors.New("agent node has no agent")
	}
	if !n.agent.Ready() {
		return nil, fmt.Errorf("agent %q is not ready", n.agent.Info().Name)
	}
	reply, err := n.agent.Process(ctx, nc.Message)
	if err != nil {
		return nil, err
	}
	res := NewReply(nc, reply)
	if reply == nil {
		return res, nil
	}
	for k, v := range reply.Data.ToMap() {
		res.WithMetadata(k, v)
	}
	if reply.HasToolCalls() {
		calls := reply.ToolCalls()
		res.WithMetadata(message.KeyToolCalls, calls).
			WithMetadata(KeyHasToolCalls, true).
			WithMetadata(KeyToolCallCount, len(calls))
	}
	return res, nil
}

// ParamsExtractor derives tool arguments from the run state.
type ParamsExtractor func(state message.Data) map[string]any

// ToolNode invokes one tool with arguments extracted from the run state.
type ToolNode struct {
	id      string
	tool    tool.Tool
	extract ParamsExtractor
}

// NewToolNode builds a tool node. A nil extractor passes the whole state as
// arguments.
func NewToolNode(id string, t tool.Tool, extract ParamsExtractor) *ToolNode {
	return &ToolNode{id: id, tool: t, extract: extract}
}

// ID implements Node.
func (n *ToolNode) ID() string { return n.id }

// Kind implements Node.
func (n *ToolNode) Kind() NodeKind { return KindTool }

// Run executes the tool. A ToolResult with Success=false fails the node so
// middleware retry and skip policies apply to tool errors like any other.
func (n *ToolNode) Run(ctx context.Context, nc *NodeContext) (*NodeResult, error) {
	if n.tool == nil {
		return nil, errors.New("tool node has no tool")
	}
	var args map[string]any
	if n.extract != nil {
		args = n.extract(nc.State)
	} else {
		args = nc.State.ToMap()
	}
	call := &tool.CallContext{RunID: nc.RunID, NodeID: n.id, Exec: nc.Exec}
	result, err := n.tool.Execute(ctx, args, call)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("tool %q returned no result", n.tool.Name())
	}
	if !result.Success {
		return nil, fmt.Errorf("tool %q failed: %s", n.tool.Name(), result.Error)
	}
	res := NewResult(nc, result.Output)
	res.WithMetadata(KeyToolSuccess, true)
	for k, v := range result.Metadata {
		res.WithMetadata(k, v)
	}
	return res, nil
}

// Selector computes the terminal result from the final state.
type Selector func(state message.Data) any

// OutputNode computes the run's terminal result. Output nodes must not have
// outgoing edges; validation enforces it.
type OutputNode struct {
	id  string
	sel Selector
}

// NewOutputNode builds an output node. A nil selector returns the previous
// node's data.
func NewOutputNode(id string, sel Selector) *OutputNode {
	return &OutputNode{id: id, sel: sel}
}

// ID implements Node.
func (n *OutputNode) ID() string { return n.id }

// Kind implements Node.
func (n *OutputNode) Kind() NodeKind { return KindOutput }

// Run implements Node.
func (n *OutputNode) Run(_ context.Context, nc *NodeContext) (*NodeResult, error) {
	if n.sel != nil {
		return NewResult(nc, n.sel(nc.State)), nil
	}
	prev, _ := nc.State.Get(KeyPrevious)
	return NewResult(nc, prev), nil
}

// Branch is one decision alternative. Branches are evaluated in declaration
// order; the first match wins.
type Branch struct {
	// Name labels the branch in state and reports.
	Name string
	// Target is the node the branch routes to.
	Target string
	// When decides whether the branch matches. Nil always matches.
	When func(msg *message.Message, state message.Data) bool
}

// DecisionNode routes by evaluating branches against the current message and
// state. The selected target lands in state under KeySelectedBranch, which
// is what the node's outgoing edges should match on (see WhenBranch).
type DecisionNode struct {
	id        string
	branches  []Branch
	otherwise string
}

// DecisionOption configures a decision node.
type DecisionOption func(*DecisionNode)

// WithOtherwise sets the target taken when no branch matches.
func WithOtherwise(target string) DecisionOption {
	return func(n *DecisionNode) { n.otherwise = target }
}

// NewDecisionNode builds a decision node.
func NewDecisionNode(id string, branches []Branch, opts ...DecisionOption) *DecisionNode {
	n := &DecisionNode{id: id, branches: append([]Branch(nil), branches...)}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// ID implements Node.
func (n *DecisionNode) ID() string { return n.id }

// Kind implements Node.
func (n *DecisionNode) Kind() NodeKind { return KindDecision }

// Run implements Node. No matching branch and no otherwise target is a node
// failure.
func (n *DecisionNode) Run(_ context.Context, nc *NodeContext) (*NodeResult, error) {
	for _, b := range n.branches {
		if b.When != nil && !b.When(nc.Message, nc.State) {
			continue
		}
		return n.selected(nc, b.Name, b.Target), nil
	}
	if n.otherwise != "" {
		return n.selected(nc, "otherwise", n.otherwise), nil
	}
	return nil, fmt.Errorf("decision %q matched no branch", n.id)
}

func (n *DecisionNode) selected(nc *NodeContext, name, target string) *NodeResult {
	res := NewResult(nc, target)
	res.WithMetadata(KeySelectedBranch, target).
		WithMetadata(KeyDecisionNodeID, n.id).
		WithMetadata(KeyBranchName, name)
	return res
}

// Branches returns the declared branches.
func (n *DecisionNode) Branches() []Branch {
	return append([]Branch(nil), n.branches...)
}

// Otherwise returns the fallback target, empty when none is set.
func (n *DecisionNode) Otherwise() string { return n.otherwise }

// DecisionResult is a policy engine's verdict.
type DecisionResult struct {
	// ResultID is the stable identifier edges match on.
	ResultID string
	// Reason explains the verdict for logs and audits.
	Reason string
	// Attributes carries engine-specific extras, folded into state.
	Attributes map[string]any
}

// DecisionEngine is an injected routing policy.
type DecisionEngine interface {
	Decide(ctx context.Context, msg *message.Message, state message.Data) (*DecisionResult, error)
}

// EngineDecisionNode delegates routing to a decision engine. Successor edges
// match on state under KeyDecisionResult (see WhenDecision).
type EngineDecisionNode struct {
	id     string
	engine DecisionEngine
}

// NewEngineDecisionNode builds an engine-backed decision node.
func NewEngineDecisionNode(id string, engine DecisionEngine) *EngineDecisionNode {
	return &EngineDecisionNode{id: id, engine: engine}
}

// ID implements Node.
func (n *EngineDecisionNode) ID() string { return n.id }

// Kind implements Node.
func (n *EngineDecisionNode) Kind() NodeKind { return KindEngineDecision }

// Run implements Node.
func (n *EngineDecisionNode) Run(ctx context.Context, nc *NodeContext) (*NodeResult, error) {
	if n.engine == nil {
		return nil, errors.New("engine decision node has no engine")
	}
	verdict, err := n.engine.Decide(ctx, nc.Message, nc.State)
	if err != nil {
		return nil, err
	}
	if verdict == nil || verdict.ResultID == "" {
		return nil, fmt.Errorf("engine decision %q produced no result id", n.id)
	}
	res := NewResult(nc, verdict.ResultID)
	res.WithMetadata(KeyDecisionResult, verdict.ResultID).
		WithMetadata(KeyDecisionNodeID, n.id)
	for k, v := range verdict.Attributes {
		res.WithMetadata(k, v)
	}
	return res, nil
}
