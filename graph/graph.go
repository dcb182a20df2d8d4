//
// Tencent is pleased to support the open source community by making spice-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// spice-go is licensed under the Apache License Version 2.0.
//
//

// Package graph implements the execution runtime: validated directed graphs
// of nodes, an executor that drives one immutable message through them, a
// middleware onion around run and node execution, checkpoint persistence and
// human-in-the-loop pauses.
//
// A graph is assembled with a Builder and executed by an Executor:
//
//	g, err := graph.NewBuilder("support").
//		AddAgentNode("classify", classifier).
//		AddAgentNode("billing", billingAgent).
//		AddAgentNode("technical", techAgent).
//		AddEdge("classify", "billing", graph.WithCondition(graph.WhenEquals("category", "billing"))).
//		AddEdge("classify", "technical", graph.AsFallback()).
//		SetEntryPoint("classify").
//		Build()
//	if err != nil {
//		return err
//	}
//	exec, err := graph.NewExecutor(g)
//	if err != nil {
//		return err
//	}
//	report, err := exec.Run(ctx, map[string]any{"content": "my invoice is wrong"}, execCtx)
//
// The executor runs one node at a time per run; concurrent runs share
// nothing besides the thread-safe stores and registries they were given.
package graph

// Graph is an immutable description of nodes, edges and run policy. Build
// one with a Builder; the zero value is not usable.
type Graph struct {
	id          string
	nodes       map[string]Node
	nodeOrder   []string
	edges       []*Edge
	edgesFrom   map[string][]*Edge
	entryPoint  string
	middlewares []Middleware
	allowCycles bool
	publisher   *lifecyclePublisher
}

// ID returns the graph identifier.
func (g *Graph) ID() string { return g.id }

// EntryPoint returns the node the executor dispatches from.
func (g *Graph) EntryPoint() string { return g.entryPoint }

// AllowsCycles reports whether the graph may contain cycles.
func (g *Graph) AllowsCycles() bool { return g.allowCycles }

// Node returns the node registered under id.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns the node ids in declaration order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.nodeOrder...)
}

// Edges returns all edges in declaration order.
func (g *Graph) Edges() []*Edge {
	return append([]*Edge(nil), g.edges...)
}

// EdgesFrom returns the outgoing edges of a node, sorted by ascending
// priority with declaration order breaking ties.
func (g *Graph) EdgesFrom(id string) []*Edge {
	return append([]*Edge(nil), g.edgesFrom[id]...)
}

// Middlewares returns the registered middleware in registration order.
func (g *Graph) Middlewares() []Middleware {
	return append([]Middleware(nil), g.middlewares...)
}

// Validate re-runs the structural checks. Build already validates; the
// method is exposed because validation is pure and cheap.
func (g *Graph) Validate() *ValidationResult {
	return validate(g)
}

// IsDAG reports whether the graph is acyclic. Defined independently of
// AllowsCycles.
func (g *Graph) IsDAG() bool {
	return !hasCycle(g)
}
