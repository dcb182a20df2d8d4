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
	"errors"
	"fmt"
	"sort"

	"trpc.group/trpc-go/spice-go/agent"
	"trpc.group/trpc-go/spice-go/bus"
	"trpc.group/trpc-go/spice-go/log"
	"trpc.group/trpc-go/spice-go/tool"
)

// Builder assembles a Graph. Add methods record problems instead of failing
// so call sites chain fluently; Build reports everything at once and then
// validates the structure.
type Builder struct {
	id          string
	nodes       map[string]Node
	nodeOrder   []string
	edges       []*Edge
	entryPoint  string
	middlewares []Middleware
	allowCycles bool
	eventBus    *bus.Bus
	errs        []error
}

// NewBuilder starts a graph with the given identifier.
func NewBuilder(id string) *Builder {
	return &Builder{id: id, nodes: make(map[string]Node)}
}

// AddNode adds any node implementation. Duplicate ids are rejected at Build.
func (b *Builder) AddNode(n Node) *Builder {
	if n == nil {
		b.errs = append(b.errs, errors.New("nil node"))
		return b
	}
	if n.ID() == "" {
		b.errs = append(b.errs, errors.New("node with empty id"))
		return b
	}
	if _, exists := b.nodes[n.ID()]; exists {
		b.errs = append(b.errs, fmt.Errorf("duplicate node id %q", n.ID()))
		return b
	}
	b.nodes[n.ID()] = n
	b.nodeOrder = append(b.nodeOrder, n.ID())
	return b
}

// AddAgentNode adds a node delegating to ag.
func (b *Builder) AddAgentNode(id string, ag agent.Agent) *Builder {
	return b.AddNode(NewAgentNode(id, ag))
}

// AddToolNode adds a node invoking t with arguments derived by extract.
func (b *Builder) AddToolNode(id string, t tool.Tool, extract ParamsExtractor) *Builder {
	return b.AddNode(NewToolNode(id, t, extract))
}

// AddOutputNode adds a terminal node computing the run result via sel.
func (b *Builder) AddOutputNode(id string, sel Selector) *Builder {
	return b.AddNode(NewOutputNode(id, sel))
}

// AddDecisionNode adds a branch-routing node.
func (b *Builder) AddDecisionNode(id string, branches []Branch, opts ...DecisionOption) *Builder {
	return b.AddNode(NewDecisionNode(id, branches, opts...))
}

// AddEngineDecisionNode adds a node routed by a decision engine.
func (b *Builder) AddEngineDecisionNode(id string, engine DecisionEngine) *Builder {
	return b.AddNode(NewEngineDecisionNode(id, engine))
}

// AddHumanNode adds a human-in-the-loop pause point.
func (b *Builder) AddHumanNode(id string, cfg HumanNodeConfig) *Builder {
	return b.AddNode(NewHumanNode(id, cfg))
}

// EdgeOption configures one edge.
type EdgeOption func(*Edge)

// WithCondition guards the edge.
func WithCondition(cond Condition) EdgeOption {
	return func(e *Edge) { e.Condition = cond }
}

// WithPriority orders the edge among its siblings, ascending.
func WithPriority(p int) EdgeOption {
	return func(e *Edge) { e.Priority = p }
}

// AsFallback marks the edge as a fallback, considered only after every
// regular edge failed to match.
func AsFallback() EdgeOption {
	return func(e *Edge) { e.Fallback = true }
}

// WithEdgeName labels the edge.
func WithEdgeName(name string) EdgeOption {
	return func(e *Edge) { e.Name = name }
}

// AddEdge connects two nodes.
func (b *Builder) AddEdge(from, to string, opts ...EdgeOption) *Builder {
	e := &Edge{From: from, To: to, seq: len(b.edges)}
	for _, opt := range opts {
		opt(e)
	}
	b.edges = append(b.edges, e)
	return b
}

// SetEntryPoint picks the node the executor dispatches from.
func (b *Builder) SetEntryPoint(id string) *Builder {
	b.entryPoint = id
	return b
}

// AllowCycles permits cycles. The executor bounds cyclic runs with its step
// budget.
func (b *Builder) AllowCycles() *Builder {
	b.allowCycles = true
	return b
}

// Use registers middleware. The first registered wraps every later one.
func (b *Builder) Use(mws ...Middleware) *Builder {
	b.middlewares = append(b.middlewares, mws...)
	return b
}

// WithEventBus attaches an event bus. The executor publishes lifecycle
// events to the channel "graph.lifecycle.<graph id>"; runs never fail on
// bus problems.
func (b *Builder) WithEventBus(eb *bus.Bus) *Builder {
	b.eventBus = eb
	return b
}

// Build validates and returns the graph.
func (b *Builder) Build() (*Graph, error) {
	if b.id == "" {
		b.errs = append(b.errs, errors.New("graph id required"))
	}
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	nodes := make(map[string]Node, len(b.nodes))
	for id, n := range b.nodes {
		nodes[id] = n
	}
	edges := append([]*Edge(nil), b.edges...)
	edgesFrom := make(map[string][]*Edge)
	for _, e := range edges {
		edgesFrom[e.From] = append(edgesFrom[e.From], e)
	}
	for _, out := range edgesFrom {
		sort.Slice(out, func(i, j int) bool {
			if out[i].Priority != out[j].Priority {
				return out[i].Priority < out[j].Priority
			}
			return out[i].seq < out[j].seq
		})
	}

	g := &Graph{
		id:          b.id,
		nodes:       nodes,
		nodeOrder:   append([]string(nil), b.nodeOrder...),
		edges:       edges,
		edgesFrom:   edgesFrom,
		entryPoint:  b.entryPoint,
		middlewares: append([]Middleware(nil), b.middlewares...),
		allowCycles: b.allowCycles,
	}

	res := validate(g)
	if !res.Valid() {
		return nil, res.Err()
	}
	for _, w := range res.Warnings {
		log.Warnf("graph %s: %s", g.id, w)
	}

	if b.eventBus != nil {
		pub, err := newLifecyclePublisher(b.eventBus, g.id)
		if err != nil {
			return nil, err
		}
		g.publisher = pub
	}
	return g, nil
}
