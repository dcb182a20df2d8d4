//
// Tencent is pleased to support the open source community by making spice-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// spice-go is licensed under the Apache License Version 2.0.
//
//

package graph

import "fmt"

// validate applies the structural rules. It is pure: the same graph produces
// the same result on every call, which is why it iterates nodeOrder instead
// of the node map.
func validate(g *Graph) *ValidationResult {
	res := &ValidationResult{}
	if len(g.nodes) == 0 {
		res.Errors = append(res.Errors, &ValidationError{Message: "graph has no nodes"})
		return res
	}

	entryKnown := false
	if g.entryPoint == "" {
		res.Errors = append(res.Errors, &ValidationError{Message: "entry point not set"})
	} else if _, ok := g.nodes[g.entryPoint]; !ok {
		res.Errors = append(res.Errors, &ValidationError{
			NodeID:  g.entryPoint,
			Message: "entry point is not a node",
		})
	} else {
		entryKnown = true
	}

	for _, e := range g.edges {
		if _, ok := g.nodes[e.From]; !ok {
			res.Errors = append(res.Errors, &ValidationError{
				NodeID:  e.From,
				Message: fmt.Sprintf("edge %s starts at an unknown node", edgeLabel(e)),
			})
		}
		if _, ok := g.nodes[e.To]; !ok {
			res.Errors = append(res.Errors, &ValidationError{
				NodeID:  e.To,
				Message: fmt.Sprintf("edge %s ends at an unknown node", edgeLabel(e)),
			})
		}
	}

	for _, id := range g.nodeOrder {
		if g.nodes[id].Kind() == KindOutput && len(g.edgesFrom[id]) > 0 {
			res.Errors = append(res.Errors, &ValidationError{
				NodeID:  id,
				Message: "output node has outgoing edges",
			})
		}
	}

	// Every declared decision target needs an edge leading there, unless a
	// fallback edge catches the rest.
	for _, id := range g.nodeOrder {
		d, ok := g.nodes[id].(*DecisionNode)
		if !ok {
			continue
		}
		hasFallback := false
		targets := make(map[string]bool)
		for _, e := range g.edgesFrom[id] {
			if e.Fallback {
				hasFallback = true
			}
			targets[e.To] = true
		}
		if hasFallback {
			continue
		}
		for _, b := range d.Branches() {
			if !targets[b.Target] {
				res.Errors = append(res.Errors, &ValidationError{
					NodeID:  id,
					Message: fmt.Sprintf("branch %q targets %q but no edge leads there", b.Name, b.Target),
				})
			}
		}
		if t := d.Otherwise(); t != "" && !targets[t] {
			res.Errors = append(res.Errors, &ValidationError{
				NodeID:  id,
				Message: fmt.Sprintf("otherwise targets %q but no edge leads there", t),
			})
		}
	}

	if entryKnown {
		seen := reachable(g)
		for _, id := range g.nodeOrder {
			if !seen[id] {
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("node %q is unreachable from entry point %q", id, g.entryPoint))
			}
		}
	}

	if !g.allowCycles && hasCycle(g) {
		res.Errors = append(res.Errors, &ValidationError{
			Message: "graph has a cycle and cycles are not allowed",
		})
	}
	return res
}

func edgeLabel(e *Edge) string {
	if e.Name != "" {
		return fmt.Sprintf("%q (%s -> %s)", e.Name, e.From, e.To)
	}
	return fmt.Sprintf("%s -> %s", e.From, e.To)
}

// reachable walks the edge set breadth-first from the entry point.
func reachable(g *Graph) map[string]bool {
	seen := map[string]bool{g.entryPoint: true}
	queue := []string{g.entryPoint}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, e := range g.edgesFrom[id] {
			if _, ok := g.nodes[e.To]; !ok {
				continue
			}
			if !seen[e.To] {
				seen[e.To] = true
				queue = append(queue, e.To)
			}
		}
	}
	return seen
}

// hasCycle runs a three-color depth-first search over the edge set.
func hasCycle(g *Graph) bool {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(g.nodes))
	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = grey
		for _, e := range g.edgesFrom[id] {
			if _, ok := g.nodes[e.To]; !ok {
				continue
			}
			switch color[e.To] {
			case grey:
				return true
			case white:
				if visit(e.To) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}
	for _, id := range g.nodeOrder {
		if color[id] == white && visit(id) {
			return true
		}
	}
	return false
}
