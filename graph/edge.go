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
	"reflect"

	"trpc.group/trpc-go/spice-go/message"
)

// Condition decides whether an edge is taken, given the just-finished node's
// result and the state already folded from it. A nil Condition always
// matches.
type Condition func(res *NodeResult, state message.Data) bool

// Edge is a directed transition between two nodes. Edges are evaluated in
// ascending Priority, declaration order breaking ties; fallback edges only
// compete once every regular edge has failed to match.
type Edge struct {
	From string
	To   string
	// Condition guards the edge. Nil matches unconditionally.
	Condition Condition
	// Priority orders evaluation, ascending.
	Priority int
	// Fallback edges are evaluated only when no regular edge matched.
	Fallback bool
	// Name labels the edge in logs and validation messages.
	Name string

	// seq is the declaration index, the tie-break after Priority.
	seq int
}

// Always returns a condition that matches unconditionally. Same meaning as a
// nil condition, but reads better at call sites.
func Always() Condition {
	return func(*NodeResult, message.Data) bool { return true }
}

// WhenEquals matches when state[key] equals want.
func WhenEquals(key string, want any) Condition {
	return func(_ *NodeResult, state message.Data) bool {
		v, ok := state.Get(key)
		return ok && reflect.DeepEqual(v, want)
	}
}

// WhenBranch matches when a decision node selected target.
func WhenBranch(target string) Condition {
	return WhenEquals(KeySelectedBranch, target)
}

// WhenDecision matches when a decision engine returned resultID.
func WhenDecision(resultID string) Condition {
	return WhenEquals(KeyDecisionResult, resultID)
}

// WhenOption matches when the human reviewer selected optionID.
func WhenOption(optionID string) Condition {
	return WhenEquals(KeySelectedOption, optionID)
}
