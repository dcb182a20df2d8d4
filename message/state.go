//
// Tencent is pleased to support the open source community by making spice-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// spice-go is licensed under the Apache License Version 2.0.
//
//

package message

// ExecutionState represents where a message is in its run lifecycle.
type ExecutionState string

// Execution states.
const (
	// StateCreated is the state of a freshly built message.
	StateCreated ExecutionState = "CREATED"
	// StateRunning is the state while the graph is executing.
	StateRunning ExecutionState = "RUNNING"
	// StateWaiting is the state of a run paused for human input.
	StateWaiting ExecutionState = "WAITING"
	// StateCompleted is the terminal state of a successful run.
	StateCompleted ExecutionState = "COMPLETED"
	// StateFailed is the terminal state of a failed run.
	StateFailed ExecutionState = "FAILED"
	// StateCancelled is the terminal state of a cancelled run.
	StateCancelled ExecutionState = "CANCELLED"
)

// stateTransitions lists the legal next states per state. Terminal states
// have no successors.
var stateTransitions = map[ExecutionState][]ExecutionState{
	StateCreated:   {StateRunning, StateCancelled},
	StateRunning:   {StateWaiting, StateCompleted, StateFailed, StateCancelled},
	StateWaiting:   {StateRunning, StateFailed, StateCancelled},
	StateCompleted: {},
	StateFailed:    {},
	StateCancelled: {},
}

// IsValid checks whether the state is one of the declared constants.
func (s ExecutionState) IsValid() bool {
	_, ok := stateTransitions[s]
	return ok
}

// Terminal reports whether no further transitions are possible.
func (s ExecutionState) Terminal() bool {
	next, ok := stateTransitions[s]
	return ok && len(next) == 0
}

// CanTransition reports whether moving from s to target is legal.
func (s ExecutionState) CanTransition(target ExecutionState) bool {
	for _, next := range stateTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// String returns the string representation of the state.
func (s ExecutionState) String() string {
	return string(s)
}
