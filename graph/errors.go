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
)

var (
	// ErrStepBudgetExceeded is returned when a run executes more nodes
	// than the executor's step budget allows.
	ErrStepBudgetExceeded = errors.New("graph: step budget exceeded")

	// ErrNoMatchingEdge is returned when a node has outgoing edges but
	// none of their conditions matched.
	ErrNoMatchingEdge = errors.New("graph: no matching edge")

	// ErrNodeNotFound is returned when an edge or checkpoint references a
	// node the graph does not contain.
	ErrNodeNotFound = errors.New("graph: node not found")

	// ErrCheckpointNotFound is returned when resuming from an id the store
	// does not hold.
	ErrCheckpointNotFound = errors.New("graph: checkpoint not found")

	// ErrNoCheckpointStore is returned when a checkpoint operation is
	// requested on an executor built without a store.
	ErrNoCheckpointStore = errors.New("graph: no checkpoint store configured")
)

// ValidationError reports one structural problem in a graph, or a rejected
// human response on resume.
type ValidationError struct {
	// NodeID names the offending node, empty for graph-level problems.
	NodeID  string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("graph validation: %s", e.Message)
	}
	return fmt.Sprintf("graph validation at node %q: %s", e.NodeID, e.Message)
}

// ValidationResult collects everything a validation pass found. Warnings do
// not make a graph invalid.
type ValidationResult struct {
	Errors   []*ValidationError
	Warnings []string
}

// Valid reports whether the graph passed validation.
func (r *ValidationResult) Valid() bool { return len(r.Errors) == 0 }

// Err joins all validation errors into one, or nil for a valid result.
func (r *ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// ExecutionError reports a node failure during a run.
type ExecutionError struct {
	// NodeID is the node that failed.
	NodeID string
	// Step is the zero-based step index at which the failure happened.
	Step int
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("node %q failed at step %d: %v", e.NodeID, e.Step, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExecutionError) Unwrap() error { return e.Err }

// CheckpointError reports a checkpoint store failure.
type CheckpointError struct {
	Op           string
	CheckpointID string
	Err          error
}

// Error implements the error interface.
func (e *CheckpointError) Error() string {
	if e.CheckpointID == "" {
		return fmt.Sprintf("checkpoint %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("checkpoint %s %q: %v", e.Op, e.CheckpointID, e.Err)
}

// Unwrap returns the underlying error.
func (e *CheckpointError) Unwrap() error { return e.Err }

// TimeoutError reports an expired checkpoint or interaction on resume, or a
// run that outlived its deadline.
type TimeoutError struct {
	// CheckpointID is set when the timeout was detected on resume.
	CheckpointID string
	// NodeID is the node the run was at when the deadline lapsed.
	NodeID  string
	Message string
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	switch {
	case e.CheckpointID != "":
		return fmt.Sprintf("checkpoint %q timed out: %s", e.CheckpointID, e.Message)
	case e.NodeID != "":
		return fmt.Sprintf("timeout at node %q: %s", e.NodeID, e.Message)
	default:
		return fmt.Sprintf("timeout: %s", e.Message)
	}
}

// CancellationError reports a run aborted by the caller's context.
type CancellationError struct {
	RunID string
	Err   error
}

// Error implements the error interface.
func (e *CancellationError) Error() string {
	return fmt.Sprintf("run %q cancelled: %v", e.RunID, e.Err)
}

// Unwrap returns the underlying error.
func (e *CancellationError) Unwrap() error { return e.Err }
