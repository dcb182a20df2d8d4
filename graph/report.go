//
// Tencent is pleased to support the open source community by making spice-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// spice-go is licensed under the Apache License Version 2.0.
//
//

package graph

import "time"

// RunStatus is the outcome of a run.
type RunStatus string

// Run statuses. PAUSED is not terminal; the other three are.
const (
	RunSuccess   RunStatus = "SUCCESS"
	RunPaused    RunStatus = "PAUSED"
	RunFailed    RunStatus = "FAILED"
	RunCancelled RunStatus = "CANCELLED"
)

// NodeStatus is the outcome of one node execution.
type NodeStatus string

// Node statuses.
const (
	NodeCompleted NodeStatus = "completed"
	NodeFailed    NodeStatus = "failed"
	NodeWaiting   NodeStatus = "waiting"
)

// NodeReport describes one executed node.
type NodeReport struct {
	NodeID string     `json:"nodeId"`
	Kind   NodeKind   `json:"kind"`
	Status NodeStatus `json:"status"`
	// Output is the node's result data.
	Output any `json:"output,omitempty"`
	// MetadataDelta is a copy of the metadata the node added.
	MetadataDelta map[string]any `json:"metadataDelta,omitempty"`
	Error         string         `json:"error,omitempty"`
	StartedAt     time.Time      `json:"startedAt"`
	Duration      time.Duration  `json:"duration"`
}

// RunReport is the full account of one run, whether it finished or paused.
// NodeReports appear in execution order.
type RunReport struct {
	GraphID string    `json:"graphId"`
	RunID   string    `json:"runId"`
	Status  RunStatus `json:"status"`
	// Result is the terminal node's data, set on SUCCESS.
	Result any `json:"result,omitempty"`
	// CheckpointID names the stored checkpoint on PAUSED, or on FAILED
	// with SaveOnError.
	CheckpointID string        `json:"checkpointId,omitempty"`
	NodeReports  []*NodeReport `json:"nodeReports"`
	Error        string        `json:"error,omitempty"`
	StartedAt    time.Time     `json:"startedAt"`
	Duration     time.Duration `json:"duration"`
}
