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
	"time"

	"trpc.group/trpc-go/spice-go/message"
)

// Checkpoint is a serialized snapshot of a paused or failed run. The message
// inside carries the folded state map and its full history, which is
// everything a resume needs besides the graph itself. The execution context
// is deliberately absent; callers re-supply it on resume.
type Checkpoint struct {
	ID      string `json:"id"`
	RunID   string `json:"runId"`
	GraphID string `json:"graphId"`
	// NodeID is the node the run stopped at.
	NodeID             string            `json:"nodeId"`
	Message            *message.Message  `json:"message"`
	PendingInteraction *HumanInteraction `json:"pendingInteraction,omitempty"`
	CreatedAt          time.Time         `json:"createdAt"`
	ExpiresAt          *time.Time        `json:"expiresAt,omitempty"`
}

// IsExpired reports whether the checkpoint's TTL has lapsed.
func (c *Checkpoint) IsExpired() bool {
	return c.ExpiresAt != nil && time.Now().After(*c.ExpiresAt)
}

// CheckpointStore persists checkpoints. Implementations must be safe for
// concurrent use. Save is atomic per checkpoint id; concurrent saves on the
// same id are last-writer-wins.
type CheckpointStore interface {
	// Save persists the checkpoint under its id, replacing any previous
	// version.
	Save(ctx context.Context, ckpt *Checkpoint) error
	// Load returns the checkpoint, or (nil, nil) when the id is unknown.
	Load(ctx context.Context, id string) (*Checkpoint, error)
	// ListByRun returns every checkpoint of a run, oldest first.
	ListByRun(ctx context.Context, runID string) ([]*Checkpoint, error)
	// Delete removes one checkpoint. Unknown ids are not an error.
	Delete(ctx context.Context, id string) error
	// DeleteByRun removes every checkpoint of a run.
	DeleteByRun(ctx context.Context, runID string) error
	// CleanupExpired removes expired checkpoints and reports how many.
	CleanupExpired(ctx context.Context) (int, error)
}

// CheckpointConfig tunes when checkpoints are written and how long they
// live.
type CheckpointConfig struct {
	// TTL bounds a checkpoint's lifetime. Zero disables expiry.
	TTL time.Duration
	// AutoCleanup deletes the consumed checkpoint once its resumed run
	// completes successfully.
	AutoCleanup bool
	// SaveOnError persists a FAILED checkpoint when a node fails, so an
	// operator can retry the failing step.
	SaveOnError bool
	// SaveEveryNNodes persists a periodic checkpoint after every N
	// completed nodes. Zero disables periodic saves.
	SaveEveryNNodes int
}

// DefaultCheckpointConfig returns the production defaults: one day TTL,
// auto-cleanup on, no error or periodic saves.
func DefaultCheckpointConfig() CheckpointConfig {
	return CheckpointConfig{
		TTL:         24 * time.Hour,
		AutoCleanup: true,
	}
}
