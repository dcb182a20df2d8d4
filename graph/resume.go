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
	"time"

	"trpc.group/trpc-go/spice-go/execution"
	"trpc.group/trpc-go/spice-go/log"
	"trpc.group/trpc-go/spice-go/message"
	"trpc.group/trpc-go/spice-go/telemetry"
)

// Resume continues a run from a stored checkpoint under the same run id.
//
// What happens depends on the state the checkpointed message is in. A
// WAITING checkpoint is a human pause: resp is validated against the paused
// node and, when accepted, merged into the state before routing continues
// from that node's edges. A FAILED checkpoint re-executes the node that
// failed. A RUNNING checkpoint, written by periodic saves, routes straight
// to the successor of the node it recorded.
//
// Expired checkpoints are rewritten as FAILED and resume returns a
// TimeoutError. A rejected response leaves the checkpoint untouched so the
// caller can try again.
func (e *Executor) Resume(ctx context.Context, checkpointID string, resp *HumanResponse, ec execution.Context) (*RunReport, error) {
	if e.store == nil {
		return nil, ErrNoCheckpointStore
	}
	ckpt, err := e.store.Load(ctx, checkpointID)
	if err != nil {
		return nil, &CheckpointError{Op: "load", CheckpointID: checkpointID, Err: err}
	}
	if ckpt == nil {
		return nil, fmt.Errorf("%w: %q", ErrCheckpointNotFound, checkpointID)
	}
	if ckpt.GraphID != e.graph.ID() {
		return nil, fmt.Errorf("checkpoint %q belongs to graph %q, not %q",
			checkpointID, ckpt.GraphID, e.graph.ID())
	}
	if ckpt.Message == nil {
		return nil, &CheckpointError{Op: "load", CheckpointID: checkpointID,
			Err: errors.New("checkpoint carries no message")}
	}
	if reason, expired := expiredReason(ckpt); expired {
		return nil, e.markExpired(ctx, ckpt, reason)
	}

	seed := runSeed{
		runID:              ckpt.RunID,
		nodeID:             ckpt.NodeID,
		exec:               ec,
		resumed:            true,
		spanName:           telemetry.NewResumeSpanName(e.graph.ID()),
		consumedCheckpoint: ckpt.ID,
	}
	switch ckpt.Message.State {
	case message.StateWaiting:
		msg, err := e.applyResponse(ckpt, resp)
		if err != nil {
			return nil, err
		}
		seed.msg = msg
		seed.state = msg.Data
		seed.firstResult = syntheticResult(resp)
	case message.StateFailed:
		// firstResult stays nil so the loop re-executes the failed node.
		seed.msg = restartFailed(ckpt.Message, ckpt.NodeID)
		seed.state = seed.msg.Data
	default:
		seed.msg = ckpt.Message
		seed.state = ckpt.Message.Data
		prev, _ := seed.state.Get(KeyPrevious)
		seed.firstResult = syntheticResult(prev)
	}
	return e.execute(ctx, seed)
}

// PendingInteractions returns the human interactions a checkpoint is still
// waiting on. The list is empty when the checkpoint is not a pause or was
// already answered.
func (e *Executor) PendingInteractions(ctx context.Context, checkpointID string) ([]*HumanInteraction, error) {
	if e.store == nil {
		return nil, ErrNoCheckpointStore
	}
	ckpt, err := e.store.Load(ctx, checkpointID)
	if err != nil {
		return nil, &CheckpointError{Op: "load", CheckpointID: checkpointID, Err: err}
	}
	if ckpt == nil {
		return nil, fmt.Errorf("%w: %q", ErrCheckpointNotFound, checkpointID)
	}
	if !awaitingHuman(ckpt) {
		return nil, nil
	}
	return []*HumanInteraction{ckpt.PendingInteraction}, nil
}

// PendingCheckpoints returns the checkpoints of a run still waiting on a
// human response, oldest first.
func (e *Executor) PendingCheckpoints(ctx context.Context, runID string) ([]*Checkpoint, error) {
	if e.store == nil {
		return nil, ErrNoCheckpointStore
	}
	ckpts, err := e.store.ListByRun(ctx, runID)
	if err != nil {
		return nil, &CheckpointError{Op: "list", Err: err}
	}
	var pending []*Checkpoint
	for _, ckpt := range ckpts {
		if awaitingHuman(ckpt) {
			pending = append(pending, ckpt)
		}
	}
	return pending, nil
}

func awaitingHuman(ckpt *Checkpoint) bool {
	return ckpt.PendingInteraction != nil &&
		ckpt.Message != nil &&
		ckpt.Message.State == message.StateWaiting
}

// applyResponse validates the reviewer's response against the paused node
// and returns the checkpoint message with the response merged in, moved back
// to RUNNING.
func (e *Executor) applyResponse(ckpt *Checkpoint, resp *HumanResponse) (*message.Message, error) {
	node, ok := e.graph.Node(ckpt.NodeID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, ckpt.NodeID)
	}
	accepted := !resp.Empty()
	if human, isHuman := node.(*HumanNode); isHuman {
		accepted = human.Validate(resp)
	}
	if !accepted {
		return nil, &ValidationError{NodeID: ckpt.NodeID, Message: "human response rejected"}
	}

	values := make(map[string]any, 3)
	if resp != nil {
		values[KeyHumanResponse] = resp
		if resp.SelectedOption != "" {
			values[KeySelectedOption] = resp.SelectedOption
		}
		if resp.Text != "" {
			values[KeyHumanText] = resp.Text
		}
	}
	return ckpt.Message.WithDataMerged(values).TransitionTo(message.StateRunning, ckpt.NodeID)
}

// expiredReason reports whether the checkpoint can no longer be resumed and
// why.
func expiredReason(ckpt *Checkpoint) (string, bool) {
	if ckpt.IsExpired() {
		return "checkpoint ttl elapsed", true
	}
	if ckpt.PendingInteraction.IsExpired() {
		return "human interaction deadline elapsed", true
	}
	return "", false
}

// markExpired rewrites the checkpoint with its message moved to FAILED so
// operators can see why later resume attempts are rejected, then returns the
// TimeoutError the caller propagates. The rewrite is best effort.
func (e *Executor) markExpired(ctx context.Context, ckpt *Checkpoint, reason string) error {
	if ckpt.Message.State != message.StateFailed {
		failed, err := ckpt.Message.TransitionTo(message.StateFailed, ckpt.NodeID)
		if err == nil {
			ckpt.Message = failed
			if err := e.store.Save(ctx, ckpt); err != nil {
				log.Warnf("marking checkpoint %s expired: %v", ckpt.ID, err)
			}
		}
	}
	return &TimeoutError{CheckpointID: ckpt.ID, NodeID: ckpt.NodeID, Message: reason}
}

// restartFailed revives a failure checkpoint. FAILED is terminal in the
// message state machine, so the restart appends the transition by hand;
// reviving a failed run is an operator action, not a state the machine
// reaches on its own.
func restartFailed(msg *message.Message, nodeID string) *message.Message {
	next := *msg
	next.History = make([]message.Transition, len(msg.History), len(msg.History)+1)
	copy(next.History, msg.History)
	next.History = append(next.History, message.Transition{
		From:      msg.State,
		To:        message.StateRunning,
		NodeID:    nodeID,
		Timestamp: time.Now(),
	})
	next.State = message.StateRunning
	next.NodeID = nodeID
	return &next
}

// syntheticResult stands in for the node a resume does not re-execute, so
// routing sees a result value like any other step.
func syntheticResult(data any) *NodeResult {
	return &NodeResult{data: data, metadata: map[string]any{}}
}
