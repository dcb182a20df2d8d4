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
	"time"

	"trpc.group/trpc-go/spice-go/bus"
	"trpc.group/trpc-go/spice-go/execution"
	"trpc.group/trpc-go/spice-go/log"
)

// Lifecycle event types published when an event bus is attached to a graph.
const (
	EventRunStart     = "run.start"
	EventRunFinish    = "run.finish"
	EventRunPause     = "run.pause"
	EventRunResume    = "run.resume"
	EventNodeStart    = "node.start"
	EventNodeComplete = "node.complete"
	EventNodeError    = "node.error"
)

// Schema identity of lifecycle events on the bus.
const (
	LifecycleEventType     = "graph.lifecycle"
	LifecycleSchemaVersion = 1
)

// LifecycleChannelName returns the bus channel a graph publishes its
// lifecycle events to.
func LifecycleChannelName(graphID string) string {
	return "graph.lifecycle." + graphID
}

// LifecycleEvent is the payload of run and node notifications.
type LifecycleEvent struct {
	Type    string `json:"type"`
	GraphID string `json:"graphId"`
	RunID   string `json:"runId"`
	NodeID  string `json:"nodeId,omitempty"`
	// Status carries the node or run status on completion events.
	Status    string    `json:"status,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// lifecyclePublisher emits lifecycle events for one graph. Publishing is
// best-effort: failures are logged and never fail a run. A nil publisher is
// valid and drops everything, so call sites need no bus checks.
type lifecyclePublisher struct {
	channel *bus.Channel[LifecycleEvent]
}

// newLifecyclePublisher registers the lifecycle schema if needed and opens
// the graph's channel, creating it on first use. Two graphs with the same id
// on one bus share the channel.
func newLifecyclePublisher(b *bus.Bus, graphID string) (*lifecyclePublisher, error) {
	err := bus.Register[LifecycleEvent](b.SchemaRegistry(), LifecycleEventType, LifecycleSchemaVersion)
	if err != nil && !errors.Is(err, bus.ErrSchemaRegistered) {
		return nil, err
	}
	name := LifecycleChannelName(graphID)
	ch, err := bus.NewChannel[LifecycleEvent](b, name, LifecycleEventType, LifecycleSchemaVersion, bus.ChannelConfig{})
	if err != nil {
		if !errors.Is(err, bus.ErrChannelExists) {
			return nil, err
		}
		if ch, err = bus.OpenChannel[LifecycleEvent](b, name); err != nil {
			return nil, err
		}
	}
	return &lifecyclePublisher{channel: ch}, nil
}

// publish emits one event. The correlation id is read from the ambient
// execution context when present.
func (p *lifecyclePublisher) publish(ctx context.Context, event LifecycleEvent) {
	if p == nil {
		return
	}
	event.Timestamp = time.Now()
	var meta bus.Metadata
	if ec, ok := execution.FromContext(ctx); ok {
		meta.CorrelationID = ec.CorrelationID()
	}
	if _, err := p.channel.Publish(ctx, event, meta); err != nil {
		log.Warnf("lifecycle publish %s for run %s: %v", event.Type, event.RunID, err)
	}
}
