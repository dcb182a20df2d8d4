//
// Tencent is pleased to support the open source community by making spice-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// spice-go is licensed under the Apache License Version 2.0.
//
//

// Package agent defines the collaborator that agent nodes delegate message
// processing to.
package agent

import (
	"context"

	"trpc.group/trpc-go/spice-go/message"
	"trpc.group/trpc-go/spice-go/tool"
)

// Info holds the identifying metadata of an agent.
type Info struct {
	// ID uniquely identifies the agent.
	ID string
	// Name is the human readable agent name.
	Name string
	// Description summarizes what the agent does.
	Description string
}

// Agent processes messages on behalf of an agent node. Implementations are
// free to call models, other services or nothing at all; the executor only
// sees the returned reply.
type Agent interface {
	// Info returns the agent's identifying metadata.
	Info() Info

	// Capabilities lists what the agent can do. Used for routing and
	// discovery, never interpreted by the executor itself.
	Capabilities() []string

	// CanHandle reports whether the agent accepts the given message.
	CanHandle(msg *message.Message) bool

	// Tools returns the tools available to the agent.
	Tools() []tool.Tool

	// Ready reports whether the agent can take traffic. Nodes fail the
	// step when their agent is not ready, which makes readiness problems
	// retryable through middleware.
	Ready() bool

	// Process handles one message and returns the reply.
	Process(ctx context.Context, msg *message.Message) (*message.Message, error)
}
