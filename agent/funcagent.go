//
// Tencent is pleased to support the open source community by making spice-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// spice-go is licensed under the Apache License Version 2.0.
//
//

package agent

import (
	"context"

	"trpc.group/trpc-go/spice-go/message"
	"trpc.group/trpc-go/spice-go/tool"
)

// ProcessFunc is the signature of a function-backed agent.
type ProcessFunc func(ctx context.Context, msg *message.Message) (*message.Message, error)

// FuncAgent adapts a plain function to the Agent interface. It is the
// quickest way to put custom logic behind an agent node.
type FuncAgent struct {
	info         Info
	capabilities []string
	tools        []tool.Tool
	canHandle    func(*message.Message) bool
	ready        func() bool
	process      ProcessFunc
}

// Option configures a FuncAgent.
type Option func(*FuncAgent)

// WithID overrides the agent ID. The default is the agent name.
func WithID(id string) Option {
	return func(a *FuncAgent) {
		a.info.ID = id
	}
}

// WithDescription sets the agent description.
func WithDescription(description string) Option {
	return func(a *FuncAgent) {
		a.info.Description = description
	}
}

// WithCapabilities sets the advertised capabilities.
func WithCapabilities(capabilities ...string) Option {
	return func(a *FuncAgent) {
		a.capabilities = capabilities
	}
}

// WithTools sets the tools available to the agent.
func WithTools(tools ...tool.Tool) Option {
	return func(a *FuncAgent) {
		a.tools = tools
	}
}

// WithCanHandle sets the message acceptance predicate. The default accepts
// everything.
func WithCanHandle(fn func(*message.Message) bool) Option {
	return func(a *FuncAgent) {
		a.canHandle = fn
	}
}

// WithReadyCheck sets the readiness probe. The default reports ready.
func WithReadyCheck(fn func() bool) Option {
	return func(a *FuncAgent) {
		a.ready = fn
	}
}

// New creates a function-backed agent with the given name.
func New(name string, process ProcessFunc, opts ...Option) *FuncAgent {
	a := &FuncAgent{
		info:    Info{ID: name, Name: name},
		process: process,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Info returns the agent's identifying metadata.
func (a *FuncAgent) Info() Info { return a.info }

// Capabilities lists the advertised capabilities.
func (a *FuncAgent) Capabilities() []string {
	return append([]string(nil), a.capabilities...)
}

// CanHandle reports whether the agent accepts the given message.
func (a *FuncAgent) CanHandle(msg *message.Message) bool {
	if a.canHandle == nil {
		return true
	}
	return a.canHandle(msg)
}

// Tools returns the tools available to the agent.
func (a *FuncAgent) Tools() []tool.Tool {
	return append([]tool.Tool(nil), a.tools...)
}

// Ready reports whether the agent can take traffic.
func (a *FuncAgent) Ready() bool {
	if a.ready == nil {
		return true
	}
	return a.ready()
}

// Process invokes the wrapped function.
func (a *FuncAgent) Process(ctx context.Context, msg *message.Message) (*message.Message, error) {
	return a.process(ctx, msg)
}
