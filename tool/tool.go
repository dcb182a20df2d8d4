//
// Tencent is pleased to support the open source community by making spice-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// spice-go is licensed under the Apache License Version 2.0.
//
//

// Package tool defines the callable tool abstraction and the registry that
// graph nodes resolve tools from.
package tool

import (
	"context"

	"trpc.group/trpc-go/spice-go/execution"
	"trpc.group/trpc-go/spice-go/message"
)

// Schema describes the JSON shape of a tool's input. It is the subset of
// JSON Schema needed for function-calling declarations.
type Schema struct {
	Type        string             `json:"type,omitempty"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []any              `json:"enum,omitempty"`
}

// CallContext carries per-invocation identifiers into a tool call.
type CallContext struct {
	// RunID identifies the graph run that triggered the call.
	RunID string
	// NodeID identifies the node executing the call.
	NodeID string
	// CallID is the model-assigned tool call identifier, empty for
	// direct invocations.
	CallID string
	// Exec is the ambient execution context of the run.
	Exec execution.Context
}

// Tool is a named, schema-described callable.
//
// A failed call is reported through ToolResult.Success rather than the error
// return; the error return is reserved for infrastructure failures such as a
// cancelled context.
type Tool interface {
	// Name returns the tool name, unique within a namespace.
	Name() string
	// Description returns a human readable summary of what the tool does.
	Description() string
	// Schema returns the input schema, nil when the tool takes no arguments.
	Schema() *Schema
	// Execute runs the tool with already-decoded arguments.
	Execute(ctx context.Context, args map[string]any, call *CallContext) (*message.ToolResult, error)
}
