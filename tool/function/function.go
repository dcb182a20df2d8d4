//
// Tencent is pleased to support the open source community by making spice-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// spice-go is licensed under the Apache License Version 2.0.
//
//

// Package function wraps plain Go functions as tools. The input schema is
// derived from the function's argument type via reflection, so most tools
// need nothing beyond a name and a description.
package function

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"

	"trpc.group/trpc-go/spice-go/log"
	"trpc.group/trpc-go/spice-go/message"
	"trpc.group/trpc-go/spice-go/tool"
)

// FunctionTool adapts a typed Go function to the tool.Tool interface.
// Arguments arrive as a map, are round-tripped through JSON into I, and the
// function's O result becomes the tool output.
type FunctionTool[I, O any] struct {
	name        string
	description string
	schema      *tool.Schema
	fn          func(ctx context.Context, in I) (O, error)
}

// Option configures a FunctionTool.
type Option func(*functionToolOptions)

type functionToolOptions struct {
	name        string
	description string
	schema      *tool.Schema
}

// WithName sets the tool name.
//
// Note: some model APIs enforce strict naming patterns; sticking to
// ^[a-zA-Z0-9_-]+$ keeps the tool callable everywhere.
func WithName(name string) Option {
	return func(o *functionToolOptions) {
		o.name = name
	}
}

// WithDescription sets the tool description.
func WithDescription(description string) Option {
	return func(o *functionToolOptions) {
		o.description = description
	}
}

// WithSchema sets a custom input schema, skipping the automatic generation
// from the input type.
func WithSchema(schema *tool.Schema) Option {
	return func(o *functionToolOptions) {
		o.schema = schema
	}
}

// NewFunctionTool wraps fn as a tool. The input schema is generated from I
// unless WithSchema overrides it.
func NewFunctionTool[I, O any](fn func(ctx context.Context, in I) (O, error), opts ...Option) *FunctionTool[I, O] {
	options := &functionToolOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.name == "" {
		log.Warnf("FunctionTool: name is empty")
	}
	if options.description == "" {
		log.Warnf("FunctionTool: description is empty")
	}

	schema := options.schema
	if schema == nil {
		var emptyI I
		schema = generateSchema(reflect.TypeOf(emptyI))
	}

	return &FunctionTool[I, O]{
		name:        options.name,
		description: options.description,
		schema:      schema,
		fn:          fn,
	}
}

// Name returns the tool name.
func (ft *FunctionTool[I, O]) Name() string { return ft.name }

// Description returns the tool description.
func (ft *FunctionTool[I, O]) Description() string { return ft.description }

// Schema returns the input schema.
func (ft *FunctionTool[I, O]) Schema() *tool.Schema { return ft.schema }

// Execute decodes args into I and invokes the wrapped function. The call
// context is made available through ctx for functions that need run or node
// identifiers. Function errors surface as a failed ToolResult; only context
// cancellation comes back through the error return.
func (ft *FunctionTool[I, O]) Execute(ctx context.Context, args map[string]any, call *tool.CallContext) (*message.ToolResult, error) {
	ctx = tool.NewContextWithCall(ctx, call)
	input, err := decodeArgs[I](args)
	if err != nil {
		return &message.ToolResult{
			Success: false,
			Error:   "invalid arguments: " + err.Error(),
		}, nil
	}

	out, err := ft.fn(ctx, input)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return &message.ToolResult{
			Success: false,
			Error:   err.Error(),
		}, nil
	}
	return &message.ToolResult{
		Success: true,
		Output:  out,
	}, nil
}

func decodeArgs[I any](args map[string]any) (I, error) {
	var input I
	if args == nil {
		return input, nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return input, err
	}
	if err := json.Unmarshal(raw, &input); err != nil {
		return input, err
	}
	return input, nil
}
