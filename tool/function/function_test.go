//
// Tencent is pleased to support the open source community by making spice-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// spice-go is licensed under the Apache License Version 2.0.
//
//

package function

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/spice-go/tool"
)

type addInput struct {
	A int `json:"a"`
	B int `json:"b"`
}

func addTool() *FunctionTool[addInput, int] {
	return NewFunctionTool(func(ctx context.Context, in addInput) (int, error) {
		return in.A + in.B, nil
	}, WithName("add"), WithDescription("adds two integers"))
}

func TestFunctionToolMetadata(t *testing.T) {
	ft := addTool()
	assert.Equal(t, "add", ft.Name())
	assert.Equal(t, "adds two integers", ft.Description())

	schema := ft.Schema()
	require.NotNil(t, schema)
	assert.Equal(t, "object", schema.Type)
	assert.Equal(t, "integer", schema.Properties["a"].Type)
	assert.Equal(t, "integer", schema.Properties["b"].Type)
	assert.ElementsMatch(t, []string{"a", "b"}, schema.Required)
}

func TestFunctionToolExecute(t *testing.T) {
	result, err := addTool().Execute(context.Background(), map[string]any{"a": 2, "b": 3}, nil)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Success)
	assert.Equal(t, 5, result.Output)
}

func TestFunctionToolSeesCallContext(t *testing.T) {
	var seen *tool.CallContext
	ft := NewFunctionTool(func(ctx context.Context, in addInput) (int, error) {
		seen, _ = tool.CallFromContext(ctx)
		return 0, nil
	}, WithName("probe"), WithDescription("records its call context"))

	call := &tool.CallContext{RunID: "run-1", NodeID: "calc", CallID: "call-1"}
	_, err := ft.Execute(context.Background(), nil, call)
	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, "run-1", seen.RunID)
	assert.Equal(t, "calc", seen.NodeID)
	assert.Equal(t, "call-1", seen.CallID)
}

func TestFunctionToolErrorBecomesFailedResult(t *testing.T) {
	ft := NewFunctionTool(func(ctx context.Context, in addInput) (int, error) {
		return 0, errors.New("division by zero")
	}, WithName("div"), WithDescription("always fails"))

	result, err := ft.Execute(context.Background(), map[string]any{}, nil)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Equal(t, "division by zero", result.Error)
}

func TestFunctionToolInvalidArguments(t *testing.T) {
	result, err := addTool().Execute(context.Background(), map[string]any{"a": "two"}, nil)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "invalid arguments")
}

func TestFunctionToolContextCancellation(t *testing.T) {
	ft := NewFunctionTool(func(ctx context.Context, in addInput) (int, error) {
		return 0, ctx.Err()
	}, WithName("slow"), WithDescription("honors cancellation"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := ft.Execute(ctx, nil, nil)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFunctionToolSchemaOverride(t *testing.T) {
	custom := &tool.Schema{Type: "object", Description: "hand written"}
	ft := NewFunctionTool(func(ctx context.Context, in addInput) (int, error) {
		return 0, nil
	}, WithName("custom"), WithDescription("uses a custom schema"), WithSchema(custom))

	assert.Same(t, custom, ft.Schema())
}
