//
// Tencent is pleased to support the open source community by making spice-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// spice-go is licensed under the Apache License Version 2.0.
//
//

package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/spice-go/message"
)

type stubTool struct {
	name        string
	description string
	schema      *Schema
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return s.description }
func (s *stubTool) Schema() *Schema     { return s.schema }

func (s *stubTool) Execute(ctx context.Context, args map[string]any, call *CallContext) (*message.ToolResult, error) {
	return &message.ToolResult{Success: true, Output: s.name}, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubTool{name: "echo"}))

	got, err := r.Get("", "echo")
	require.NoError(t, err)
	assert.Equal(t, "echo", got.Name())

	got, err = r.Get(DefaultNamespace, "echo")
	require.NoError(t, err)
	assert.Equal(t, "echo", got.Name())

	_, err = r.Get("", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, "echo", r.MustGet("", "echo").Name())
	assert.Panics(t, func() { r.MustGet("", "missing") })
}

func TestRegistryNamespacesAreIndependent(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubTool{name: "search", description: "web"}, WithNamespace("web")))
	require.NoError(t, r.Register(&stubTool{name: "search", description: "db"}, WithNamespace("db")))

	web, err := r.Get("web", "search")
	require.NoError(t, err)
	db, err := r.Get("db", "search")
	require.NoError(t, err)
	assert.Equal(t, "web", web.Description())
	assert.Equal(t, "db", db.Description())
	assert.Equal(t, 2, r.Len())
}

func TestRegistryConflictPolicies(t *testing.T) {
	t.Run("replace keeps order position", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(&stubTool{name: "a", description: "first"}))
		require.NoError(t, r.Register(&stubTool{name: "b"}))
		require.NoError(t, r.Register(&stubTool{name: "a", description: "second"}))

		tools := r.List()
		require.Len(t, tools, 2)
		assert.Equal(t, "a", tools[0].Name())
		assert.Equal(t, "second", tools[0].Description())
		assert.Equal(t, "b", tools[1].Name())
	})

	t.Run("reject", func(t *testing.T) {
		r := NewRegistry(WithConflictPolicy(ConflictReject))
		require.NoError(t, r.Register(&stubTool{name: "a"}))
		err := r.Register(&stubTool{name: "a"})
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("ignore", func(t *testing.T) {
		r := NewRegistry(WithConflictPolicy(ConflictIgnore))
		require.NoError(t, r.Register(&stubTool{name: "a", description: "kept"}))
		require.NoError(t, r.Register(&stubTool{name: "a", description: "dropped"}))

		got, err := r.Get("", "a")
		require.NoError(t, err)
		assert.Equal(t, "kept", got.Description())
	})
}

func TestRegistryRejectsNilAndUnnamed(t *testing.T) {
	r := NewRegistry()
	assert.ErrorIs(t, r.Register(nil), ErrNilTool)
	assert.ErrorIs(t, r.Register(&stubTool{}), ErrNilTool)
}

func TestRegistryTagAndSourceLookup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubTool{name: "read"}, WithTags("fs", "safe"), WithSource("core")))
	require.NoError(t, r.Register(&stubTool{name: "write"}, WithTags("fs"), WithSource("core")))
	require.NoError(t, r.Register(&stubTool{name: "fetch"}, WithTags("net"), WithSource("plugin")))

	fs := r.ByTag("fs")
	require.Len(t, fs, 2)
	assert.Equal(t, "read", fs[0].Name())
	assert.Equal(t, "write", fs[1].Name())

	assert.Len(t, r.ByTag("safe"), 1)
	assert.Empty(t, r.ByTag("unknown"))

	core := r.BySource("core")
	require.Len(t, core, 2)
	assert.Equal(t, "read", core[0].Name())

	assert.Len(t, r.BySource("plugin"), 1)
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubTool{name: "a"}))
	require.NoError(t, r.Register(&stubTool{name: "b"}))

	assert.True(t, r.Remove("", "a"))
	assert.False(t, r.Remove("", "a"))
	assert.Equal(t, 1, r.Len())

	tools := r.List()
	require.Len(t, tools, 1)
	assert.Equal(t, "b", tools[0].Name())
}
