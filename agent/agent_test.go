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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/spice-go/message"
)

func TestFuncAgentDefaults(t *testing.T) {
	a := New("echo", func(ctx context.Context, msg *message.Message) (*message.Message, error) {
		return msg.WithContent("echo: " + msg.Content).WithRole(message.RoleAssistant), nil
	})

	info := a.Info()
	assert.Equal(t, "echo", info.ID)
	assert.Equal(t, "echo", info.Name)
	assert.Empty(t, info.Description)

	assert.True(t, a.Ready())
	assert.True(t, a.CanHandle(message.New("anything", message.RoleUser)))
	assert.Empty(t, a.Tools())
	assert.Empty(t, a.Capabilities())
}

func TestFuncAgentProcess(t *testing.T) {
	a := New("greeter", func(ctx context.Context, msg *message.Message) (*message.Message, error) {
		return msg.WithContent("Hello, " + msg.Content + "!").WithRole(message.RoleAssistant), nil
	})

	in := message.New("World", message.RoleUser)
	out, err := a.Process(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Hello, World!", out.Content)
	assert.Equal(t, message.RoleAssistant, out.Role)
	// The input message is untouched.
	assert.Equal(t, "World", in.Content)
}

func TestFuncAgentOptions(t *testing.T) {
	a := New("translator",
		func(ctx context.Context, msg *message.Message) (*message.Message, error) {
			return msg, nil
		},
		WithID("agent-42"),
		WithDescription("translates text"),
		WithCapabilities("translate", "detect-language"),
		WithCanHandle(func(msg *message.Message) bool {
			return strings.HasPrefix(msg.Content, "translate:")
		}),
		WithReadyCheck(func() bool { return false }),
	)

	info := a.Info()
	assert.Equal(t, "agent-42", info.ID)
	assert.Equal(t, "translator", info.Name)
	assert.Equal(t, "translates text", info.Description)
	assert.Equal(t, []string{"translate", "detect-language"}, a.Capabilities())

	assert.True(t, a.CanHandle(message.New("translate: hola", message.RoleUser)))
	assert.False(t, a.CanHandle(message.New("hola", message.RoleUser)))
	assert.False(t, a.Ready())
}

func TestFuncAgentCapabilitiesCopied(t *testing.T) {
	a := New("copy", func(ctx context.Context, msg *message.Message) (*message.Message, error) {
		return msg, nil
	}, WithCapabilities("one"))

	caps := a.Capabilities()
	caps[0] = "mutated"
	assert.Equal(t, []string{"one"}, a.Capabilities())
}
