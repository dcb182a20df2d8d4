//
// Tencent is pleased to support the open source community by making spice-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// spice-go is licensed under the Apache License Version 2.0.
//
//

// Package message defines the immutable message envelope driven through a
// graph run, plus the persistent data map and state machine that come with
// it. A message is never mutated in place: every update helper returns a new
// message with one transition appended to its history, so any previously
// held reference keeps observing the version it had.
package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// KeyToolCalls is the canonical data key carrying []ToolCall.
const KeyToolCalls = "tool_calls"

// legacyKeyToolCalls is the pre-1.0 data key migrated by
// CleanupLegacyFields.
const legacyKeyToolCalls = "toolCalls"

// ErrInvalidTransition reports an execution state change the state machine
// does not allow.
var ErrInvalidTransition = errors.New("message: invalid state transition")

// Transition records one update applied to a message. Updates that do not
// change the execution state record From == To.
type Transition struct {
	From      ExecutionState `json:"from"`
	To        ExecutionState `json:"to"`
	NodeID    string         `json:"nodeId,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Message is the immutable envelope passed between graph nodes.
//
// Treat a Message as read-only and derive new versions through the With*
// helpers and TransitionTo. Direct field writes break the history and
// immutability guarantees the runtime relies on.
type Message struct {
	// ID is stable across updates; it identifies the logical message.
	ID      string `json:"id"`
	Content string `json:"content"`
	Role    Role   `json:"role"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
	// Data is the persistent payload map; tool calls live under
	// KeyToolCalls.
	Data  Data           `json:"data"`
	State ExecutionState `json:"state"`
	// NodeID is the node that produced the current version, when any.
	NodeID string `json:"nodeId,omitempty"`
	// History holds one entry per update, oldest first.
	History   []Transition `json:"history"`
	Timestamp time.Time    `json:"timestamp"`
}

// Option configures a new message.
type Option func(*Message)

// WithFrom sets the sender.
func WithFrom(from string) Option {
	return func(m *Message) { m.From = from }
}

// WithTo sets the addressee.
func WithTo(to string) Option {
	return func(m *Message) { m.To = to }
}

// WithID overrides the generated message ID.
func WithID(id string) Option {
	return func(m *Message) { m.ID = id }
}

// WithInitialData seeds the data map.
func WithInitialData(values map[string]any) Option {
	return func(m *Message) { m.Data = m.Data.Merge(values) }
}

// New creates a message in state CREATED with an empty history.
func New(content string, role Role, opts ...Option) *Message {
	m := &Message{
		ID:        uuid.NewString(),
		Content:   content,
		Role:      role,
		Data:      NewData(),
		State:     StateCreated,
		Timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// clone copies the message with a fresh history slice so appends never
// share backing arrays with prior versions.
func (m *Message) clone() *Message {
	next := *m
	next.History = make([]Transition, len(m.History), len(m.History)+1)
	copy(next.History, m.History)
	return &next
}

// record appends one transition describing the update that produced this
// version.
func (m *Message) record(to ExecutionState, nodeID string) {
	m.History = append(m.History, Transition{
		From:      m.State,
		To:        to,
		NodeID:    nodeID,
		Timestamp: time.Now(),
	})
	m.State = to
	if nodeID != "" {
		m.NodeID = nodeID
	}
}

// WithContent returns a copy with new content.
func (m *Message) WithContent(content string) *Message {
	next := m.clone()
	next.Content = content
	next.record(m.State, m.NodeID)
	return next
}

// WithRole returns a copy with a new role.
func (m *Message) WithRole(role Role) *Message {
	next := m.clone()
	next.Role = role
	next.record(m.State, m.NodeID)
	return next
}

// WithRoute returns a copy with new sender and addressee.
func (m *Message) WithRoute(from, to string) *Message {
	next := m.clone()
	next.From = from
	next.To = to
	next.record(m.State, m.NodeID)
	return next
}

// WithData returns a copy with one data key set.
func (m *Message) WithData(key string, value any) *Message {
	next := m.clone()
	next.Data = m.Data.Set(key, value)
	next.record(m.State, m.NodeID)
	return next
}

// WithDataMerged returns a copy with values merged into the data map.
func (m *Message) WithDataMerged(values map[string]any) *Message {
	next := m.clone()
	next.Data = m.Data.Merge(values)
	next.record(m.State, m.NodeID)
	return next
}

// ReplaceData returns a copy whose data map is replaced wholesale. The
// runner uses this to fold the accumulated run state into the message
// before checkpointing or finishing.
func (m *Message) ReplaceData(d Data) *Message {
	next := m.clone()
	next.Data = d
	next.record(m.State, m.NodeID)
	return next
}

// TransitionTo returns a copy moved to the target execution state,
// attributed to nodeID. Illegal transitions fail with
// ErrInvalidTransition.
func (m *Message) TransitionTo(target ExecutionState, nodeID string) (*Message, error) {
	if !m.State.CanTransition(target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.State, target)
	}
	next := m.clone()
	next.record(target, nodeID)
	return next, nil
}

// WithToolCalls returns a copy carrying the calls under KeyToolCalls.
func (m *Message) WithToolCalls(calls ...ToolCall) *Message {
	copied := make([]ToolCall, len(calls))
	copy(copied, calls)
	next := m.clone()
	next.Data = m.Data.Set(KeyToolCalls, copied)
	next.record(m.State, m.NodeID)
	return next
}

// ToolCalls returns the tool calls carried in the data map. It tolerates
// the decoded-JSON shape a checkpoint round trip produces.
func (m *Message) ToolCalls() []ToolCall {
	v, ok := m.Data.Get(KeyToolCalls)
	if !ok {
		return nil
	}
	return normalizeToolCalls(v)
}

// HasToolCalls reports whether the message carries at least one tool call.
func (m *Message) HasToolCalls() bool {
	return len(m.ToolCalls()) > 0
}

// CleanupLegacyFields migrates the legacy "toolCalls" data key into
// KeyToolCalls. The canonical key wins when both are present. The method is
// idempotent; a message without the legacy key is returned unchanged.
func (m *Message) CleanupLegacyFields() *Message {
	legacy, ok := m.Data.Get(legacyKeyToolCalls)
	if !ok {
		return m
	}
	next := m.clone()
	next.Data = m.Data.Delete(legacyKeyToolCalls)
	if !m.Data.Has(KeyToolCalls) {
		if calls := normalizeToolCalls(legacy); calls != nil {
			next.Data = next.Data.Set(KeyToolCalls, calls)
		}
	}
	next.record(m.State, m.NodeID)
	return next
}

// LastTransition returns the most recent history entry.
func (m *Message) LastTransition() (Transition, bool) {
	if len(m.History) == 0 {
		return Transition{}, false
	}
	return m.History[len(m.History)-1], true
}

// UnmarshalJSON decodes the message and canonicalizes the tool-call slice
// inside the data map, which plain JSON decoding turns into []any.
func (m *Message) UnmarshalJSON(b []byte) error {
	type alias Message
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*m = Message(a)
	if v, ok := m.Data.Get(KeyToolCalls); ok {
		if calls := normalizeToolCalls(v); calls != nil {
			m.Data = m.Data.Set(KeyToolCalls, calls)
		}
	}
	return nil
}
