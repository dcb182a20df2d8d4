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
	"time"
)

// HumanOption is one choice offered to the human reviewer.
type HumanOption struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// HumanInteraction describes a paused step awaiting human input. It is
// persisted inside the checkpoint so an operator UI can render the prompt
// long after the run paused.
type HumanInteraction struct {
	NodeID    string        `json:"nodeId"`
	Prompt    string        `json:"prompt"`
	Options   []HumanOption `json:"options,omitempty"`
	PausedAt  time.Time     `json:"pausedAt"`
	ExpiresAt *time.Time    `json:"expiresAt,omitempty"`
}

// IsExpired reports whether the interaction's deadline has passed. A nil
// interaction never expires.
func (i *HumanInteraction) IsExpired() bool {
	return i != nil && i.ExpiresAt != nil && time.Now().After(*i.ExpiresAt)
}

// HumanResponse is the reviewer's answer supplied on resume.
type HumanResponse struct {
	NodeID         string         `json:"nodeId"`
	SelectedOption string         `json:"selectedOption,omitempty"`
	Text           string         `json:"text,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

// Empty reports whether the response carries neither a selection nor text.
func (r *HumanResponse) Empty() bool {
	return r == nil || (r.SelectedOption == "" && r.Text == "")
}

// HumanNodeConfig configures a human node.
type HumanNodeConfig struct {
	// Prompt is shown to the reviewer.
	Prompt string
	// Options are the choices offered; empty means free-text input.
	Options []HumanOption
	// Timeout bounds how long the pause waits for a response. Zero means
	// no deadline.
	Timeout time.Duration
	// Validator accepts or rejects a response on resume. Nil accepts any
	// non-empty response.
	Validator func(*HumanResponse) bool
}

// HumanNode pauses the run for human input. It never blocks and performs no
// I/O; it only produces the waiting result. Persisting the pause and acting
// on the response is the executor's job.
type HumanNode struct {
	id  string
	cfg HumanNodeConfig
}

// NewHumanNode builds a human node.
func NewHumanNode(id string, cfg HumanNodeConfig) *HumanNode {
	return &HumanNode{id: id, cfg: cfg}
}

// ID implements Node.
func (n *HumanNode) ID() string { return n.id }

// Kind implements Node.
func (n *HumanNode) Kind() NodeKind { return KindHuman }

// Run implements Node by producing the pause result.
func (n *HumanNode) Run(_ context.Context, nc *NodeContext) (*NodeResult, error) {
	now := time.Now()
	interaction := &HumanInteraction{
		NodeID:   n.id,
		Prompt:   n.cfg.Prompt,
		Options:  append([]HumanOption(nil), n.cfg.Options...),
		PausedAt: now,
	}
	if n.cfg.Timeout > 0 {
		expires := now.Add(n.cfg.Timeout)
		interaction.ExpiresAt = &expires
	}
	return NewInterrupt(nc, interaction), nil
}

// Validate checks a response on resume. Without a validator, any response
// carrying a selection or text is accepted; a configured validator decides
// entirely on its own, including whether empty responses pass.
func (n *HumanNode) Validate(resp *HumanResponse) bool {
	if n.cfg.Validator != nil {
		return n.cfg.Validator(resp)
	}
	return !resp.Empty()
}
