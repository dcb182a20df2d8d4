//
// Tencent is pleased to support the open source community by making spice-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// spice-go is licensed under the Apache License Version 2.0.
//
//

package message

import "encoding/json"

// ToolCall is a structured request, usually produced by an agent reply, to
// invoke a named tool with arguments.
type ToolCall struct {
	// ID identifies this call within a reply.
	ID string `json:"id"`
	// Name is the registered tool name.
	Name string `json:"name"`
	// Arguments are the call arguments keyed by parameter name.
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolResult is the outcome of a tool invocation.
type ToolResult struct {
	// Success reports whether the tool ran to completion.
	Success bool `json:"success"`
	// Output carries the tool's result value on success.
	Output any `json:"result,omitempty"`
	// Error describes the failure when Success is false.
	Error string `json:"error,omitempty"`
	// Metadata carries auxiliary values such as timing or provenance.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// normalizeToolCalls converts the supported carrier shapes for tool calls
// into []ToolCall. JSON round trips turn the slice into []any of objects;
// callers may also hand in []ToolCall directly.
func normalizeToolCalls(v any) []ToolCall {
	switch calls := v.(type) {
	case []ToolCall:
		out := make([]ToolCall, len(calls))
		copy(out, calls)
		return out
	case []*ToolCall:
		out := make([]ToolCall, 0, len(calls))
		for _, c := range calls {
			if c != nil {
				out = append(out, *c)
			}
		}
		return out
	case []any:
		raw, err := json.Marshal(calls)
		if err != nil {
			return nil
		}
		var out []ToolCall
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil
		}
		return out
	default:
		return nil
	}
}
