//
// Tencent is pleased to support the open source community by making spice-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// spice-go is licensed under the Apache License Version 2.0.
//
//

package graph

// State keys maintained by the executor. Keys with a leading underscore are
// runtime bookkeeping; plain node ids map to that node's last data.
const (
	// KeyPrevious holds the data of the most recently executed node.
	KeyPrevious = "_previous"
	// KeyPreviousMessage holds the last agent reply as a full message.
	KeyPreviousMessage = "_previousMessage"
)

// Keys written by decision nodes into their result metadata, which the
// executor folds into state so successor edges can match on them.
const (
	KeySelectedBranch = "_selectedBranch"
	KeyDecisionNodeID = "_decisionNodeId"
	KeyBranchName     = "_branchName"
	KeyDecisionResult = "_decisionResult"
)

// Keys merged into the message data when a human response is accepted on
// resume.
const (
	KeyHumanResponse  = "_humanResponse"
	KeySelectedOption = "_selectedOption"
	KeyHumanText      = "_humanText"
)

// Metadata keys set by node result factories and built-in nodes.
const (
	// KeyExecutionState marks a result that pauses the run when set to
	// WAITING.
	KeyExecutionState = "execution_state"
	// KeyHasToolCalls and KeyToolCallCount describe tool calls found on an
	// agent reply; the calls themselves travel under message.KeyToolCalls.
	KeyHasToolCalls  = "has_tool_calls"
	KeyToolCallCount = "tool_call_count"
	// KeyToolSuccess marks a successful tool node execution.
	KeyToolSuccess = "_toolSuccess"
	// KeyCorrelationID and KeyTenantID are seeded into every result from
	// the ambient execution context so the identifiers survive each hop.
	KeyCorrelationID = "_correlationId"
	KeyTenantID      = "_tenantId"
)

// Input map keys Executor.Run recognizes when building the initial message
// content. KeyInputContent wins when both are present.
const (
	KeyInputContent = "content"
	KeyInput        = "input"
)
