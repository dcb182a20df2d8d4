//
// Tencent is pleased to support the open source community by making spice-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// spice-go is licensed under the Apache License Version 2.0.
//
//

package message

// Role represents the role of the message author.
type Role string

// Message roles.
const (
	// RoleUser is the role of the user.
	RoleUser Role = "user"
	// RoleAssistant is the role of an agent reply.
	RoleAssistant Role = "assistant"
	// RoleSystem is the role of system instructions.
	RoleSystem Role = "system"
	// RoleTool is the role of tool output.
	RoleTool Role = "tool"
)

// AllRoles contains the valid roles.
var AllRoles = []Role{RoleUser, RoleAssistant, RoleSystem, RoleTool}

// IsValid checks whether the role is one of the declared constants.
func (r Role) IsValid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}
