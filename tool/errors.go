//
// Tencent is pleased to support the open source community by making spice-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// spice-go is licensed under the Apache License Version 2.0.
//
//

package tool

import "errors"

var (
	// ErrNotFound is returned when a lookup does not match a registered tool.
	ErrNotFound = errors.New("tool: not found")

	// ErrDuplicate is returned by Register when the registry policy rejects
	// re-registration of an existing (namespace, name) pair.
	ErrDuplicate = errors.New("tool: already registered")

	// ErrNilTool is returned when a nil tool or a tool without a name is
	// registered.
	ErrNilTool = errors.New("tool: nil or unnamed tool")
)
