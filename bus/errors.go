//
// Tencent is pleased to support the open source community by making spice-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// spice-go is licensed under the Apache License Version 2.0.
//
//

package bus

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned when publishing to or subscribing on a closed
	// bus.
	ErrClosed = errors.New("bus: closed")

	// ErrSchemaNotRegistered is returned when a channel is created for an
	// (event type, version) pair that has no registered schema.
	ErrSchemaNotRegistered = errors.New("bus: schema not registered")

	// ErrSchemaRegistered is returned when registering an (event type,
	// version) pair a second time.
	ErrSchemaRegistered = errors.New("bus: schema already registered")

	// ErrChannelExists is returned when creating a channel under a name
	// that is already taken.
	ErrChannelExists = errors.New("bus: channel already exists")

	// ErrChannelNotFound is returned when opening a channel that does not
	// exist on the bus.
	ErrChannelNotFound = errors.New("bus: channel not found")
)

// BusError wraps a bus failure with the operation and channel it happened on.
type BusError struct {
	Op      string
	Channel string
	Err     error
}

// Error implements the error interface.
func (e *BusError) Error() string {
	if e.Channel == "" {
		return fmt.Sprintf("bus %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("bus %s on %q: %v", e.Op, e.Channel, e.Err)
}

// Unwrap returns the underlying error.
func (e *BusError) Unwrap() error { return e.Err }
