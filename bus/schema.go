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
	"encoding/json"
	"fmt"
	"sync"
)

// Codec serializes events of one type to and from envelope payloads.
type Codec[T any] interface {
	Encode(event T) (string, error)
	Decode(payload string) (T, error)
}

// JSONCodec is the default codec; it round-trips events through JSON.
type JSONCodec[T any] struct{}

// Encode marshals the event to a JSON payload.
func (JSONCodec[T]) Encode(event T) (string, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Decode unmarshals a JSON payload into an event.
func (JSONCodec[T]) Decode(payload string) (T, error) {
	var event T
	err := json.Unmarshal([]byte(payload), &event)
	return event, err
}

type schemaKey struct {
	eventType string
	version   int
}

// codecEntry is the type-erased form a registry stores. Typed channels
// re-assert the event type when they are created.
type codecEntry struct {
	encode func(event any) (string, error)
	decode func(payload string) (any, error)
}

// SchemaRegistry maps (event type, version) pairs to codecs. Registration is
// explicit: channels cannot be created for unregistered schemas.
type SchemaRegistry struct {
	mu      sync.RWMutex
	entries map[schemaKey]codecEntry
}

// NewSchemaRegistry creates an empty registry.
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{entries: make(map[schemaKey]codecEntry)}
}

// Register registers event type T under (eventType, version) with the
// default JSON codec.
func Register[T any](r *SchemaRegistry, eventType string, version int) error {
	return RegisterCodec[T](r, eventType, version, JSONCodec[T]{})
}

// RegisterCodec registers event type T under (eventType, version) with a
// custom codec. Registering the same pair twice is an error.
func RegisterCodec[T any](r *SchemaRegistry, eventType string, version int, codec Codec[T]) error {
	key := schemaKey{eventType: eventType, version: version}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[key]; exists {
		return fmt.Errorf("%w: %s v%d", ErrSchemaRegistered, eventType, version)
	}
	r.entries[key] = codecEntry{
		encode: func(event any) (string, error) {
			typed, ok := event.(T)
			if !ok {
				return "", fmt.Errorf("encode %s v%d: unexpected event type %T", eventType, version, event)
			}
			return codec.Encode(typed)
		},
		decode: func(payload string) (any, error) {
			return codec.Decode(payload)
		},
	}
	return nil
}

// IsRegistered reports whether (eventType, version) has a codec.
func (r *SchemaRegistry) IsRegistered(eventType string, version int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[schemaKey{eventType: eventType, version: version}]
	return ok
}

func (r *SchemaRegistry) codec(eventType string, version int) (codecEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[schemaKey{eventType: eventType, version: version}]
	return entry, ok
}
