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
	"fmt"
	"sync"

	"trpc.group/trpc-go/spice-go/log"
)

// DefaultNamespace is used when Register is called without WithNamespace.
const DefaultNamespace = "default"

// ConflictPolicy controls what Register does when the (namespace, name) pair
// is already taken.
type ConflictPolicy int

const (
	// ConflictReplace swaps in the new tool and logs a warning.
	ConflictReplace ConflictPolicy = iota
	// ConflictReject fails the registration with ErrDuplicate.
	ConflictReject
	// ConflictIgnore keeps the existing tool and drops the new one.
	ConflictIgnore
)

type registryKey struct {
	namespace string
	name      string
}

type registryEntry struct {
	tool   Tool
	tags   []string
	source string
}

// Registry holds tools keyed by (namespace, name) and supports secondary
// lookups by tag and by source. All methods are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	policy  ConflictPolicy
	entries map[registryKey]*registryEntry
	order   []registryKey
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithConflictPolicy sets how Register treats duplicate keys.
// The default is ConflictReplace.
func WithConflictPolicy(p ConflictPolicy) RegistryOption {
	return func(r *Registry) {
		r.policy = p
	}
}

// NewRegistry creates an empty tool registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		entries: make(map[registryKey]*registryEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterOption configures a single registration.
type RegisterOption func(*registerOptions)

type registerOptions struct {
	namespace string
	tags      []string
	source    string
}

// WithNamespace registers the tool under the given namespace instead of
// DefaultNamespace.
func WithNamespace(namespace string) RegisterOption {
	return func(o *registerOptions) {
		o.namespace = namespace
	}
}

// WithTags attaches searchable tags to the registration.
func WithTags(tags ...string) RegisterOption {
	return func(o *registerOptions) {
		o.tags = tags
	}
}

// WithSource records where the tool came from, e.g. a plugin or package name.
func WithSource(source string) RegisterOption {
	return func(o *registerOptions) {
		o.source = source
	}
}

// Register adds t under (namespace, name). Duplicate keys follow the
// registry's conflict policy; replacement keeps the original position in
// List order.
func (r *Registry) Register(t Tool, opts ...RegisterOption) error {
	if t == nil || t.Name() == "" {
		return ErrNilTool
	}
	ro := registerOptions{namespace: DefaultNamespace}
	for _, opt := range opts {
		opt(&ro)
	}
	key := registryKey{namespace: ro.namespace, name: t.Name()}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[key]; exists {
		switch r.policy {
		case ConflictReject:
			return fmt.Errorf("%w: %s/%s", ErrDuplicate, key.namespace, key.name)
		case ConflictIgnore:
			return nil
		default:
			log.Warnf("tool registry: replacing %s/%s", key.namespace, key.name)
		}
	} else {
		r.order = append(r.order, key)
	}
	r.entries[key] = &registryEntry{
		tool:   t,
		tags:   append([]string(nil), ro.tags...),
		source: ro.source,
	}
	return nil
}

// Get resolves a tool by (namespace, name). An empty namespace means
// DefaultNamespace. Misses return an error wrapping ErrNotFound.
func (r *Registry) Get(namespace, name string) (Tool, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[registryKey{namespace: namespace, name: name}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, namespace, name)
	}
	return entry.tool, nil
}

// MustGet is Get for wiring code that treats a missing tool as a
// programming error. It panics on misses.
func (r *Registry) MustGet(namespace, name string) Tool {
	t, err := r.Get(namespace, name)
	if err != nil {
		panic(err)
	}
	return t
}

// Remove deletes the (namespace, name) registration and reports whether it
// existed.
func (r *Registry) Remove(namespace, name string) bool {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	key := registryKey{namespace: namespace, name: name}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[key]; !ok {
		return false
	}
	delete(r.entries, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns all tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := make([]Tool, 0, len(r.order))
	for _, key := range r.order {
		tools = append(tools, r.entries[key].tool)
	}
	return tools
}

// ByTag returns the tools registered with the given tag, in registration
// order.
func (r *Registry) ByTag(tag string) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var tools []Tool
	for _, key := range r.order {
		entry := r.entries[key]
		for _, t := range entry.tags {
			if t == tag {
				tools = append(tools, entry.tool)
				break
			}
		}
	}
	return tools
}

// BySource returns the tools registered with the given source, in
// registration order.
func (r *Registry) BySource(source string) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var tools []Tool
	for _, key := range r.order {
		if entry := r.entries[key]; entry.source == source {
			tools = append(tools, entry.tool)
		}
	}
	return tools
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
