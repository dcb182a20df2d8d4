//
// Tencent is pleased to support the open source community by making spice-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// spice-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides a process-local checkpoint store. It is suitable
// for tests and single-process deployments; checkpoints do not survive a
// restart.
package inmemory

import (
	"context"
	"sort"
	"sync"

	"trpc.group/trpc-go/spice-go/graph"
)

// Store keeps checkpoints in maps guarded by one RWMutex. Stored checkpoints
// are treated as immutable: Save and Load copy the envelope, and the message
// inside never mutates by contract.
type Store struct {
	mu    sync.RWMutex
	byID  map[string]*graph.Checkpoint
	byRun map[string][]string
}

var _ graph.CheckpointStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		byID:  make(map[string]*graph.Checkpoint),
		byRun: make(map[string][]string),
	}
}

// Save implements graph.CheckpointStore.
func (s *Store) Save(_ context.Context, ckpt *graph.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, known := s.byID[ckpt.ID]
	s.byID[ckpt.ID] = clone(ckpt)
	if !known {
		s.byRun[ckpt.RunID] = append(s.byRun[ckpt.RunID], ckpt.ID)
	}
	return nil
}

// Load implements graph.CheckpointStore.
func (s *Store) Load(_ context.Context, id string) (*graph.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.byID[id]), nil
}

// ListByRun implements graph.CheckpointStore.
func (s *Store) ListByRun(_ context.Context, runID string) ([]*graph.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byRun[runID]
	out := make([]*graph.Checkpoint, 0, len(ids))
	for _, id := range ids {
		if ckpt, ok := s.byID[id]; ok {
			out = append(out, clone(ckpt))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Delete implements graph.CheckpointStore.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(id)
	return nil
}

// DeleteByRun implements graph.CheckpointStore.
func (s *Store) DeleteByRun(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.byRun[runID] {
		delete(s.byID, id)
	}
	delete(s.byRun, runID)
	return nil
}

// CleanupExpired implements graph.CheckpointStore.
func (s *Store) CleanupExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int
	for id, ckpt := range s.byID {
		if ckpt.IsExpired() {
			s.remove(id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored checkpoints.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// remove deletes one checkpoint and its run-index entry. Callers hold the
// write lock.
func (s *Store) remove(id string) {
	ckpt, ok := s.byID[id]
	if !ok {
		return
	}
	delete(s.byID, id)

	ids := s.byRun[ckpt.RunID]
	for i, candidate := range ids {
		if candidate == id {
			s.byRun[ckpt.RunID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(s.byRun[ckpt.RunID]) == 0 {
		delete(s.byRun, ckpt.RunID)
	}
}

func clone(ckpt *graph.Checkpoint) *graph.Checkpoint {
	if ckpt == nil {
		return nil
	}
	out := *ckpt
	return &out
}
