//
// Tencent is pleased to support the open source community by making spice-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// spice-go is licensed under the Apache License Version 2.0.
//
//

package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/spice-go/graph"
	"trpc.group/trpc-go/spice-go/message"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// An in-memory database lives per connection; keep the pool at one.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(openTestDB(t))
	require.NoError(t, err)
	return store
}

func mkCheckpoint(id, runID string, created time.Time, expires *time.Time) *graph.Checkpoint {
	return &graph.Checkpoint{
		ID:        id,
		RunID:     runID,
		GraphID:   "g",
		NodeID:    "n",
		Message:   message.New("payload", message.RoleUser),
		CreatedAt: created,
		ExpiresAt: expires,
	}
}

func TestNewRequiresDB(t *testing.T) {
	_, err := New(nil)
	require.ErrorContains(t, err, "db is nil")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	ckpt := mkCheckpoint("c1", "r1", time.Now(), nil)
	ckpt.PendingInteraction = &graph.HumanInteraction{
		NodeID:   "n",
		Prompt:   "approve?",
		Options:  []graph.HumanOption{{ID: "approve", Label: "Approve"}},
		PausedAt: time.Now(),
	}
	require.NoError(t, store.Save(ctx, ckpt))

	got, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "c1", got.ID)
	assert.Equal(t, "r1", got.RunID)
	assert.Equal(t, "g", got.GraphID)
	assert.Equal(t, "n", got.NodeID)
	assert.Equal(t, "payload", got.Message.Content)
	assert.Equal(t, message.RoleUser, got.Message.Role)
	require.NotNil(t, got.PendingInteraction)
	assert.Equal(t, "approve?", got.PendingInteraction.Prompt)
	require.Len(t, got.PendingInteraction.Options, 1)
	assert.WithinDuration(t, ckpt.CreatedAt, got.CreatedAt, time.Second)

	missing, err := store.Load(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSaveReplaces(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Save(ctx, mkCheckpoint("c1", "r1", time.Now(), nil)))
	updated := mkCheckpoint("c1", "r1", time.Now(), nil)
	updated.NodeID = "later"
	require.NoError(t, store.Save(ctx, updated))

	got, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "later", got.NodeID)

	ckpts, err := store.ListByRun(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, ckpts, 1)
}

func TestListByRunOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	base := time.Now()

	require.NoError(t, store.Save(ctx, mkCheckpoint("c2", "r1", base.Add(2*time.Minute), nil)))
	require.NoError(t, store.Save(ctx, mkCheckpoint("c1", "r1", base.Add(time.Minute), nil)))
	require.NoError(t, store.Save(ctx, mkCheckpoint("c3", "r1", base.Add(3*time.Minute), nil)))
	require.NoError(t, store.Save(ctx, mkCheckpoint("other", "r2", base, nil)))

	ckpts, err := store.ListByRun(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, ckpts, 3)
	assert.Equal(t, "c1", ckpts[0].ID)
	assert.Equal(t, "c2", ckpts[1].ID)
	assert.Equal(t, "c3", ckpts[2].ID)

	empty, err := store.ListByRun(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestListByRunBreaksTiesByID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	created := time.Now()

	require.NoError(t, store.Save(ctx, mkCheckpoint("b", "r1", created, nil)))
	require.NoError(t, store.Save(ctx, mkCheckpoint("a", "r1", created, nil)))

	ckpts, err := store.ListByRun(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, ckpts, 2)
	assert.Equal(t, "a", ckpts[0].ID)
	assert.Equal(t, "b", ckpts[1].ID)
}

func TestDeleteAndDeleteByRun(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Save(ctx, mkCheckpoint("c1", "r1", time.Now(), nil)))
	require.NoError(t, store.Save(ctx, mkCheckpoint("c2", "r1", time.Now(), nil)))
	require.NoError(t, store.Save(ctx, mkCheckpoint("c3", "r2", time.Now(), nil)))

	require.NoError(t, store.Delete(ctx, "c1"))
	gone, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, gone)

	require.NoError(t, store.Delete(ctx, "missing"))

	require.NoError(t, store.DeleteByRun(ctx, "r1"))
	ckpts, err := store.ListByRun(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, ckpts)

	survivors, err := store.ListByRun(ctx, "r2")
	require.NoError(t, err)
	assert.Len(t, survivors, 1)
}

func TestCleanupExpired(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)
	require.NoError(t, store.Save(ctx, mkCheckpoint("dead1", "r1", time.Now(), &past)))
	require.NoError(t, store.Save(ctx, mkCheckpoint("dead2", "r1", time.Now(), &past)))
	require.NoError(t, store.Save(ctx, mkCheckpoint("live", "r1", time.Now(), &future)))
	require.NoError(t, store.Save(ctx, mkCheckpoint("forever", "r1", time.Now(), nil)))

	removed, err := store.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	ckpts, err := store.ListByRun(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, ckpts, 2)

	// Nothing left to clean.
	removed, err = store.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}
