//
// Tencent is pleased to support the open source community by making spice-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// spice-go is licensed under the Apache License Version 2.0.
//
//

// Package sqlite provides a SQLite-backed checkpoint store. The checkpoint
// is stored as one JSON blob per row; indexed columns exist only for lookup
// and cleanup.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"trpc.group/trpc-go/spice-go/graph"
)

const (
	sqliteCreateCheckpoints = "CREATE TABLE IF NOT EXISTS checkpoints (" +
		"id TEXT PRIMARY KEY, " +
		"run_id TEXT NOT NULL, " +
		"graph_id TEXT NOT NULL, " +
		"node_id TEXT NOT NULL, " +
		"payload BLOB NOT NULL, " +
		"created_at INTEGER NOT NULL, " +
		"expires_at INTEGER" +
		")"

	sqliteCreateRunIndex = "CREATE INDEX IF NOT EXISTS checkpoints_run_id " +
		"ON checkpoints (run_id)"

	sqliteInsertCheckpoint = "INSERT OR REPLACE INTO checkpoints (" +
		"id, run_id, graph_id, node_id, payload, created_at, expires_at) " +
		"VALUES (?, ?, ?, ?, ?, ?, ?)"

	sqliteSelectByID = "SELECT payload FROM checkpoints WHERE id = ? LIMIT 1"

	sqliteSelectByRun = "SELECT payload FROM checkpoints WHERE run_id = ? " +
		"ORDER BY created_at ASC, id ASC"

	sqliteDeleteByID  = "DELETE FROM checkpoints WHERE id = ?"
	sqliteDeleteByRun = "DELETE FROM checkpoints WHERE run_id = ?"

	sqliteDeleteExpired = "DELETE FROM checkpoints " +
		"WHERE expires_at IS NOT NULL AND expires_at <= ?"
)

// Store persists checkpoints in a SQLite table. It expects an initialized
// *sql.DB using a SQLite driver; the caller owns the handle and closes it.
type Store struct {
	db *sql.DB
}

var _ graph.CheckpointStore = (*Store)(nil)

// New creates a store on the given DB and creates the schema if needed.
func New(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if _, err := db.Exec(sqliteCreateCheckpoints); err != nil {
		return nil, fmt.Errorf("create checkpoints table: %w", err)
	}
	if _, err := db.Exec(sqliteCreateRunIndex); err != nil {
		return nil, fmt.Errorf("create run index: %w", err)
	}
	return &Store{db: db}, nil
}

// Save implements graph.CheckpointStore.
func (s *Store) Save(ctx context.Context, ckpt *graph.Checkpoint) error {
	payload, err := json.Marshal(ckpt)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	var expiresAt sql.NullInt64
	if ckpt.ExpiresAt != nil {
		expiresAt = sql.NullInt64{Int64: ckpt.ExpiresAt.UnixMilli(), Valid: true}
	}
	_, err = s.db.ExecContext(ctx, sqliteInsertCheckpoint,
		ckpt.ID, ckpt.RunID, ckpt.GraphID, ckpt.NodeID,
		payload, ckpt.CreatedAt.UnixMilli(), expiresAt)
	if err != nil {
		return fmt.Errorf("insert checkpoint: %w", err)
	}
	return nil
}

// Load implements graph.CheckpointStore.
func (s *Store) Load(ctx context.Context, id string) (*graph.Checkpoint, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, sqliteSelectByID, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select checkpoint: %w", err)
	}
	return decode(payload)
}

// ListByRun implements graph.CheckpointStore.
func (s *Store) ListByRun(ctx context.Context, runID string) ([]*graph.Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx, sqliteSelectByRun, runID)
	if err != nil {
		return nil, fmt.Errorf("select run checkpoints: %w", err)
	}
	defer rows.Close()

	var out []*graph.Checkpoint
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		ckpt, err := decode(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, ckpt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run checkpoints: %w", err)
	}
	return out, nil
}

// Delete implements graph.CheckpointStore.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, sqliteDeleteByID, id); err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

// DeleteByRun implements graph.CheckpointStore.
func (s *Store) DeleteByRun(ctx context.Context, runID string) error {
	if _, err := s.db.ExecContext(ctx, sqliteDeleteByRun, runID); err != nil {
		return fmt.Errorf("delete run checkpoints: %w", err)
	}
	return nil
}

// CleanupExpired implements graph.CheckpointStore.
func (s *Store) CleanupExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, sqliteDeleteExpired, time.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("delete expired checkpoints: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count expired checkpoints: %w", err)
	}
	return int(affected), nil
}

func decode(payload []byte) (*graph.Checkpoint, error) {
	var ckpt graph.Checkpoint
	if err := json.Unmarshal(payload, &ckpt); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	return &ckpt, nil
}
