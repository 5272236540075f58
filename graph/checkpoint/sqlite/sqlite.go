//
// Copyright (C) 2026 CAPI AI. All rights reserved.
//
// orquesta is licensed under the Apache License Version 2.0.
//
//

// Package sqlite provides a durable, SQL-backed checkpoint store. The
// database handle is injected by the caller, so any database/sql driver
// works; tests use mattn/go-sqlite3.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/capiai/orquesta/graph"
)

const (
	createTable = "CREATE TABLE IF NOT EXISTS checkpoints (" +
		"session_id TEXT PRIMARY KEY, " +
		"node_id TEXT NOT NULL, " +
		"reason TEXT, " +
		"state_json BLOB NOT NULL, " +
		"created_at INTEGER NOT NULL, " +
		"expires_at INTEGER NOT NULL" +
		")"

	upsertCheckpoint = "INSERT INTO checkpoints (session_id, node_id, reason, state_json, created_at, expires_at) " +
		"VALUES (?, ?, ?, ?, ?, ?) " +
		"ON CONFLICT(session_id) DO UPDATE SET " +
		"node_id = excluded.node_id, reason = excluded.reason, " +
		"state_json = excluded.state_json, created_at = excluded.created_at, " +
		"expires_at = excluded.expires_at"

	selectCheckpoint = "SELECT node_id, reason, state_json, created_at, expires_at " +
		"FROM checkpoints WHERE session_id = ?"

	deleteCheckpoint = "DELETE FROM checkpoints WHERE session_id = ?"
	deleteExpired    = "DELETE FROM checkpoints WHERE expires_at <= ?"
)

// Store persists checkpoints in a SQL table, one row per session. Expired
// rows are swept lazily on access, mirroring the in-memory store.
type Store struct {
	db  *sql.DB
	ttl time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets the per-row time to live (default 1h).
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewStore creates the checkpoint table if needed and returns a store backed
// by db. The caller owns the database handle's lifecycle beyond Close.
func NewStore(db *sql.DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, errors.New("db handle is required")
	}
	if _, err := db.Exec(createTable); err != nil {
		return nil, fmt.Errorf("creating checkpoints table: %w", err)
	}
	s := &Store{db: db, ttl: graph.DefaultCheckpointTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Load returns the snapshot for the session, or (nil, nil) on a miss. The
// state is rehydrated so typed fields (plan, errors, completed nodes)
// survive the JSON round trip.
func (s *Store) Load(ctx context.Context, sessionID string) (*graph.Snapshot, error) {
	if err := s.sweep(ctx); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, selectCheckpoint, sessionID)
	var (
		nodeID    string
		reason    sql.NullString
		stateJSON []byte
		createdAt int64
		expiresAt int64
	)
	if err := row.Scan(&nodeID, &reason, &stateJSON, &createdAt, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading checkpoint: %w", err)
	}
	if time.Now().Unix() >= expiresAt {
		return nil, nil
	}
	var raw map[string]any
	if err := json.Unmarshal(stateJSON, &raw); err != nil {
		return nil, fmt.Errorf("decoding checkpoint state: %w", err)
	}
	state, err := graph.RehydrateState(raw)
	if err != nil {
		return nil, err
	}
	return &graph.Snapshot{
		SessionID: sessionID,
		NodeID:    nodeID,
		Reason:    reason.String,
		State:     state,
		CreatedAt: time.Unix(createdAt, 0).UTC(),
	}, nil
}

// Save upserts the snapshot row, resetting its TTL.
func (s *Store) Save(ctx context.Context, sessionID string, snapshot *graph.Snapshot) error {
	if sessionID == "" {
		return graph.ErrSessionIDRequired
	}
	if snapshot == nil {
		return errors.New("snapshot cannot be nil")
	}
	stateJSON, err := json.Marshal(snapshot.State)
	if err != nil {
		return fmt.Errorf("encoding checkpoint state: %w", err)
	}
	now := time.Now()
	_, err = s.db.ExecContext(ctx, upsertCheckpoint,
		sessionID, snapshot.NodeID, snapshot.Reason, stateJSON,
		now.Unix(), now.Add(s.ttl).Unix())
	if err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	return nil
}

// Delete removes the snapshot row for the session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, deleteCheckpoint, sessionID); err != nil {
		return fmt.Errorf("deleting checkpoint: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) sweep(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, deleteExpired, time.Now().Unix()); err != nil {
		return fmt.Errorf("sweeping expired checkpoints: %w", err)
	}
	return nil
}
