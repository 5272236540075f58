//
// Copyright (C) 2026 CAPI AI. All rights reserved.
//
// orquesta is licensed under the Apache License Version 2.0.
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

	"github.com/capiai/orquesta/graph"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	store, err := NewStore(db, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func suspendedSnapshot(sessionID string) *graph.Snapshot {
	state := graph.NewTurnState(sessionID, "trace-1", "user-1", "check the balance")
	state = graph.AppendToList(state, graph.StateKeyCompletedNodes, "router", "capi_datab")
	state = graph.AddError(state, graph.ErrorTypeAgentExecution, "transient", nil)
	plan := graph.NewPlan("check the balance")
	plan.Steps = []graph.PlanStep{{ID: "step-1", Agent: "capi_datab"}}
	state[graph.StateKeyPlan] = plan.Replan("retry with new data", nil)
	state[graph.StateKeyRetryCount] = 2
	return graph.NewSnapshot(sessionID, "human_gate", "approval", state)
}

func TestSQLiteSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	loaded, err := store.Load(ctx, "session-1")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	require.NoError(t, store.Save(ctx, "session-1", suspendedSnapshot("session-1")))

	loaded, err = store.Load(ctx, "session-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "human_gate", loaded.NodeID)
	assert.Equal(t, "approval", loaded.Reason)

	// Typed fields survive the JSON round trip.
	state := loaded.State
	assert.Equal(t, []string{"router", "capi_datab"}, graph.CompletedNodes(state))
	records := graph.Errors(state)
	require.Len(t, records, 1)
	assert.Equal(t, graph.ErrorTypeAgentExecution, records[0].ErrorType)
	assert.Equal(t, 2, graph.IntValue(state, graph.StateKeyRetryCount))

	plan := graph.PlanOf(state)
	require.NotNil(t, plan)
	assert.Equal(t, 2, plan.Version)
	require.Len(t, plan.History, 1)
	assert.Equal(t, 1, plan.History[0].Version)
	assert.Equal(t, plan.PlanID, plan.History[0].PlanID)
}

func TestSQLiteUpsertReplacesRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := suspendedSnapshot("session-1")
	require.NoError(t, store.Save(ctx, "session-1", first))

	second := suspendedSnapshot("session-1")
	second.NodeID = "alert_coordinator"
	require.NoError(t, store.Save(ctx, "session-1", second))

	loaded, err := store.Load(ctx, "session-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "alert_coordinator", loaded.NodeID)
}

func TestSQLiteDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "session-1", suspendedSnapshot("session-1")))
	require.NoError(t, store.Delete(ctx, "session-1"))

	loaded, err := store.Load(ctx, "session-1")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	require.NoError(t, store.Delete(ctx, "session-1"))
}

func TestSQLiteExpiredRowIsSwept(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "session-1", suspendedSnapshot("session-1")))

	// Force the row past its deadline; the next access sweeps it.
	_, err := store.db.ExecContext(ctx,
		"UPDATE checkpoints SET expires_at = ? WHERE session_id = ?",
		time.Now().Add(-time.Minute).Unix(), "session-1")
	require.NoError(t, err)

	loaded, err := store.Load(ctx, "session-1")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	var count int
	require.NoError(t, store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM checkpoints").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestSQLiteSaveValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.Save(ctx, "", suspendedSnapshot("")), graph.ErrSessionIDRequired)
	assert.Error(t, store.Save(ctx, "session-1", nil))
}
