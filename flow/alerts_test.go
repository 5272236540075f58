//
// Copyright (C) 2026 CAPI AI. All rights reserved.
//
// orquesta is licensed under the Apache License Version 2.0.
//
//

package flow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capiai/orquesta/graph"
)

func alertState(artifacts, responseData map[string]any) graph.State {
	state := graph.NewTurnState("session-1", "trace-1", "user-1", "saldo de la sucursal Palermo")
	if artifacts != nil {
		state = graph.MergeDict(state, graph.StateKeySharedArtifacts, artifacts)
	}
	if responseData != nil {
		state = graph.MergeDict(state, graph.StateKeyResponseData, responseData)
	}
	return state
}

func TestAlertsNoOpWithoutAlerts(t *testing.T) {
	coordinator := NewAlertCoordinator()

	state := alertState(nil, nil)
	merged := runNode(t, coordinator.Func(), state)

	assert.False(t, graph.MetadataFlag(merged, MetaPendingAlerts))
}

func TestAlertsCollectsAndDeduplicates(t *testing.T) {
	coordinator := NewAlertCoordinator()

	state := alertState(
		map[string]any{
			AgentDataQuery: map[string]any{
				"alerts": []any{
					map[string]any{"id": "a-1", "title": "low balance", "priority": "high"},
					map[string]any{"id": "a-2", "title": "stale data", "priority": "low"},
				},
			},
		},
		map[string]any{
			"alerts": []any{
				// Duplicate of a-1 plus one new critical alert.
				map[string]any{"id": "a-1", "title": "low balance", "priority": "high"},
				map[string]any{"id": "a-3", "title": "reconciliation failure", "priority": "critical"},
			},
		},
	)

	alerts := coordinator.collect(state)
	require.Len(t, alerts, 3)

	summary := summarize(alerts)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, "critical", summary.TopPriority)
	assert.Equal(t, 1, summary.ByPriority["high"])
	assert.Equal(t, 1, summary.ByPriority["critical"])
}

func TestAlertsUnprioritizedCountsAsLow(t *testing.T) {
	summary := summarize([]Alert{{ID: "a-1", Title: "untagged"}})
	assert.Equal(t, 1, summary.ByPriority["low"])
	assert.Equal(t, "low", summary.TopPriority)
}

func TestAlertsSuspendsWithSummary(t *testing.T) {
	coordinator := NewAlertCoordinator()

	state := alertState(map[string]any{
		AgentDataQuery: map[string]any{
			"alerts": []any{map[string]any{"id": "a-1", "title": "low balance", "priority": "high"}},
		},
	}, nil)

	_, err := coordinator.Func()(context.Background(), state)
	require.Error(t, err)

	ie, ok := graph.AsInterrupt(err)
	require.True(t, ok)
	payload, ok := ie.Value.(*graph.InterruptPayload)
	require.True(t, ok)
	assert.Equal(t, NodeAlerts, payload.Node)
	assert.Equal(t, DefaultAlertInstruction, payload.Context["default_instruction"])

	summary, ok := payload.Context["summary"].(*AlertSummary)
	require.True(t, ok)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, "high", summary.TopPriority)
}

func TestAlertsResumeRecordsDecision(t *testing.T) {
	coordinator := NewAlertCoordinator()

	state := alertState(map[string]any{
		AgentDataQuery: map[string]any{
			"alerts": []any{map[string]any{"id": "a-1", "title": "low balance", "priority": "high"}},
		},
	}, nil)
	decision := map[string]any{DecisionKeyApproved: true}
	state[graph.StateKeyResume] = decision

	merged := runNode(t, coordinator.Func(), state)

	assert.Equal(t, decision, graph.Metadata(merged)[MetaAlertDecision])
	assert.False(t, graph.MetadataFlag(merged, MetaAlertHandled))
	assert.False(t, graph.MetadataFlag(merged, MetaPendingAlerts))
	// The decision doubles as pre-clearance for the desktop write.
	assert.True(t, DecisionRecorded(merged))
	assert.Equal(t, "write_file", graph.MetadataString(merged, MetaPendingAction))
}
