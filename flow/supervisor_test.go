//
// Copyright (C) 2026 CAPI AI. All rights reserved.
//
// orquesta is licensed under the Apache License Version 2.0.
//
//

package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capiai/orquesta/graph"
)

func TestSupervisorBuildsDeduplicatedQueue(t *testing.T) {
	supervisor := NewSupervisor()

	plan := graph.NewPlan("goal")
	plan.RecommendedAgent = AgentDataQuery
	plan.CooperativeAgents = []string{AgentSummary, AgentDataQuery, AgentConversational}

	state := loopState(map[string]any{MetaReactAgent: AgentDataQuery})
	state[graph.StateKeyPlan] = plan
	merged := runNode(t, supervisor.Func(), state)

	assert.Equal(t, AgentDataQuery, graph.StringValue(merged, graph.StateKeyRoutingDecision))
	assert.Equal(t, AgentDataQuery, graph.StringValue(merged, graph.StateKeyActiveAgent))

	rest, ok := graph.Metadata(merged)[MetaExecutionQueue].([]string)
	require.True(t, ok)
	assert.Equal(t, []string{AgentSummary, AgentConversational}, rest)
	assert.False(t, graph.MetadataFlag(merged, MetaReactNeeded))
}

func TestSupervisorContinuesPreviousQueue(t *testing.T) {
	supervisor := NewSupervisor()

	state := loopState(map[string]any{
		MetaExecutionQueue: []string{AgentSummary, AgentConversational},
	})
	merged := runNode(t, supervisor.Func(), state)

	assert.Equal(t, AgentSummary, graph.StringValue(merged, graph.StateKeyRoutingDecision))
	rest, _ := graph.Metadata(merged)[MetaExecutionQueue].([]string)
	assert.Equal(t, []string{AgentConversational}, rest)
}

func TestSupervisorHandlesJSONDecodedQueue(t *testing.T) {
	supervisor := NewSupervisor()

	// A queue restored from a checkpoint comes back as []any.
	state := loopState(map[string]any{
		MetaExecutionQueue: []any{AgentSummary, AgentConversational},
	})
	merged := runNode(t, supervisor.Func(), state)

	assert.Equal(t, AgentSummary, graph.StringValue(merged, graph.StateKeyRoutingDecision))
}

func TestSupervisorFallsBackToDefaultQueue(t *testing.T) {
	supervisor := NewSupervisor()

	state := loopState(nil)
	merged := runNode(t, supervisor.Func(), state)

	assert.Equal(t, AgentConversational, graph.StringValue(merged, graph.StateKeyRoutingDecision))
}

func TestSupervisorEmptyQueueGoesToAssemble(t *testing.T) {
	supervisor := NewSupervisor("")

	state := loopState(nil)
	merged := runNode(t, supervisor.Func(), state)

	assert.Equal(t, NodeAssemble, graph.StringValue(merged, graph.StateKeyRoutingDecision))
}
