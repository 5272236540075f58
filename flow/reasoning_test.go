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

	"github.com/capiai/orquesta/agent"
	"github.com/capiai/orquesta/graph"
)

func TestReasoningBuildsInitialPlan(t *testing.T) {
	reasoning := NewReasoning(allEnabled())

	state := graph.NewTurnState("session-1", "trace-1", "user-1", "saldo de la sucursal Palermo")
	state[graph.StateKeyActiveAgent] = AgentDataQuery
	state = graph.MergeDict(state, graph.StateKeyResponseMetadata, map[string]any{MetaConfidence: 0.9})

	merged := runNode(t, reasoning.Func(), state)

	plan := graph.PlanOf(merged)
	require.NotNil(t, plan)
	assert.Equal(t, 1, plan.Version)
	assert.Equal(t, AgentDataQuery, plan.RecommendedAgent)
	assert.Equal(t, 0.9, plan.Confidence)
	assert.Equal(t, graph.ComplexitySimple, plan.Complexity)
	assert.True(t, plan.HasRemainingSteps())
	assert.True(t, graph.MetadataFlag(merged, MetaReactNeeded))
	assert.Equal(t, AgentDataQuery, graph.MetadataString(merged, MetaReactAgent))
}

func TestReasoningComplexityByQueryLength(t *testing.T) {
	assert.Equal(t, graph.ComplexitySimple, classifyComplexity("short question"))
	assert.Equal(t, graph.ComplexityModerate,
		classifyComplexity("please compare the balance of every branch in the northern region this month"))
	assert.Equal(t, graph.ComplexityComplex, classifyComplexity(
		"please compare the balance of every branch in the northern region against the southern "+
			"region for the last three months and explain any significant difference you find"))
}

func TestReasoningReplansWhenAgentDisabled(t *testing.T) {
	enablement := agent.StaticEnablement{
		AgentConversational: true,
	}
	reasoning := NewReasoning(enablement)

	plan := graph.NewPlan("goal")
	plan.RecommendedAgent = AgentDataQuery
	plan.CooperativeAgents = []string{AgentConversational}
	plan.Confidence = 1.0
	plan.Steps = []graph.PlanStep{{ID: "step-1", Agent: AgentDataQuery}}

	state := graph.NewTurnState("session-1", "trace-1", "user-1", "q")
	state[graph.StateKeyPlan] = plan

	merged := runNode(t, reasoning.Func(), state)

	replanned := graph.PlanOf(merged)
	require.NotNil(t, replanned)
	assert.Equal(t, plan.PlanID, replanned.PlanID)
	assert.Equal(t, 2, replanned.Version)
	assert.Equal(t, AgentConversational, replanned.RecommendedAgent)
	assert.InDelta(t, 0.8, replanned.Confidence, 0.001)
	require.Len(t, replanned.History, 1)
	assert.Equal(t, 1, replanned.History[0].Version)
}

func TestReasoningReplansOnNewErrors(t *testing.T) {
	reasoning := NewReasoning(allEnabled())

	plan := graph.NewPlan("goal")
	plan.RecommendedAgent = AgentConversational

	state := graph.NewTurnState("session-1", "trace-1", "user-1", "q")
	state[graph.StateKeyPlan] = plan
	state = graph.MergeDict(state, graph.StateKeyResponseMetadata, map[string]any{MetaReasoningErrorMark: 0})
	state = graph.AddError(state, graph.ErrorTypeAgentExecution, "agent failed", nil)

	merged := runNode(t, reasoning.Func(), state)

	replanned := graph.PlanOf(merged)
	require.NotNil(t, replanned)
	assert.Equal(t, 2, replanned.Version)
	assert.Equal(t, 1, metadataInt(merged, MetaReasoningErrorMark))
}

func TestReasoningKeepsValidPlan(t *testing.T) {
	reasoning := NewReasoning(allEnabled())

	plan := graph.NewPlan("goal")
	plan.RecommendedAgent = AgentConversational

	state := graph.NewTurnState("session-1", "trace-1", "user-1", "q")
	state[graph.StateKeyPlan] = plan

	merged := runNode(t, reasoning.Func(), state)

	// Same plan instance, no version churn.
	assert.Same(t, plan, graph.PlanOf(merged))
}
