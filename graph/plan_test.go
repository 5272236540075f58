//
// Copyright (C) 2026 CAPI AI. All rights reserved.
//
// orquesta is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlan(t *testing.T) {
	p := NewPlan("check the branch balance")

	assert.NotEmpty(t, p.PlanID)
	assert.Equal(t, 1, p.Version)
	assert.Equal(t, "check the branch balance", p.Goal)
	require.Len(t, p.Trace, 1)
	assert.Equal(t, "created", p.Trace[0].Action)
}

func TestReplanKeepsPlanIDAndStacksHistory(t *testing.T) {
	p := NewPlan("goal")
	p.RecommendedAgent = "capi_datab"
	p.Confidence = 1.0

	v2 := p.Replan("agent disabled", func(next *Plan) {
		next.RecommendedAgent = "capi_gpt"
	})
	v3 := v2.Replan("errors accumulated", nil)

	assert.Equal(t, p.PlanID, v2.PlanID)
	assert.Equal(t, p.PlanID, v3.PlanID)
	assert.Equal(t, 2, v2.Version)
	assert.Equal(t, 3, v3.Version)

	require.Len(t, v3.History, 2)
	assert.Equal(t, 1, v3.History[0].Version)
	assert.Equal(t, 2, v3.History[1].Version)
	// History entries carry no nested history of their own.
	assert.Empty(t, v3.History[0].History)

	// The receiver is untouched.
	assert.Equal(t, 1, p.Version)
	assert.Equal(t, "capi_datab", p.RecommendedAgent)
	assert.Empty(t, p.History)
}

func TestMarkStepCompletedRefreshesProgress(t *testing.T) {
	p := NewPlan("goal")
	p.Steps = []PlanStep{
		{ID: "step-1", Agent: "capi_datab"},
		{ID: "step-2", Agent: "capi_gpt"},
	}
	p.RemainingSteps = 2

	next := p.MarkStepCompleted("step-1")

	assert.Equal(t, 1, next.RemainingSteps)
	assert.InDelta(t, 50.0, next.Progress, 0.01)
	assert.True(t, next.Steps[0].Completed)
	assert.False(t, p.Steps[0].Completed)
}

func TestCompleteAgentSteps(t *testing.T) {
	p := NewPlan("goal")
	p.Steps = []PlanStep{
		{ID: "step-1", Agent: "capi_datab"},
		{ID: "step-2", Agent: "capi_datab"},
		{ID: "step-3", Agent: "capi_gpt"},
	}
	p.RemainingSteps = 3

	next, changed := p.CompleteAgentSteps("capi_datab")
	require.True(t, changed)
	assert.Equal(t, 1, next.RemainingSteps)
	assert.True(t, next.HasRemainingSteps())

	// No steps for the agent: the plan comes back unchanged.
	same, changed := next.CompleteAgentSteps("capi_resumen")
	assert.False(t, changed)
	assert.Same(t, next, same)

	final, changed := next.CompleteAgentSteps("capi_gpt")
	require.True(t, changed)
	assert.False(t, final.HasRemainingSteps())
	assert.InDelta(t, 100.0, final.Progress, 0.01)
}

func TestHasRemainingStepsNilSafe(t *testing.T) {
	var p *Plan
	assert.False(t, p.HasRemainingSteps())
}
