//
// Copyright (C) 2026 CAPI AI. All rights reserved.
//
// orquesta is licensed under the Apache License Version 2.0.
//
//

package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/capiai/orquesta/agent"
	"github.com/capiai/orquesta/graph"
	"github.com/capiai/orquesta/log"
)

// Reasoning generates and maintains the turn's Plan. The first visit builds
// a plan from the query; later visits replan when the recommended agent was
// disabled or new errors accumulated since the previous pass.
type Reasoning struct {
	enablement agent.Enablement
	fallback   []string
}

// NewReasoning creates the reasoning node.
func NewReasoning(enablement agent.Enablement) *Reasoning {
	return &Reasoning{
		enablement: enablement,
		fallback:   []string{AgentConversational, AgentSummary},
	}
}

// Func returns the reasoning node function.
func (r *Reasoning) Func() graph.NodeFunc {
	return func(ctx context.Context, state graph.State) (any, error) {
		plan := graph.PlanOf(state)
		if plan == nil {
			plan = r.buildPlan(state)
			return graph.State{
				graph.StateKeyPlan: plan,
				graph.StateKeyResponseMetadata: map[string]any{
					MetaReactNeeded:        plan.HasRemainingSteps() && plan.RecommendedAgent != "",
					MetaReactAgent:         plan.RecommendedAgent,
					MetaReasoningNeeded:    false,
					MetaReasoningErrorMark: len(graph.Errors(state)),
				},
			}, nil
		}

		errorCount := len(graph.Errors(state))
		seenErrors := metadataInt(state, MetaReasoningErrorMark)
		agentDisabled := plan.RecommendedAgent != "" && !r.enablement.IsEnabled(plan.RecommendedAgent)
		if agentDisabled || errorCount > seenErrors {
			reason := "errors accumulated since last pass"
			if agentDisabled {
				reason = fmt.Sprintf("recommended agent %s disabled", plan.RecommendedAgent)
			}
			replanned := plan.Replan(reason, func(next *graph.Plan) {
				if agentDisabled {
					next.RecommendedAgent = r.pickReplacement(next)
				}
				next.Confidence *= 0.8
			})
			log.Infof("replanned %s v%d: %s", replanned.PlanID, replanned.Version, reason)
			return graph.State{
				graph.StateKeyPlan: replanned,
				graph.StateKeyResponseMetadata: map[string]any{
					MetaReactNeeded:        replanned.HasRemainingSteps() && replanned.RecommendedAgent != "",
					MetaReactAgent:         replanned.RecommendedAgent,
					MetaReasoningNeeded:    false,
					MetaReasoningErrorMark: errorCount,
				},
			}, nil
		}

		// Plan still valid; just refresh the react flag.
		return graph.State{
			graph.StateKeyResponseMetadata: map[string]any{
				MetaReactNeeded:     plan.HasRemainingSteps() && plan.RecommendedAgent != "",
				MetaReactAgent:      plan.RecommendedAgent,
				MetaReasoningNeeded: false,
			},
		}, nil
	}
}

// buildPlan derives the initial plan from the query and any classification
// the router recorded.
func (r *Reasoning) buildPlan(state graph.State) *graph.Plan {
	query := graph.StringValue(state, graph.StateKeyQuery)
	plan := graph.NewPlan(query)
	plan.RecommendedAgent = graph.StringValue(state, graph.StateKeyActiveAgent)
	if plan.RecommendedAgent == "" {
		plan.RecommendedAgent = graph.MetadataString(state, MetaChosenAgent)
	}
	if conf, ok := graph.Metadata(state)[MetaConfidence].(float64); ok {
		plan.Confidence = conf
	}
	plan.Complexity = classifyComplexity(query)
	switch plan.Complexity {
	case graph.ComplexitySimple:
		plan.EstimatedEffort = "low"
		plan.Steps = []graph.PlanStep{
			{ID: "step-1", Description: "resolve the query", Agent: plan.RecommendedAgent},
		}
	case graph.ComplexityModerate:
		plan.EstimatedEffort = "medium"
		plan.Steps = []graph.PlanStep{
			{ID: "step-1", Description: "gather the required data", Agent: plan.RecommendedAgent},
			{ID: "step-2", Description: "compose the answer", Agent: AgentConversational},
		}
		plan.CooperativeAgents = []string{AgentConversational}
	default:
		plan.EstimatedEffort = "high"
		plan.Steps = []graph.PlanStep{
			{ID: "step-1", Description: "gather the required data", Agent: plan.RecommendedAgent},
			{ID: "step-2", Description: "summarize intermediate results", Agent: AgentSummary},
			{ID: "step-3", Description: "compose the answer", Agent: AgentConversational},
		}
		plan.CooperativeAgents = []string{AgentSummary, AgentConversational}
	}
	plan.RemainingSteps = len(plan.Steps)
	return plan
}

// pickReplacement finds an enabled agent among the plan's cooperative agents
// and the fallback chain. Empty when nothing is enabled.
func (r *Reasoning) pickReplacement(plan *graph.Plan) string {
	for _, candidate := range append(append([]string{}, plan.CooperativeAgents...), r.fallback...) {
		if candidate != "" && r.enablement.IsEnabled(candidate) {
			return candidate
		}
	}
	return ""
}

func classifyComplexity(query string) string {
	words := len(strings.Fields(query))
	switch {
	case words <= 6:
		return graph.ComplexitySimple
	case words <= 20:
		return graph.ComplexityModerate
	default:
		return graph.ComplexityComplex
	}
}

func metadataInt(state graph.State, key string) int {
	switch v := graph.Metadata(state)[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
