//
// Copyright (C) 2026 CAPI AI. All rights reserved.
//
// orquesta is licensed under the Apache License Version 2.0.
//
//

package flow

import (
	"context"

	"github.com/capiai/orquesta/graph"
)

// Supervisor builds a deduplicated, ordered execution queue for cooperative
// multi-agent turns and exposes the head as the next routing decision and
// active agent.
type Supervisor struct {
	defaultQueue []string
}

// NewSupervisor creates the supervisor node.
func NewSupervisor(defaultQueue ...string) *Supervisor {
	if len(defaultQueue) == 0 {
		defaultQueue = []string{AgentConversational}
	}
	return &Supervisor{defaultQueue: defaultQueue}
}

// Func returns the supervisor node function.
func (s *Supervisor) Func() graph.NodeFunc {
	return func(ctx context.Context, state graph.State) (any, error) {
		var candidates []string
		if react := graph.MetadataString(state, MetaReactAgent); react != "" {
			candidates = append(candidates, react)
		}
		if plan := graph.PlanOf(state); plan != nil {
			if plan.RecommendedAgent != "" {
				candidates = append(candidates, plan.RecommendedAgent)
			}
			candidates = append(candidates, plan.CooperativeAgents...)
		}
		candidates = append(candidates, previousQueue(state)...)
		candidates = append(candidates, s.defaultQueue...)

		queue := dedupe(candidates)
		if len(queue) == 0 {
			return graph.State{
				graph.StateKeyRoutingDecision: NodeAssemble,
				graph.StateKeyResponseMetadata: map[string]any{
					MetaExecutionQueue: []string{},
					MetaReactNeeded:    false,
				},
			}, nil
		}
		head, rest := queue[0], queue[1:]
		return graph.State{
			graph.StateKeyRoutingDecision: head,
			graph.StateKeyActiveAgent:     head,
			graph.StateKeyResponseMetadata: map[string]any{
				MetaExecutionQueue: rest,
				// The react hop is being taken now; the next loop pass
				// decides whether another cycle is needed.
				MetaReactNeeded: false,
			},
		}, nil
	}
}

func previousQueue(state graph.State) []string {
	switch v := graph.Metadata(state)[MetaExecutionQueue].(type) {
	case []string:
		return v
	case []any:
		queue := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				queue = append(queue, s)
			}
		}
		return queue
	default:
		return nil
	}
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	result := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		result = append(result, name)
	}
	return result
}
