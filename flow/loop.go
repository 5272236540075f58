//
// Copyright (C) 2026 CAPI AI. All rights reserved.
//
// orquesta is licensed under the Apache License Version 2.0.
//
//

package flow

import (
	"context"

	"github.com/capiai/orquesta/agent"
	"github.com/capiai/orquesta/graph"
	"github.com/capiai/orquesta/log"
)

// DefaultMaxIterations bounds the reasoning/react cycle. Forcing the route
// to assemble once exceeded is the system's sole termination guarantee
// against infinite cycles.
const DefaultMaxIterations = 3

// LoopController guards the iterative reasoning/react cycle and resolves
// the next hop by priority once per pass through the loop.
type LoopController struct {
	enablement    agent.Enablement
	maxIterations int
}

// LoopOption configures a LoopController.
type LoopOption func(*LoopController)

// WithMaxIterations overrides the iteration bound (default 3).
func WithMaxIterations(n int) LoopOption {
	return func(l *LoopController) {
		if n > 0 {
			l.maxIterations = n
		}
	}
}

// NewLoopController creates the loop controller node.
func NewLoopController(enablement agent.Enablement, opts ...LoopOption) *LoopController {
	l := &LoopController{
		enablement:    enablement,
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Func returns the loop controller node function.
func (l *LoopController) Func() graph.NodeFunc {
	return func(ctx context.Context, state graph.State) (any, error) {
		iterations := metadataInt(state, MetaLoopIterations) + 1
		update := map[string]any{MetaLoopIterations: iterations}

		if iterations > l.maxIterations {
			log.Infof("loop controller: iteration bound %d reached, forcing assemble", l.maxIterations)
			return graph.State{
				graph.StateKeyRoutingDecision:  NodeAssemble,
				graph.StateKeyResponseMetadata: update,
			}, nil
		}

		// A pending decision from the alert coordinator takes precedence
		// over everything else.
		if decision, ok := pendingAlertDecision(state); ok {
			update[MetaAlertHandled] = true
			if approved, _ := decision[DecisionKeyApproved].(bool); approved {
				if l.enablement.IsEnabled(AgentDesktop) {
					return graph.State{
						graph.StateKeyRoutingDecision:  AgentDesktop,
						graph.StateKeyActiveAgent:      AgentDesktop,
						graph.StateKeyResponseMetadata: update,
					}, nil
				}
				// The agent was disabled while the turn was suspended. The
				// approved action cannot run, so the turn degrades to a
				// response explaining why nothing was written.
				log.Warnf("loop controller: %s is disabled, dropping approved alert action", AgentDesktop)
				update[MetaApprovalRejected] = true
				return graph.State{
					graph.StateKeyRoutingDecision:  NodeAssemble,
					graph.StateKeyFinalMessage:     "The alert summary was approved, but the desktop agent is currently disabled so nothing was written.",
					graph.StateKeyResponseMetadata: update,
				}, nil
			}
			message, _ := decision[DecisionKeyMessage].(string)
			if message == "" {
				message = "Understood, the alert summary will not be written."
			}
			// Marks the turn as declined so assemble keeps this message over
			// earlier agent output.
			update[MetaApprovalRejected] = true
			return graph.State{
				graph.StateKeyRoutingDecision:  NodeAssemble,
				graph.StateKeyFinalMessage:     message,
				graph.StateKeyResponseMetadata: update,
			}, nil
		}

		// Credit the plan with the work the just-finished agent did, so the
		// react cycle converges instead of re-running the same step.
		plan := graph.PlanOf(state)
		if active := graph.StringValue(state, graph.StateKeyActiveAgent); active != "" && ranAlready(state, active) {
			if advanced, changed := plan.CompleteAgentSteps(active); changed {
				plan = advanced
			}
		}

		target := l.resolve(state, plan)
		decided := graph.State{
			graph.StateKeyRoutingDecision:  target,
			graph.StateKeyResponseMetadata: update,
		}
		if plan != graph.PlanOf(state) {
			decided[graph.StateKeyPlan] = plan
		}
		if name := targetAgent(target); name != "" {
			decided[graph.StateKeyActiveAgent] = name
		}
		return decided, nil
	}
}

// resolve picks the next hop by priority: react needed, reasoning needed,
// explicit retry target, the plan's recommended or active agent, assemble.
func (l *LoopController) resolve(state graph.State, plan *graph.Plan) string {
	if graph.MetadataFlag(state, MetaReactNeeded) && plan.HasRemainingSteps() {
		return NodeSupervisor
	}
	if graph.MetadataFlag(state, MetaReasoningNeeded) {
		return NodeReasoning
	}
	// A turn that has run an agent but never reasoned gets one planning
	// pass before anything else.
	if plan == nil && !ranAlready(state, NodeReasoning) {
		return NodeReasoning
	}
	if retry := graph.MetadataString(state, MetaRetryTarget); retry != "" && l.enablement.IsEnabled(retry) {
		return retry
	}
	if plan != nil && plan.RecommendedAgent != "" &&
		l.enablement.IsEnabled(plan.RecommendedAgent) && plan.HasRemainingSteps() {
		return plan.RecommendedAgent
	}
	if active := graph.StringValue(state, graph.StateKeyActiveAgent); active != "" &&
		l.enablement.IsEnabled(active) && !ranAlready(state, active) {
		return active
	}
	return NodeAssemble
}

// pendingAlertDecision returns the alert coordinator's resume decision when
// it has not been consumed yet.
func pendingAlertDecision(state graph.State) (map[string]any, bool) {
	if graph.MetadataFlag(state, MetaAlertHandled) {
		return nil, false
	}
	decision, ok := graph.Metadata(state)[MetaAlertDecision].(map[string]any)
	return decision, ok
}

func ranAlready(state graph.State, node string) bool {
	for _, completed := range graph.CompletedNodes(state) {
		if completed == node {
			return true
		}
	}
	return false
}
