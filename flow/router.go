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

// ShortCircuitRule routes a follow-up hop from metadata flags alone, without
// a classification call. Rules are evaluated in order; the first match wins.
type ShortCircuitRule struct {
	// Name labels the rule for diagnostics.
	Name string
	// Applies reports whether the rule matches the current state.
	Applies func(state graph.State) bool
	// Target returns the node to route to.
	Target func(state graph.State) string
}

// DefaultShortCircuitRules reproduces the built-in follow-up chain after the
// data-query agent: pending alerts go to the alert coordinator, a ready
// desktop instruction goes to the file-writing agent, anything else to the
// default conversational agent.
func DefaultShortCircuitRules() []ShortCircuitRule {
	return []ShortCircuitRule{
		{
			Name:    "pending_alerts",
			Applies: func(s graph.State) bool { return graph.MetadataFlag(s, MetaPendingAlerts) },
			Target:  func(graph.State) string { return NodeAlerts },
		},
		{
			Name:    "desktop_ready",
			Applies: func(s graph.State) bool { return graph.MetadataFlag(s, MetaDesktopReady) },
			Target:  func(graph.State) string { return AgentDesktop },
		},
		{
			Name:    "conversational_followup",
			Applies: func(graph.State) bool { return true },
			Target:  func(graph.State) string { return AgentConversational },
		},
	}
}

// Router picks the next node for a turn: by short-circuit rules after the
// data-query agent, otherwise by semantic classification with an
// enablement-aware candidate walk.
type Router struct {
	classifier     agent.Classifier
	enablement     agent.Enablement
	intentDefaults map[string]string
	fallbackChain  []string
	rules          []ShortCircuitRule
	dataAgent      string
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithShortCircuitRules replaces the ordered short-circuit rule list.
func WithShortCircuitRules(rules []ShortCircuitRule) RouterOption {
	return func(r *Router) { r.rules = rules }
}

// WithIntentDefaults sets the intent-to-agent default table.
func WithIntentDefaults(defaults map[string]string) RouterOption {
	return func(r *Router) { r.intentDefaults = defaults }
}

// WithFallbackChain sets the fixed fallback candidate chain.
func WithFallbackChain(chain []string) RouterOption {
	return func(r *Router) { r.fallbackChain = chain }
}

// WithDataAgent overrides the agent whose completion triggers the
// short-circuit pass.
func WithDataAgent(name string) RouterOption {
	return func(r *Router) { r.dataAgent = name }
}

// NewRouter creates a Router.
func NewRouter(classifier agent.Classifier, enablement agent.Enablement, opts ...RouterOption) *Router {
	r := &Router{
		classifier:    classifier,
		enablement:    enablement,
		fallbackChain: []string{AgentConversational, AgentSummary},
		rules:         DefaultShortCircuitRules(),
		dataAgent:     AgentDataQuery,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Func returns the router node function.
func (r *Router) Func() graph.NodeFunc {
	return func(ctx context.Context, state graph.State) (any, error) {
		query := graph.StringValue(state, graph.StateKeyQuery)

		// Empty query: straight to assemble, no classification call.
		if query == "" {
			return graph.State{
				graph.StateKeyRoutingDecision: NodeAssemble,
				graph.StateKeyResponseMetadata: map[string]any{
					MetaIntent:     agent.IntentUnknown,
					MetaConfidence: float64(0),
				},
			}, nil
		}

		// Follow-up after the data-query agent: metadata flags alone decide
		// the next hop.
		if r.shortCircuitApplies(state) {
			for _, rule := range r.rules {
				if rule.Applies(state) {
					target := rule.Target(state)
					log.Debugf("router short-circuit rule %s -> %s", rule.Name, target)
					return graph.State{
						graph.StateKeyRoutingDecision: target,
					}, nil
				}
			}
		}

		cls, err := r.classifier.Classify(ctx, query, r.contextSummary(state))
		if err != nil {
			// Classifiers are expected to degrade rather than fail; treat a
			// failure the same way.
			log.Warnf("classification failed, degrading to unknown: %v", err)
			cls = agent.UnknownClassification(err.Error())
		}

		target := r.resolveTarget(cls)
		return graph.State{
			graph.StateKeyRoutingDecision: target,
			graph.StateKeyActiveAgent:     targetAgent(target),
			graph.StateKeyResponseMetadata: map[string]any{
				MetaIntent:     cls.Intent,
				MetaConfidence: cls.Confidence,
				MetaEntities:   cls.Entities,
				MetaChosenAgent: func() string {
					if target == NodeAssemble {
						return ""
					}
					return target
				}(),
				MetaClassification: map[string]any{
					"intent":       cls.Intent,
					"confidence":   cls.Confidence,
					"target_agent": cls.TargetAgent,
					"entities":     cls.Entities,
					"reasoning":    cls.Reasoning,
				},
			},
		}, nil
	}
}

// shortCircuitApplies reports whether the previous node was the data-query
// agent with no follow-up agent run since.
func (r *Router) shortCircuitApplies(state graph.State) bool {
	return graph.LastCompletedNode(state) == r.dataAgent
}

// resolveTarget walks the candidate list (suggested agent, intent default,
// fixed fallback chain) and picks the first enabled agent; with none
// enabled, the terminal assemble node.
func (r *Router) resolveTarget(cls *agent.Classification) string {
	candidates := make([]string, 0, 2+len(r.fallbackChain))
	if cls.TargetAgent != "" {
		candidates = append(candidates, cls.TargetAgent)
	}
	if def, ok := r.intentDefaults[cls.Intent]; ok && def != "" {
		candidates = append(candidates, def)
	}
	candidates = append(candidates, r.fallbackChain...)
	for _, candidate := range candidates {
		if r.enablement.IsEnabled(candidate) {
			return candidate
		}
	}
	return NodeAssemble
}

func (r *Router) contextSummary(state graph.State) map[string]any {
	return map[string]any{
		"session_id":      graph.StringValue(state, graph.StateKeySessionID),
		"completed_nodes": graph.CompletedNodes(state),
		"error_count":     len(graph.Errors(state)),
	}
}

func targetAgent(target string) string {
	switch target {
	case NodeAssemble, NodeAlerts, NodeReasoning, NodeLoop, NodeSupervisor, NodeHumanGate:
		return ""
	default:
		return target
	}
}
