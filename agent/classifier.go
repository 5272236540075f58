//
// Copyright (C) 2026 CAPI AI. All rights reserved.
//
// orquesta is licensed under the Apache License Version 2.0.
//
//

package agent

import "context"

// IntentUnknown is the intent reported when classification is unavailable or
// the query carries no recognizable intent.
const IntentUnknown = "unknown"

// Classification is the outcome of semantic intent classification.
type Classification struct {
	Intent                string         `json:"intent"`
	Confidence            float64        `json:"confidence"`
	TargetAgent           string         `json:"target_agent,omitempty"`
	Entities              map[string]any `json:"entities,omitempty"`
	Reasoning             string         `json:"reasoning,omitempty"`
	RequiresClarification bool           `json:"requires_clarification,omitempty"`
}

// Classifier resolves a query into an intent and a suggested target agent.
// Implementations must degrade gracefully: when the reasoning backend is
// unavailable they return a low-confidence unknown classification instead of
// an error.
type Classifier interface {
	Classify(ctx context.Context, query string, context map[string]any) (*Classification, error)
}

// UnknownClassification returns the degraded fallback result used when the
// classifier cannot produce a real answer.
func UnknownClassification(reason string) *Classification {
	return &Classification{
		Intent:     IntentUnknown,
		Confidence: 0,
		Reasoning:  reason,
	}
}

// Enablement reports whether an agent may currently receive work. Routing
// consults it before committing to any target.
type Enablement interface {
	IsEnabled(agentName string) bool
}

// EnablementFunc is an adapter to allow the use of ordinary functions as
// Enablement services.
type EnablementFunc func(agentName string) bool

// IsEnabled calls f(agentName).
func (f EnablementFunc) IsEnabled(agentName string) bool { return f(agentName) }

// StaticEnablement is a fixed enable/disable table, handy for configuration
// driven setups and tests. Agents missing from the table are disabled.
type StaticEnablement map[string]bool

// IsEnabled reports whether the named agent is enabled.
func (s StaticEnablement) IsEnabled(agentName string) bool { return s[agentName] }
