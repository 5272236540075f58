//
// Copyright (C) 2026 CAPI AI. All rights reserved.
//
// orquesta is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"time"

	"github.com/google/uuid"
)

// Plan complexity classifications.
const (
	ComplexitySimple   = "simple"
	ComplexityModerate = "moderate"
	ComplexityComplex  = "complex"
)

// PlanStep is one ordered step of a Plan.
type PlanStep struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Agent       string `json:"agent,omitempty"`
	Completed   bool   `json:"completed"`
}

// PlanEvent is one entry of the plan's trace log.
type PlanEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	Version   int       `json:"version"`
}

// Plan is the Reasoning node's versioned multi-step intention record. The
// PlanID is stable across replans; only Version increments, and superseded
// versions are pushed onto History.
type Plan struct {
	PlanID            string      `json:"plan_id"`
	Version           int         `json:"version"`
	Goal              string      `json:"goal"`
	Steps             []PlanStep  `json:"steps"`
	RecommendedAgent  string      `json:"recommended_agent,omitempty"`
	CooperativeAgents []string    `json:"cooperative_agents,omitempty"`
	Confidence        float64     `json:"confidence"`
	Progress          float64     `json:"progress"`
	RemainingSteps    int         `json:"remaining_steps"`
	EstimatedEffort   string      `json:"estimated_effort,omitempty"`
	Complexity        string      `json:"complexity,omitempty"`
	History           []*Plan     `json:"history,omitempty"`
	Trace             []PlanEvent `json:"trace,omitempty"`
}

// NewPlan creates version 1 of a plan for the given goal.
func NewPlan(goal string) *Plan {
	p := &Plan{
		PlanID:  uuid.New().String(),
		Version: 1,
		Goal:    goal,
	}
	p.Trace = append(p.Trace, PlanEvent{
		Timestamp: time.Now().UTC(),
		Action:    "created",
		Version:   1,
	})
	return p
}

// Clone returns a deep copy of the plan.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Steps = append([]PlanStep(nil), p.Steps...)
	clone.CooperativeAgents = append([]string(nil), p.CooperativeAgents...)
	clone.Trace = append([]PlanEvent(nil), p.Trace...)
	clone.History = make([]*Plan, len(p.History))
	for i, h := range p.History {
		clone.History[i] = h.Clone()
	}
	return &clone
}

// Replan produces the next version of the plan. The prior version (without
// its history) is pushed onto History, Version increments, and mutate is
// applied to the fresh copy. The receiver is untouched.
func (p *Plan) Replan(reason string, mutate func(*Plan)) *Plan {
	next := p.Clone()
	prior := p.Clone()
	prior.History = nil
	next.History = append(next.History, prior)
	next.Version++
	next.Trace = append(next.Trace, PlanEvent{
		Timestamp: time.Now().UTC(),
		Action:    "replanned",
		Detail:    reason,
		Version:   next.Version,
	})
	if mutate != nil {
		mutate(next)
	}
	return next
}

// MarkStepCompleted marks the identified step completed and refreshes
// Progress and RemainingSteps. Returns a new plan; the receiver is untouched.
func (p *Plan) MarkStepCompleted(stepID string) *Plan {
	next := p.Clone()
	remaining := 0
	for i := range next.Steps {
		if next.Steps[i].ID == stepID {
			next.Steps[i].Completed = true
		}
		if !next.Steps[i].Completed {
			remaining++
		}
	}
	next.RemainingSteps = remaining
	if len(next.Steps) > 0 {
		next.Progress = float64(len(next.Steps)-remaining) / float64(len(next.Steps)) * 100
	}
	return next
}

// CompleteAgentSteps marks every incomplete step assigned to the agent as
// completed. Returns (plan, false) unchanged when nothing was assigned.
func (p *Plan) CompleteAgentSteps(agentName string) (*Plan, bool) {
	if p == nil || agentName == "" {
		return p, false
	}
	changed := false
	next := p.Clone()
	remaining := 0
	for i := range next.Steps {
		if next.Steps[i].Agent == agentName && !next.Steps[i].Completed {
			next.Steps[i].Completed = true
			changed = true
		}
		if !next.Steps[i].Completed {
			remaining++
		}
	}
	if !changed {
		return p, false
	}
	next.RemainingSteps = remaining
	if len(next.Steps) > 0 {
		next.Progress = float64(len(next.Steps)-remaining) / float64(len(next.Steps)) * 100
	}
	return next, true
}

// HasRemainingSteps reports whether any plan step is still incomplete.
func (p *Plan) HasRemainingSteps() bool {
	if p == nil {
		return false
	}
	for _, step := range p.Steps {
		if !step.Completed {
			return true
		}
	}
	return false
}
