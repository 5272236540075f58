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
	"github.com/capiai/orquesta/log"
)

const alertInterruptKey = "alert_coordinator"

// DefaultAlertInstruction is the downstream instruction offered to the
// caller alongside the alert summary.
const DefaultAlertInstruction = "write the alert summary to a file"

var priorityRank = map[string]int{
	"critical": 4,
	"high":     3,
	"medium":   2,
	"low":      1,
}

// Alert is one alert record surfaced by an upstream data agent.
type Alert struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Priority string `json:"priority"`
}

// AlertSummary aggregates the collected alerts.
type AlertSummary struct {
	Total       int            `json:"total"`
	ByPriority  map[string]int `json:"by_priority"`
	TopPriority string         `json:"top_priority"`
}

// AlertCoordinator collects alerts surfaced by the data-query agent,
// summarizes them, and suspends the turn offering a default downstream
// instruction the caller may accept or dismiss.
type AlertCoordinator struct {
	dataAgent string
}

// NewAlertCoordinator creates the alert coordination node.
func NewAlertCoordinator() *AlertCoordinator {
	return &AlertCoordinator{dataAgent: AgentDataQuery}
}

// Func returns the alert coordinator node function.
func (a *AlertCoordinator) Func() graph.NodeFunc {
	return func(ctx context.Context, state graph.State) (any, error) {
		alerts := a.collect(state)
		if len(alerts) == 0 {
			// Nothing to coordinate; the node still counts as completed.
			return graph.State{
				graph.StateKeyResponseMetadata: map[string]any{MetaPendingAlerts: false},
			}, nil
		}

		summary := summarize(alerts)
		payload := &graph.InterruptPayload{
			Node:      NodeAlerts,
			SessionID: graph.StringValue(state, graph.StateKeySessionID),
			TraceID:   graph.StringValue(state, graph.StateKeyTraceID),
			Reason:    "alerts require attention",
			Context: map[string]any{
				"summary":             summary,
				"default_instruction": DefaultAlertInstruction,
			},
		}
		raw, err := graph.Interrupt(ctx, state, alertInterruptKey, payload)
		if err != nil {
			return nil, err
		}

		decision, _ := raw.(map[string]any)
		log.Debugf("alert coordinator resumed with decision %v", decision)
		return graph.State{
			graph.StateKeyResponseMetadata: map[string]any{
				MetaAlertSummary:  summary,
				MetaAlertDecision: decision,
				MetaAlertHandled:  false,
				MetaPendingAlerts: false,
				// The desktop hop carries a write side effect; the human
				// decision was just taken, so record it for the gate.
				MetaHumanDecision: decision,
				MetaPendingAction: "write_file",
			},
		}, nil
	}
}

// collect gathers alert records from the shared artifacts and response data,
// deduplicated by (id, title).
func (a *AlertCoordinator) collect(state graph.State) []Alert {
	type key struct{ id, title string }
	seen := make(map[key]bool)
	var alerts []Alert
	add := func(raw any) {
		alert, ok := decodeAlert(raw)
		if !ok {
			return
		}
		k := key{alert.ID, alert.Title}
		if seen[k] {
			return
		}
		seen[k] = true
		alerts = append(alerts, alert)
	}

	if artifacts := graph.MapValue(state, graph.StateKeySharedArtifacts); artifacts != nil {
		if data, ok := artifacts[a.dataAgent].(map[string]any); ok {
			appendAlerts(data["alerts"], add)
		}
	}
	if responseData := graph.MapValue(state, graph.StateKeyResponseData); responseData != nil {
		appendAlerts(responseData["alerts"], add)
	}
	return alerts
}

func appendAlerts(raw any, add func(any)) {
	switch list := raw.(type) {
	case []Alert:
		for _, alert := range list {
			add(alert)
		}
	case []any:
		for _, item := range list {
			add(item)
		}
	}
}

func decodeAlert(raw any) (Alert, bool) {
	switch v := raw.(type) {
	case Alert:
		return v, true
	case map[string]any:
		alert := Alert{}
		alert.ID, _ = v["id"].(string)
		alert.Title, _ = v["title"].(string)
		alert.Priority, _ = v["priority"].(string)
		if alert.ID == "" && alert.Title == "" {
			return Alert{}, false
		}
		return alert, true
	default:
		return Alert{}, false
	}
}

func summarize(alerts []Alert) *AlertSummary {
	summary := &AlertSummary{
		Total:      len(alerts),
		ByPriority: make(map[string]int),
	}
	for _, alert := range alerts {
		priority := alert.Priority
		if priority == "" {
			priority = "low"
		}
		summary.ByPriority[priority]++
		if priorityRank[priority] > priorityRank[summary.TopPriority] {
			summary.TopPriority = priority
		}
	}
	return summary
}
