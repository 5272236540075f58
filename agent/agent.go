//
// Copyright (C) 2026 CAPI AI. All rights reserved.
//
// orquesta is licensed under the Apache License Version 2.0.
//
//

// Package agent defines the contracts the workflow engine consumes from the
// surrounding system: specialized agents, the semantic classifier, and the
// agent enablement service. The engine never inspects agent internals, only
// these envelopes.
package agent

import (
	"context"
	"time"
)

// Result status values.
const (
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Task is the unit of work handed to an agent.
type Task struct {
	TaskID    string         `json:"task_id"`
	Intent    string         `json:"intent"`
	Query     string         `json:"query"`
	UserID    string         `json:"user_id"`
	SessionID string         `json:"session_id"`
	Context   map[string]any `json:"context,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Result is the envelope an agent returns for a task.
type Result struct {
	Status         string         `json:"status"`
	Data           map[string]any `json:"data,omitempty"`
	Message        string         `json:"message,omitempty"`
	ProcessingTime time.Duration  `json:"processing_time"`
}

// Agent is the contract every specialized handler implements.
type Agent interface {
	// Name returns the stable agent identifier used for routing.
	Name() string
	// Process executes the task and returns a result envelope. Implementations
	// should return an error only for infrastructure failures; business-level
	// failures belong in a Result with StatusFailed.
	Process(ctx context.Context, task *Task) (*Result, error)
}

// Info contains basic information about an agent.
type Info struct {
	Name        string
	Description string
}
