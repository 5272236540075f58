//
// Copyright (C) 2026 CAPI AI. All rights reserved.
//
// orquesta is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// InterruptPayload is the value carried by a suspension: enough context for
// an external caller to render an approval request and resume the turn.
type InterruptPayload struct {
	Node      string         `json:"node"`
	SessionID string         `json:"session_id"`
	TraceID   string         `json:"trace_id"`
	Reason    string         `json:"reason"`
	Context   map[string]any `json:"context,omitempty"`
}

// InterruptError represents an interrupt in graph execution that can be
// resumed with an externally supplied decision.
type InterruptError struct {
	// Value is the value that was passed to Interrupt().
	Value any
	// NodeID is the ID of the node where the interrupt occurred.
	NodeID string
	// Timestamp is when the interrupt occurred.
	Timestamp time.Time
}

// Error returns the error message for the interrupt.
func (e *InterruptError) Error() string {
	return fmt.Sprintf("graph interrupted at node %s: %v", e.NodeID, e.Value)
}

// NewInterruptError creates a new InterruptError with the given value.
func NewInterruptError(value any) *InterruptError {
	return &InterruptError{
		Value:     value,
		Timestamp: time.Now().UTC(),
	}
}

// AsInterrupt extracts an InterruptError from an error.
func AsInterrupt(err error) (*InterruptError, bool) {
	var ie *InterruptError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// Interrupt suspends execution at the current node with the given prompt
// value. On resume, it returns the injected decision instead. The key scopes
// the suspension so a re-executed node sees the same resume value.
func Interrupt(ctx context.Context, state State, key string, prompt any) (any, error) {
	usedMap, _ := state[StateKeyUsedInterrupts].(map[string]any)
	if usedMap == nil {
		usedMap = make(map[string]any)
		state[StateKeyUsedInterrupts] = usedMap
	}
	// The node re-executed after already consuming its resume value.
	if usedValue, exists := usedMap[key]; exists {
		return usedValue, nil
	}
	if resumeValue, exists := state[StateKeyResume]; exists {
		usedMap[key] = resumeValue
		delete(state, StateKeyResume)
		return resumeValue, nil
	}
	return nil, NewInterruptError(prompt)
}

// HasResumeValue reports whether a resume decision is pending in state.
func HasResumeValue(state State) bool {
	_, exists := state[StateKeyResume]
	return exists
}

// ResumeValue extracts the pending resume decision with type safety,
// consuming it.
func ResumeValue[T any](state State) (T, bool) {
	var zero T
	if resumeValue, exists := state[StateKeyResume]; exists {
		if typedValue, ok := resumeValue.(T); ok {
			delete(state, StateKeyResume)
			return typedValue, true
		}
	}
	return zero, false
}

// ClearResumeValues removes all resume bookkeeping from the state.
func ClearResumeValues(state State) {
	delete(state, StateKeyResume)
	delete(state, StateKeyUsedInterrupts)
}
