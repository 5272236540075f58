//
// Copyright (C) 2026 CAPI AI. All rights reserved.
//
// orquesta is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"errors"
	"fmt"
)

// Error type labels recorded in the State Record's error list.
const (
	ErrorTypeGraphExecution  = "graph_execution_error"
	ErrorTypeNodeExecution   = "node_execution_error"
	ErrorTypeAgentExecution  = "agent_execution_error"
	ErrorTypeRouting         = "routing_error"
	ErrorTypeStateValidation = "state_validation_error"
	ErrorTypeConditionalEdge = "conditional_edge_error"
)

// Errors.
var (
	// ErrSessionIDRequired is returned when a turn state lacks a session id.
	ErrSessionIDRequired = errors.New("session_id is required")
	// ErrCheckpointNotFound is returned by Resume when no checkpoint exists
	// for the session.
	ErrCheckpointNotFound = errors.New("checkpoint not found")
	// ErrCheckpointStoreRequired is returned when an interrupt occurs but no
	// checkpoint store was configured on the executor.
	ErrCheckpointStoreRequired = errors.New("checkpoint store is required for interrupts")
	// ErrMaxRetriesExceeded is returned by IncrementRetry once the bounded
	// retry counter is exhausted.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// ConstantFieldError reports a merge that attempted to change an identity
// field across branches. This indicates a logic error upstream and aborts the
// merge rather than silently continuing.
type ConstantFieldError struct {
	Field    string
	Existing any
	Update   any
}

// Error returns the error message.
func (e *ConstantFieldError) Error() string {
	return fmt.Sprintf("constant field %s cannot change: %v -> %v", e.Field, e.Existing, e.Update)
}

// IsConstantFieldError checks whether err carries a ConstantFieldError.
func IsConstantFieldError(err error) bool {
	var cfe *ConstantFieldError
	return errors.As(err, &cfe)
}
