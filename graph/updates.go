//
// Copyright (C) 2026 CAPI AI. All rights reserved.
//
// orquesta is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"time"
)

// State update helpers. Every helper takes a State and a delta and returns a
// new State; the original is untouched. Identity fields are never written by
// any helper, so the constant-field invariant holds for all helper sequences.

// NewTurnState creates the State Record for one inbound turn with only
// identity and query populated.
func NewTurnState(sessionID, traceID, userID, query string) State {
	return State{
		StateKeySessionID:        sessionID,
		StateKeyTraceID:          traceID,
		StateKeyUserID:           userID,
		StateKeyQuery:            query,
		StateKeyStatus:           StatusInitialized,
		StateKeyCompletedNodes:   []string{},
		StateKeyErrors:           []ErrorRecord{},
		StateKeySharedArtifacts:  map[string]any{},
		StateKeyResponseMetadata: map[string]any{},
		StateKeyResponseData:     map[string]any{},
		StateKeyRetryCount:       0,
	}
}

// UpdateField returns a new State with one field overwritten.
func UpdateField(s State, key string, value any) State {
	result := s.Clone()
	result[key] = value
	return result
}

// AppendToList returns a new State with values appended to the string-list
// field, preserving order.
func AppendToList(s State, key string, values ...string) State {
	result := s.Clone()
	existing, _ := result[key].([]string)
	merged := make([]string, 0, len(existing)+len(values))
	merged = append(merged, existing...)
	result[key] = append(merged, values...)
	return result
}

// MergeDict returns a new State with delta shallow-merged into the map
// field. Later keys win. The stored map is copied, never mutated.
func MergeDict(s State, key string, delta map[string]any) State {
	result := s.Clone()
	existing, _ := result[key].(map[string]any)
	merged := make(map[string]any, len(existing)+len(delta))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range delta {
		merged[k] = v
	}
	result[key] = merged
	return result
}

// AddError returns a new State with a timestamped error record appended.
func AddError(s State, errType, message string, context map[string]any) State {
	result := s.Clone()
	existing, _ := result[StateKeyErrors].([]ErrorRecord)
	merged := make([]ErrorRecord, 0, len(existing)+1)
	merged = append(merged, existing...)
	result[StateKeyErrors] = append(merged, ErrorRecord{
		ErrorType: errType,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Context:   context,
	})
	return result
}

// IncrementRetry returns a new State with the retry counter incremented.
// Exceeding maxRetries fails with ErrMaxRetriesExceeded and leaves the
// counter unchanged.
func IncrementRetry(s State, maxRetries int) (State, error) {
	count, _ := s[StateKeyRetryCount].(int)
	if count >= maxRetries {
		return s, ErrMaxRetriesExceeded
	}
	result := s.Clone()
	result[StateKeyRetryCount] = count + 1
	return result, nil
}

// Typed accessors.

// StringValue returns the string stored under key, or "".
func StringValue(s State, key string) string {
	v, _ := s[key].(string)
	return v
}

// IntValue returns the int stored under key, or 0.
func IntValue(s State, key string) int {
	v, _ := s[key].(int)
	return v
}

// MapValue returns the map stored under key, or nil.
func MapValue(s State, key string) map[string]any {
	v, _ := s[key].(map[string]any)
	return v
}

// CompletedNodes returns the ordered list of completed node names.
func CompletedNodes(s State) []string {
	v, _ := s[StateKeyCompletedNodes].([]string)
	return v
}

// LastCompletedNode returns the most recently completed node name, or "".
func LastCompletedNode(s State) string {
	nodes := CompletedNodes(s)
	if len(nodes) == 0 {
		return ""
	}
	return nodes[len(nodes)-1]
}

// Errors returns the turn's error list.
func Errors(s State) []ErrorRecord {
	v, _ := s[StateKeyErrors].([]ErrorRecord)
	return v
}

// Metadata returns the response metadata map, or nil when unset.
func Metadata(s State) map[string]any {
	return MapValue(s, StateKeyResponseMetadata)
}

// MetadataFlag reports whether a metadata key holds boolean true.
func MetadataFlag(s State, key string) bool {
	v, _ := Metadata(s)[key].(bool)
	return v
}

// MetadataString returns the string stored under a metadata key, or "".
func MetadataString(s State, key string) string {
	v, _ := Metadata(s)[key].(string)
	return v
}

// PlanOf returns the turn's Plan, or nil when reasoning has not run yet.
func PlanOf(s State) *Plan {
	v, _ := s[StateKeyPlan].(*Plan)
	return v
}
