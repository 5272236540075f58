//
// Copyright (C) 2026 CAPI AI. All rights reserved.
//
// orquesta is licensed under the Apache License Version 2.0.
//
//

// Package graph provides the graph-based workflow execution engine that
// drives the conversational pipeline: state-graph construction, sequential
// node execution per turn, interrupt/resume gating and checkpointing.
package graph

import (
	"fmt"
	"reflect"
	"sync"
	"time"
)

// State represents the working memory of one conversation turn as it flows
// through the graph. Nodes never mutate it in place; they return deltas that
// the executor merges through the schema's reducers.
type State map[string]any

// Clone creates a copy of the state. Top-level keys are copied; callers that
// mutate nested maps must go through the update helpers, which copy before
// writing.
func (s State) Clone() State {
	clone := make(State, len(s))
	for k, v := range s {
		clone[k] = v
	}
	return clone
}

// ErrorRecord is one entry of the turn's append-only error list.
type ErrorRecord struct {
	ErrorType string         `json:"error_type"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Context   map[string]any `json:"context,omitempty"`
}

// StateReducer determines how a field update is merged into the existing
// value. Reducers that detect an invalid merge return an error, which aborts
// the whole update.
type StateReducer func(existing, update any) (any, error)

// StateField defines a field in the state schema with its type and reducer.
type StateField struct {
	Type     reflect.Type
	Reducer  StateReducer
	Default  func() any
	Required bool
}

// StateSchema defines the structure and merge behavior of graph state.
type StateSchema struct {
	mu     sync.RWMutex
	Fields map[string]StateField
}

// NewStateSchema creates a new state schema.
func NewStateSchema() *StateSchema {
	return &StateSchema{Fields: make(map[string]StateField)}
}

// AddField adds a field to the state schema.
func (s *StateSchema) AddField(name string, field StateField) *StateSchema {
	s.mu.Lock()
	defer s.mu.Unlock()
	if field.Reducer == nil {
		field.Reducer = DefaultReducer
	}
	s.Fields[name] = field
	return s
}

// ApplyUpdate merges an update into the current state using the defined
// reducers and returns the merged copy. A reducer failure (for example a
// constant-field conflict) aborts the update and leaves the input untouched.
func (s *StateSchema) ApplyUpdate(currentState State, update State) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := currentState.Clone()
	for key, updateValue := range update {
		field, exists := s.Fields[key]
		if !exists {
			// No field definition: overwrite.
			result[key] = updateValue
			continue
		}
		currentValue, hasCurrentValue := result[key]
		if !hasCurrentValue && field.Default != nil {
			currentValue = field.Default()
		}
		merged, err := field.Reducer(currentValue, updateValue)
		if err != nil {
			if cfe, ok := err.(*ConstantFieldError); ok && cfe.Field == "" {
				cfe.Field = key
			}
			return nil, fmt.Errorf("merging field %s: %w", key, err)
		}
		result[key] = merged
	}
	return result, nil
}

// Validate validates a state against the schema.
func (s *StateSchema) Validate(state State) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for name, field := range s.Fields {
		value, exists := state[name]
		if field.Required && !exists {
			return fmt.Errorf("required field %s is missing", name)
		}
		if exists && value != nil && field.Type != nil {
			valueType := reflect.TypeOf(value)
			if !valueType.AssignableTo(field.Type) {
				return fmt.Errorf("field %s has wrong type: expected %v, got %v",
					name, field.Type, valueType)
			}
		}
	}
	return nil
}

// Common reducer functions.

// DefaultReducer overwrites the existing value with the update.
func DefaultReducer(existing, update any) (any, error) {
	return update, nil
}

// ConstantReducer keeps a field constant for the life of the turn. An empty
// side yields the non-empty one; two non-empty, unequal values fail the
// merge. This models parallel branches that must agree on provenance.
func ConstantReducer(existing, update any) (any, error) {
	if isEmptyValue(existing) {
		return update, nil
	}
	if isEmptyValue(update) {
		return existing, nil
	}
	if reflect.DeepEqual(existing, update) {
		return existing, nil
	}
	return nil, &ConstantFieldError{Existing: existing, Update: update}
}

// AppendReducer appends the update to the existing slice, preserving order.
func AppendReducer(existing, update any) (any, error) {
	if existing == nil {
		existing = []any{}
	}
	existingSlice, ok1 := existing.([]any)
	updateSlice, ok2 := update.([]any)
	if !ok1 || !ok2 {
		return update, nil
	}
	merged := make([]any, 0, len(existingSlice)+len(updateSlice))
	merged = append(merged, existingSlice...)
	return append(merged, updateSlice...), nil
}

// StringSliceReducer appends string slices specifically.
func StringSliceReducer(existing, update any) (any, error) {
	if existing == nil {
		existing = []string{}
	}
	existingSlice, ok1 := existing.([]string)
	updateSlice, ok2 := update.([]string)
	if !ok1 || !ok2 {
		return update, nil
	}
	merged := make([]string, 0, len(existingSlice)+len(updateSlice))
	merged = append(merged, existingSlice...)
	return append(merged, updateSlice...), nil
}

// MergeReducer shallow-merges the update map into the existing map. Later
// keys win.
func MergeReducer(existing, update any) (any, error) {
	if existing == nil {
		existing = make(map[string]any)
	}
	existingMap, ok1 := existing.(map[string]any)
	updateMap, ok2 := update.(map[string]any)
	if !ok1 || !ok2 {
		return update, nil
	}
	result := make(map[string]any, len(existingMap)+len(updateMap))
	for k, v := range existingMap {
		result[k] = v
	}
	for k, v := range updateMap {
		result[k] = v
	}
	return result, nil
}

// ErrorListReducer appends error records, keeping the list append-only.
func ErrorListReducer(existing, update any) (any, error) {
	if existing == nil {
		existing = []ErrorRecord{}
	}
	existingList, ok1 := existing.([]ErrorRecord)
	updateList, ok2 := update.([]ErrorRecord)
	if !ok1 || !ok2 {
		return update, nil
	}
	merged := make([]ErrorRecord, 0, len(existingList)+len(updateList))
	merged = append(merged, existingList...)
	return append(merged, updateList...), nil
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	return false
}

// ConversationSchema creates the state schema for the conversational
// pipeline: constant identity fields, append-only bookkeeping and error
// lists, merged artifact and metadata maps, overwritten response fields.
func ConversationSchema() *StateSchema {
	schema := NewStateSchema()
	for _, key := range []string{StateKeySessionID, StateKeyTraceID, StateKeyUserID} {
		schema.AddField(key, StateField{
			Type:    reflect.TypeOf(""),
			Reducer: ConstantReducer,
		})
	}
	schema.AddField(StateKeyCompletedNodes, StateField{
		Type:    reflect.TypeOf([]string{}),
		Reducer: StringSliceReducer,
		Default: func() any { return []string{} },
	})
	schema.AddField(StateKeyErrors, StateField{
		Type:    reflect.TypeOf([]ErrorRecord{}),
		Reducer: ErrorListReducer,
		Default: func() any { return []ErrorRecord{} },
	})
	for _, key := range []string{StateKeySharedArtifacts, StateKeyResponseMetadata, StateKeyResponseData} {
		schema.AddField(key, StateField{
			Type:    reflect.TypeOf(map[string]any{}),
			Reducer: MergeReducer,
			Default: func() any { return make(map[string]any) },
		})
	}
	schema.AddField(StateKeyQuery, StateField{
		Type:    reflect.TypeOf(""),
		Reducer: DefaultReducer,
	})
	schema.AddField(StateKeyFinalMessage, StateField{
		Type:    reflect.TypeOf(""),
		Reducer: DefaultReducer,
	})
	return schema
}
