//
// Copyright (C) 2026 CAPI AI. All rights reserved.
//
// orquesta is licensed under the Apache License Version 2.0.
//
//

// Package event provides the node lifecycle event system used to observe
// graph execution from outside the execution thread.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Event types emitted during a turn.
const (
	TypeStart    = "start"
	TypeProgress = "progress"
	TypeEnd      = "end"
	TypeError    = "error"
)

// Event represents one node lifecycle event in a conversation turn.
type Event struct {
	// ID is the unique identifier of the event.
	ID string `json:"id"`
	// Type is one of start, progress, end, error.
	Type string `json:"type"`
	// Agent is the node or agent the event refers to.
	Agent string `json:"agent"`
	// SessionID identifies the conversation the event belongs to.
	SessionID string `json:"session_id"`
	// InvocationID identifies the turn within the session.
	InvocationID string `json:"invocation_id,omitempty"`
	// Content is an optional human-readable payload.
	Content string `json:"content,omitempty"`
	// Metadata carries structured event details.
	Metadata map[string]any `json:"metadata,omitempty"`
	// Timestamp is when the event was created.
	Timestamp time.Time `json:"timestamp"`
}

// Option configures an Event.
type Option func(*Event)

// WithContent sets the content of the event.
func WithContent(content string) Option {
	return func(e *Event) { e.Content = content }
}

// WithInvocationID sets the invocation ID of the event.
func WithInvocationID(id string) Option {
	return func(e *Event) { e.InvocationID = id }
}

// WithMetadata sets one metadata entry on the event.
func WithMetadata(key string, value any) Option {
	return func(e *Event) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any)
		}
		e.Metadata[key] = value
	}
}

// New creates a new Event with a generated ID and timestamp.
func New(eventType, agent, sessionID string, opts ...Option) *Event {
	e := &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Agent:     agent,
		SessionID: sessionID,
		Timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Clone creates a copy of the event with an independent metadata map.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	clone := *e
	if e.Metadata != nil {
		clone.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}
