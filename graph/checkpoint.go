//
// Copyright (C) 2026 CAPI AI. All rights reserved.
//
// orquesta is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// DefaultCheckpointTTL is how long a suspended turn's snapshot survives
// before the lazy sweep drops it. Expiry is the system's only cancellation
// mechanism for turns that never resume.
const DefaultCheckpointTTL = time.Hour

// Snapshot is a persisted copy of a State Record at a suspension point,
// keyed by session id. It must round-trip with full fidelity, including the
// Plan's version history.
type Snapshot struct {
	SessionID string    `json:"session_id"`
	NodeID    string    `json:"node_id"`
	Reason    string    `json:"reason,omitempty"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the checkpoint persistence contract. The default implementation
// is in-memory (checkpoint/inmemory); durable backends are swappable without
// changing caller contracts.
//
// A load miss returns (nil, nil), never an error. A save never fails
// silently: I/O errors propagate to the caller.
type Store interface {
	Load(ctx context.Context, sessionID string) (*Snapshot, error)
	Save(ctx context.Context, sessionID string, snapshot *Snapshot) error
	Delete(ctx context.Context, sessionID string) error
	Close() error
}

// NewSnapshot captures the checkpointable portion of a state: internal
// wiring keys are stripped so the snapshot stays serializable.
func NewSnapshot(sessionID, nodeID, reason string, state State) *Snapshot {
	persisted := state.Clone()
	delete(persisted, StateKeyResume)
	delete(persisted, StateKeyUsedInterrupts)
	return &Snapshot{
		SessionID: sessionID,
		NodeID:    nodeID,
		Reason:    reason,
		State:     persisted,
		CreatedAt: time.Now().UTC(),
	}
}

// RehydrateState restores typed values on a state decoded from JSON by a
// durable backend: generic JSON containers come back as []any and
// map[string]any, while callers expect []string, []ErrorRecord, *Plan and
// int fields.
func RehydrateState(raw map[string]any) (State, error) {
	state := State(raw).Clone()
	if v, ok := raw[StateKeyCompletedNodes]; ok {
		nodes, err := reencode[[]string](v)
		if err != nil {
			return nil, fmt.Errorf("rehydrating %s: %w", StateKeyCompletedNodes, err)
		}
		state[StateKeyCompletedNodes] = nodes
	}
	if v, ok := raw[StateKeyErrors]; ok {
		records, err := reencode[[]ErrorRecord](v)
		if err != nil {
			return nil, fmt.Errorf("rehydrating %s: %w", StateKeyErrors, err)
		}
		state[StateKeyErrors] = records
	}
	if v, ok := raw[StateKeyPlan]; ok && v != nil {
		plan, err := reencode[*Plan](v)
		if err != nil {
			return nil, fmt.Errorf("rehydrating %s: %w", StateKeyPlan, err)
		}
		state[StateKeyPlan] = plan
	}
	if v, ok := raw[StateKeyRetryCount]; ok {
		if f, isFloat := v.(float64); isFloat {
			state[StateKeyRetryCount] = int(f)
		}
	}
	return state, nil
}

func reencode[T any](v any) (T, error) {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, err
	}
	return out, nil
}
