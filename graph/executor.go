//
// Copyright (C) 2026 CAPI AI. All rights reserved.
//
// orquesta is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/capiai/orquesta/event"
	"github.com/capiai/orquesta/log"
	"github.com/capiai/orquesta/telemetry/trace"
)

const (
	// AuthorExecutor is the author stamped on executor-level events.
	AuthorExecutor = "graph-executor"

	defaultMaxSteps = 100
)

// Executor runs one conversation turn through a graph snapshot. Node
// execution within a turn is strictly sequential; concurrent turns use
// independent Executor calls and share nothing but the immutable graph.
type Executor struct {
	graph    *Graph
	saver    Store
	relay    *event.Relay
	maxSteps int
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithMaxSteps sets the recursion limit for a single turn (default 100).
func WithMaxSteps(maxSteps int) ExecutorOption {
	return func(e *Executor) {
		if maxSteps > 0 {
			e.maxSteps = maxSteps
		}
	}
}

// WithCheckpointStore sets the store used to persist suspended turns.
func WithCheckpointStore(saver Store) ExecutorOption {
	return func(e *Executor) { e.saver = saver }
}

// WithEventRelay sets the relay node lifecycle events are emitted to.
func WithEventRelay(relay *event.Relay) ExecutorOption {
	return func(e *Executor) { e.relay = relay }
}

// NewExecutor creates a new graph executor.
func NewExecutor(graph *Graph, opts ...ExecutorOption) (*Executor, error) {
	if err := graph.validate(); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}
	e := &Executor{
		graph:    graph,
		maxSteps: defaultMaxSteps,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Outcome is the result of running (or resuming) a turn.
type Outcome struct {
	// State is the final State Record.
	State State
	// Status is completed, failed, or paused.
	Status string
	// Interrupt carries the suspension payload when Status is paused.
	Interrupt *InterruptPayload
}

// Execute runs a turn from the graph's entry point to End, a failure, or a
// suspension. The initial state must carry a session id.
func (e *Executor) Execute(ctx context.Context, initial State) (*Outcome, error) {
	sessionID := StringValue(initial, StateKeySessionID)
	if sessionID == "" {
		return nil, ErrSessionIDRequired
	}
	state := initial.Clone()
	state[StateKeyStatus] = StatusProcessing
	return e.run(ctx, state, e.graph.EntryPoint())
}

// Resume re-enters a suspended turn with an externally supplied decision.
// The decision is merged into response metadata and exposed to the
// interrupted node through the resume channel; execution continues on the
// graph snapshot this executor holds, at the node that suspended.
func (e *Executor) Resume(ctx context.Context, sessionID string, decision map[string]any) (*Outcome, error) {
	if e.saver == nil {
		return nil, ErrCheckpointStoreRequired
	}
	snapshot, err := e.saver.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading checkpoint for session %s: %w", sessionID, err)
	}
	if snapshot == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrCheckpointNotFound)
	}
	state := MergeDict(snapshot.State, StateKeyResponseMetadata, decision)
	state[StateKeyResume] = decision
	state[StateKeyStatus] = StatusProcessing
	return e.run(ctx, state, snapshot.NodeID)
}

func (e *Executor) run(ctx context.Context, state State, current string) (*Outcome, error) {
	ctx, span := trace.Tracer.Start(ctx, "execute_graph")
	defer span.End()
	sessionID := StringValue(state, StateKeySessionID)
	span.SetAttributes(
		attribute.String(trace.KeySessionID, sessionID),
		attribute.Int64(trace.KeyGraphVersion, e.graph.Version()),
	)

	for step := 0; ; step++ {
		if err := ctx.Err(); err != nil {
			state[StateKeyStatus] = StatusFailed
			return &Outcome{State: state, Status: StatusFailed}, err
		}
		if step >= e.maxSteps {
			state[StateKeyStatus] = StatusFailed
			err := fmt.Errorf("maximum execution steps (%d) exceeded", e.maxSteps)
			span.SetAttributes(attribute.String(trace.KeyError, err.Error()))
			return &Outcome{State: state, Status: StatusFailed}, err
		}
		if current == End {
			state[StateKeyStatus] = StatusCompleted
			ClearResumeValues(state)
			if e.saver != nil {
				if err := e.saver.Delete(ctx, sessionID); err != nil {
					log.Warnf("deleting checkpoint for session %s: %v", sessionID, err)
				}
			}
			e.emit(event.New(event.TypeEnd, AuthorExecutor, sessionID,
				event.WithContent(StringValue(state, StateKeyFinalMessage))))
			return &Outcome{State: state, Status: StatusCompleted}, nil
		}

		next, updated, err := e.executeNode(ctx, state, current)
		state = updated
		if err != nil {
			if ie, ok := AsInterrupt(err); ok {
				return e.suspend(ctx, state, current, ie)
			}
			state[StateKeyStatus] = StatusFailed
			span.SetAttributes(attribute.String(trace.KeyError, err.Error()))
			e.emit(event.New(event.TypeError, current, sessionID, event.WithContent(err.Error())))
			return &Outcome{State: state, Status: StatusFailed}, err
		}
		current = next
	}
}

// executeNode runs a single node and returns the next node ID together with
// the updated state.
func (e *Executor) executeNode(ctx context.Context, state State, nodeID string) (string, State, error) {
	node, exists := e.graph.Node(nodeID)
	if !exists {
		return "", state, fmt.Errorf("node %s not found", nodeID)
	}

	ctx, span := trace.Tracer.Start(ctx, fmt.Sprintf("execute_node %s", nodeID))
	defer span.End()
	span.SetAttributes(
		attribute.String(trace.KeyNodeID, nodeID),
		attribute.String(trace.KeyNodeName, node.Name),
	)

	sessionID := StringValue(state, StateKeySessionID)
	state[StateKeyCurrentNode] = nodeID
	e.emit(event.New(event.TypeStart, nodeID, sessionID))

	var routed string
	if node.Function != nil {
		result, err := node.Function(ctx, state)
		if err != nil {
			if _, ok := AsInterrupt(err); ok {
				return "", state, err
			}
			// Node-local failure: record it and keep the turn alive. The
			// node still counts as completed so downstream logic can see it
			// ran.
			span.SetAttributes(attribute.String(trace.KeyError, err.Error()))
			log.Errorf("node %s failed: %v", nodeID, err)
			state = AddError(state, ErrorTypeNodeExecution, err.Error(), map[string]any{"node": nodeID})
			e.emit(event.New(event.TypeError, nodeID, sessionID, event.WithContent(err.Error())))
		} else {
			state, routed, err = e.applyResult(state, result)
			if err != nil {
				// Graph-integrity failure: fatal for the turn.
				span.SetAttributes(attribute.String(trace.KeyError, err.Error()))
				return "", state, fmt.Errorf("node %s: %w", nodeID, err)
			}
		}
	}

	state = AppendToList(state, StateKeyCompletedNodes, nodeID)
	e.emit(event.New(event.TypeEnd, nodeID, sessionID))

	if routed != "" {
		span.SetAttributes(attribute.String(trace.KeyNextNode, routed))
		return routed, state, nil
	}
	next, err := e.selectNextNode(ctx, state, nodeID)
	if err != nil {
		return "", state, err
	}
	span.SetAttributes(attribute.String(trace.KeyNextNode, next))
	return next, state, nil
}

func (e *Executor) applyResult(state State, result any) (State, string, error) {
	switch r := result.(type) {
	case nil:
		return state, "", nil
	case *Command:
		if r.Update != nil {
			merged, err := e.graph.Schema().ApplyUpdate(state, r.Update)
			if err != nil {
				return state, "", err
			}
			state = merged
		}
		return state, r.GoTo, nil
	case State:
		merged, err := e.graph.Schema().ApplyUpdate(state, r)
		if err != nil {
			return state, "", err
		}
		return merged, "", nil
	default:
		return state, "", fmt.Errorf("node function returned invalid result type: %T", result)
	}
}

// selectNextNode selects the next node based on edges and conditional logic.
func (e *Executor) selectNextNode(ctx context.Context, state State, currentNodeID string) (string, error) {
	if condEdge, exists := e.graph.ConditionalEdge(currentNodeID); exists {
		conditionResult, err := condEdge.Condition(ctx, state)
		if err != nil {
			return "", fmt.Errorf("conditional edge evaluation failed: %w", err)
		}
		if nextNode, exists := condEdge.PathMap[conditionResult]; exists {
			return nextNode, nil
		}
		return "", fmt.Errorf("condition result %s not found in path map", conditionResult)
	}
	edges := e.graph.Edges(currentNodeID)
	if len(edges) == 0 {
		// No outgoing edges: the node is terminal.
		return End, nil
	}
	return edges[0].To, nil
}

// suspend checkpoints the state and returns a paused outcome carrying the
// interrupt payload. The node that interrupted counts as completed so a
// resumed turn re-enters it knowingly.
func (e *Executor) suspend(ctx context.Context, state State, nodeID string, ie *InterruptError) (*Outcome, error) {
	if e.saver == nil {
		state[StateKeyStatus] = StatusFailed
		return &Outcome{State: state, Status: StatusFailed}, ErrCheckpointStoreRequired
	}
	ie.NodeID = nodeID
	sessionID := StringValue(state, StateKeySessionID)

	payload, _ := ie.Value.(*InterruptPayload)
	if payload == nil {
		payload = &InterruptPayload{
			Node:      nodeID,
			SessionID: sessionID,
			TraceID:   StringValue(state, StateKeyTraceID),
			Reason:    fmt.Sprintf("%v", ie.Value),
		}
	}

	state = AppendToList(state, StateKeyCompletedNodes, nodeID)
	state[StateKeyStatus] = StatusPaused
	snapshot := NewSnapshot(sessionID, nodeID, payload.Reason, state)
	if err := e.saver.Save(ctx, sessionID, snapshot); err != nil {
		state[StateKeyStatus] = StatusFailed
		return &Outcome{State: state, Status: StatusFailed},
			fmt.Errorf("checkpointing suspended session %s: %w", sessionID, err)
	}
	log.Infof("turn suspended at node %s for session %s: %s", nodeID, sessionID, payload.Reason)
	e.emit(event.New(event.TypeProgress, nodeID, sessionID,
		event.WithContent("awaiting external decision"),
		event.WithMetadata("reason", payload.Reason)))
	return &Outcome{State: state, Status: StatusPaused, Interrupt: payload}, nil
}

func (e *Executor) emit(evt *event.Event) {
	if e.relay != nil {
		e.relay.Emit(evt)
	}
}
