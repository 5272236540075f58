//
// Copyright (C) 2026 CAPI AI. All rights reserved.
//
// orquesta is licensed under the Apache License Version 2.0.
//
//

package graph

// State keys of the conversational State Record.
const (
	// Identity fields. Constant for the life of the turn.
	StateKeySessionID = "session_id"
	StateKeyTraceID   = "trace_id"
	StateKeyUserID    = "user_id"

	// Execution bookkeeping.
	StateKeyStatus          = "status"
	StateKeyCurrentNode     = "current_node"
	StateKeyCompletedNodes  = "completed_nodes"
	StateKeyRoutingDecision = "routing_decision"
	StateKeyActiveAgent     = "active_agent"
	StateKeyRetryCount      = "retry_count"

	// Conversation context.
	StateKeyQuery            = "original_query"
	StateKeySharedArtifacts  = "shared_artifacts"
	StateKeyResponseMetadata = "response_metadata"

	// Reasoning state.
	StateKeyPlan = "plan"

	// Error list. Append-only, never cleared mid-turn.
	StateKeyErrors = "errors"

	// Response construction.
	StateKeyFinalMessage = "final_message"
	StateKeyResponseData = "response_data"
)

// Internal state keys. Ephemeral wiring, excluded from checkpoints.
const (
	StateKeyResume         = "__resume__"
	StateKeyUsedInterrupts = "__used_interrupts__"
)

// Turn status values.
const (
	StatusInitialized = "initialized"
	StatusProcessing  = "processing"
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
	StatusPaused      = "paused"
)

// Graph rebuild reasons recorded on every snapshot mutation.
const (
	RebuildInitial         = "initial_build"
	RebuildRegisterAgent   = "register_agent"
	RebuildUnregisterAgent = "unregister_agent"
)
