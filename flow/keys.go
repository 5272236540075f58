//
// Copyright (C) 2026 CAPI AI. All rights reserved.
//
// orquesta is licensed under the Apache License Version 2.0.
//
//

// Package flow implements the conversational pipeline on top of the graph
// engine: routing, reasoning, loop control, supervision, human gating, alert
// coordination and response assembly, plus the static and dynamic graph
// builders that wire them together.
package flow

// Node identifiers of the pipeline.
const (
	NodeRouter     = "router"
	NodeReasoning  = "reasoning"
	NodeLoop       = "loop_controller"
	NodeSupervisor = "supervisor"
	NodeHumanGate  = "human_gate"
	NodeAlerts     = "alert_coordinator"
	NodeAssemble   = "assemble"
)

// Well-known agent names. The data-query and desktop agents participate in
// routing rules; the conversational agent is the default fallback target.
const (
	AgentDataQuery      = "capi_datab"
	AgentDesktop        = "capi_desktop"
	AgentConversational = "capi_gpt"
	AgentSummary        = "capi_resumen"
)

// Response-metadata keys. Metadata is the primary channel nodes use to
// communicate intent to later nodes.
const (
	MetaIntent             = "intent"
	MetaConfidence         = "confidence"
	MetaEntities           = "entities"
	MetaClassification     = "classification"
	MetaChosenAgent        = "chosen_agent"
	MetaAgentMessage       = "agent_message"
	MetaRequiresApproval   = "requires_human_approval"
	MetaSemanticAction     = "semantic_action"
	MetaHumanDecision      = "human_decision"
	MetaApprovalRejected   = "approval_rejected"
	MetaPendingAction      = "pending_action"
	MetaPendingAlerts      = "pending_alerts"
	MetaDesktopReady       = "desktop_instruction_ready"
	MetaAlertDecision      = "alert_decision"
	MetaAlertHandled       = "alert_decision_handled"
	MetaAlertSummary       = "alert_summary"
	MetaReactNeeded        = "react_needed"
	MetaReactAgent         = "react_agent"
	MetaReasoningNeeded    = "reasoning_needed"
	MetaReasoningErrorMark = "reasoning_error_mark"
	MetaRetryTarget        = "retry_target"
	MetaLoopIterations     = "loop_iterations"
	MetaExecutionQueue     = "execution_queue"
)

// Decision keys of the resume payload injected by the caller.
const (
	DecisionKeyApproved = "approved"
	DecisionKeyMessage  = "message"
)

// Semantic actions that always require human review.
var sensitiveActions = map[string]bool{
	"write":  true,
	"modify": true,
	"delete": true,
}
