//
// Copyright (C) 2026 CAPI AI. All rights reserved.
//
// orquesta is licensed under the Apache License Version 2.0.
//
//

package flow

import (
	"context"
	"fmt"

	"github.com/capiai/orquesta/graph"
	"github.com/capiai/orquesta/log"
)

const humanGateInterruptKey = "human_gate"

// HumanGate enforces human approval before sensitive side effects. A turn
// reaching the gate without a prior decision is suspended; the caller
// resumes it with {approved, message} merged into metadata.
type HumanGate struct{}

// NewHumanGate creates the human gate node.
func NewHumanGate() *HumanGate {
	return &HumanGate{}
}

// NeedsReview reports whether the turn requires human approval: either the
// explicit flag or a sensitive semantic action.
func NeedsReview(state graph.State) bool {
	if graph.MetadataFlag(state, MetaRequiresApproval) {
		return true
	}
	return sensitiveActions[graph.MetadataString(state, MetaSemanticAction)]
}

// DecisionRecorded reports whether a human decision was already merged into
// the turn's metadata.
func DecisionRecorded(state graph.State) bool {
	_, ok := graph.Metadata(state)[MetaHumanDecision]
	return ok
}

// Func returns the human gate node function.
func (h *HumanGate) Func() graph.NodeFunc {
	return func(ctx context.Context, state graph.State) (any, error) {
		if !NeedsReview(state) || DecisionRecorded(state) {
			// Nothing to gate; pass through to the parked routing target.
			return graph.State{}, nil
		}

		pendingAction := graph.MetadataString(state, MetaPendingAction)
		if pendingAction == "" {
			pendingAction = graph.MetadataString(state, MetaSemanticAction)
		}
		// The pending message survives in the checkpoint so the caller can
		// render it while the turn is suspended.
		state[graph.StateKeyFinalMessage] = fmt.Sprintf(
			"This request needs your approval before continuing (%s).", describeAction(pendingAction))

		payload := &graph.InterruptPayload{
			Node:      NodeHumanGate,
			SessionID: graph.StringValue(state, graph.StateKeySessionID),
			TraceID:   graph.StringValue(state, graph.StateKeyTraceID),
			Reason:    "human approval required",
			Context: map[string]any{
				"pending_action": pendingAction,
				"target":         graph.StringValue(state, graph.StateKeyRoutingDecision),
			},
		}
		raw, err := graph.Interrupt(ctx, state, humanGateInterruptKey, payload)
		if err != nil {
			return nil, err
		}

		decision, _ := raw.(map[string]any)
		approved, _ := decision[DecisionKeyApproved].(bool)
		if approved {
			log.Infof("human gate approved action %q", pendingAction)
			return graph.State{
				graph.StateKeyResponseMetadata: map[string]any{
					MetaHumanDecision: decision,
				},
			}, nil
		}

		log.Infof("human gate rejected action %q", pendingAction)
		return &graph.Command{
			Update: graph.State{
				graph.StateKeyFinalMessage: rejectionMessage(pendingAction, decision),
				graph.StateKeyResponseMetadata: map[string]any{
					MetaHumanDecision:    decision,
					MetaApprovalRejected: true,
				},
			},
			GoTo: NodeAssemble,
		}, nil
	}
}

// rejectionMessage tailors the final response to the specific withheld
// action without implying an unrecoverable failure.
func rejectionMessage(pendingAction string, decision map[string]any) string {
	if message, _ := decision[DecisionKeyMessage].(string); message != "" {
		return message
	}
	switch pendingAction {
	case "send_email":
		return "Understood, the email was not sent."
	case "write", "write_file":
		return "Understood, the file was not written."
	case "modify":
		return "Understood, no changes were made."
	case "delete":
		return "Understood, nothing was deleted."
	default:
		return "Understood, the pending action was not carried out."
	}
}

func describeAction(action string) string {
	if action == "" {
		return "a sensitive operation"
	}
	return action
}
