//
// Copyright (C) 2026 CAPI AI. All rights reserved.
//
// orquesta is licensed under the Apache License Version 2.0.
//
//

package flow

import (
	"context"

	"github.com/capiai/orquesta/graph"
)

// FallbackMessage is the caller-facing text when a turn could not produce a
// real answer.
const FallbackMessage = "I could not complete that operation. Please rephrase your request or try again."

// NewAssembleNode creates the terminal node that constructs the final
// response from whatever the turn accumulated. The caller always receives a
// well-formed response, never a raw error.
func NewAssembleNode() graph.NodeFunc {
	return func(ctx context.Context, state graph.State) (any, error) {
		message := finalMessage(state)
		return &graph.Command{
			Update: graph.State{
				graph.StateKeyFinalMessage: message,
				graph.StateKeyResponseData: map[string]any{
					"intent":      graph.MetadataString(state, MetaIntent),
					"agent":       graph.StringValue(state, graph.StateKeyActiveAgent),
					"error_count": len(graph.Errors(state)),
				},
			},
			GoTo: graph.End,
		}, nil
	}
}

func finalMessage(state graph.State) string {
	// A rejection message set by the human gate or loop controller wins.
	if graph.MetadataFlag(state, MetaApprovalRejected) {
		if existing := graph.StringValue(state, graph.StateKeyFinalMessage); existing != "" {
			return existing
		}
	}
	if message := graph.MetadataString(state, MetaAgentMessage); message != "" {
		return message
	}
	if existing := graph.StringValue(state, graph.StateKeyFinalMessage); existing != "" {
		return existing
	}
	if len(graph.Errors(state)) > 0 {
		return FallbackMessage
	}
	return "How can I help you?"
}
