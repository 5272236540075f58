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
	"time"

	"github.com/google/uuid"

	"github.com/capiai/orquesta/agent"
	"github.com/capiai/orquesta/graph"
	"github.com/capiai/orquesta/log"
)

// NewAgentNode wraps an external agent into a graph node. The node
// translates the agent's result envelope into shared artifacts and response
// metadata; an agent failure is absorbed into the error list and a degraded
// state, never an aborted turn.
func NewAgentNode(a agent.Agent) graph.NodeFunc {
	return func(ctx context.Context, state graph.State) (any, error) {
		task := &agent.Task{
			TaskID:    uuid.New().String(),
			Intent:    graph.MetadataString(state, MetaIntent),
			Query:     graph.StringValue(state, graph.StateKeyQuery),
			UserID:    graph.StringValue(state, graph.StateKeyUserID),
			SessionID: graph.StringValue(state, graph.StateKeySessionID),
			Context:   graph.MapValue(state, graph.StateKeySharedArtifacts),
			Metadata:  graph.Metadata(state),
		}

		started := time.Now()
		result, err := a.Process(ctx, task)
		elapsed := time.Since(started)

		if err != nil {
			log.Errorf("agent %s failed: %v", a.Name(), err)
			return degradedUpdate(a.Name(), err.Error()), nil
		}
		if result == nil {
			return degradedUpdate(a.Name(), "agent returned no result"), nil
		}
		if result.Status == agent.StatusFailed {
			message := result.Message
			if message == "" {
				message = "agent reported failure"
			}
			return degradedUpdate(a.Name(), message), nil
		}

		update := graph.State{
			graph.StateKeySharedArtifacts: map[string]any{
				a.Name(): result.Data,
			},
			graph.StateKeyResponseData: resultData(result),
			graph.StateKeyResponseMetadata: map[string]any{
				MetaAgentMessage: result.Message,
			},
		}
		// Agents communicate intent to later nodes (pending alerts, desktop
		// readiness, approval requirements) through a metadata payload in
		// their result data.
		if meta, ok := result.Data["metadata"].(map[string]any); ok {
			merged := update[graph.StateKeyResponseMetadata].(map[string]any)
			for k, v := range meta {
				merged[k] = v
			}
		}
		log.Debugf("agent %s completed in %s", a.Name(), elapsed)
		return update, nil
	}
}

func resultData(result *agent.Result) map[string]any {
	data := make(map[string]any, len(result.Data))
	for k, v := range result.Data {
		if k == "metadata" {
			continue
		}
		data[k] = v
	}
	return data
}

func degradedUpdate(agentName, message string) graph.State {
	return graph.State{
		graph.StateKeyErrors: []graph.ErrorRecord{{
			ErrorType: graph.ErrorTypeAgentExecution,
			Message:   fmt.Sprintf("%s: %s", agentName, message),
			Timestamp: time.Now().UTC(),
			Context:   map[string]any{"agent": agentName},
		}},
		graph.StateKeyResponseMetadata: map[string]any{
			MetaAgentMessage: "",
		},
	}
}
