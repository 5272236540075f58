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
	"sort"

	"github.com/capiai/orquesta/agent"
	"github.com/capiai/orquesta/graph"
)

// Pipeline assembles the static conversational graph: the fixed node set
// (router, reasoning, loop controller, supervisor, human gate, alert
// coordinator, assemble) plus one node per agent, wired with conditional
// edges that follow the routing decision recorded in state.
type Pipeline struct {
	classifier agent.Classifier
	enablement agent.Enablement
	agents     map[string]agent.Agent
	routerOpts []RouterOption
	loopOpts   []LoopOption
	dataAgent  string
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithRouterOptions forwards options to the router node.
func WithRouterOptions(opts ...RouterOption) PipelineOption {
	return func(p *Pipeline) { p.routerOpts = append(p.routerOpts, opts...) }
}

// WithLoopOptions forwards options to the loop controller node.
func WithLoopOptions(opts ...LoopOption) PipelineOption {
	return func(p *Pipeline) { p.loopOpts = append(p.loopOpts, opts...) }
}

// WithPipelineDataAgent overrides the agent treated as the data-query agent
// for short-circuit routing (default capi_datab).
func WithPipelineDataAgent(name string) PipelineOption {
	return func(p *Pipeline) {
		p.dataAgent = name
		p.routerOpts = append(p.routerOpts, WithDataAgent(name))
	}
}

// NewPipeline creates a pipeline over the given agents.
func NewPipeline(
	classifier agent.Classifier,
	enablement agent.Enablement,
	agents []agent.Agent,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		classifier: classifier,
		enablement: enablement,
		agents:     make(map[string]agent.Agent, len(agents)),
		dataAgent:  AgentDataQuery,
	}
	for _, a := range agents {
		p.agents[a.Name()] = a
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Build compiles the pipeline into an executable graph snapshot.
func (p *Pipeline) Build() (*graph.Graph, error) {
	return p.build(1, graph.RebuildInitial)
}

func (p *Pipeline) build(version int64, reason string) (*graph.Graph, error) {
	sg := graph.NewStateGraph(graph.ConversationSchema())

	router := NewRouter(p.classifier, p.enablement, p.routerOpts...)
	sg.AddNode(NodeRouter, router.Func(), graph.WithDescription("intent classification and routing"))
	sg.AddNode(NodeReasoning, NewReasoning(p.enablement).Func(), graph.WithDescription("plan generation and replanning"))
	sg.AddNode(NodeLoop, NewLoopController(p.enablement, p.loopOpts...).Func(), graph.WithDescription("bounded loop guard"))
	sg.AddNode(NodeSupervisor, NewSupervisor().Func(), graph.WithDescription("cooperative execution queue"))
	sg.AddNode(NodeHumanGate, NewHumanGate().Func(), graph.WithDescription("human approval gate"))
	sg.AddNode(NodeAlerts, NewAlertCoordinator().Func(), graph.WithDescription("alert collection and escalation"))
	sg.AddNode(NodeAssemble, NewAssembleNode(), graph.WithDescription("final response assembly"))

	names := make([]string, 0, len(p.agents))
	for name := range p.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sg.AddNode(name, NewAgentNode(p.agents[name]))
	}

	sg.SetEntryPoint(NodeRouter)

	pathMap := p.pathMap(names)
	sg.AddConditionalEdges(NodeRouter, p.routeGated, pathMap)
	sg.AddConditionalEdges(NodeLoop, p.routeGated, pathMap)
	sg.AddConditionalEdges(NodeSupervisor, p.routeGated, pathMap)
	// The gate itself resolves directly, otherwise an approved hop would
	// bounce back to the gate forever.
	sg.AddConditionalEdges(NodeHumanGate, routeDirect, pathMap)

	sg.AddEdge(NodeReasoning, NodeLoop)
	sg.AddEdge(NodeAlerts, NodeLoop)
	for _, name := range names {
		if name == p.dataAgent {
			// The data-query agent returns to the router so the
			// short-circuit rules can pick the follow-up hop.
			sg.AddEdge(name, NodeRouter)
			continue
		}
		sg.AddEdge(name, NodeLoop)
	}
	sg.SetFinishPoint(NodeAssemble)

	sg.SetVersion(version, reason)
	return sg.Compile()
}

// pathMap enumerates every node a routing decision can name.
func (p *Pipeline) pathMap(agentNames []string) map[string]string {
	pathMap := map[string]string{
		NodeRouter:     NodeRouter,
		NodeReasoning:  NodeReasoning,
		NodeLoop:       NodeLoop,
		NodeSupervisor: NodeSupervisor,
		NodeHumanGate:  NodeHumanGate,
		NodeAlerts:     NodeAlerts,
		NodeAssemble:   NodeAssemble,
	}
	for _, name := range agentNames {
		pathMap[name] = name
	}
	return pathMap
}

// routeGated resolves the routing decision, interposing the human gate when
// the hop targets an agent, review is required, and no decision exists yet.
func (p *Pipeline) routeGated(ctx context.Context, state graph.State) (string, error) {
	target := routingTarget(state)
	if _, known := p.agents[target]; !known && targetAgent(target) != "" {
		return "", fmt.Errorf("routing decision names unknown agent %s", target)
	}
	if targetAgent(target) != "" && NeedsReview(state) && !DecisionRecorded(state) {
		return NodeHumanGate, nil
	}
	return target, nil
}

func routeDirect(ctx context.Context, state graph.State) (string, error) {
	return routingTarget(state), nil
}

func routingTarget(state graph.State) string {
	if target := graph.StringValue(state, graph.StateKeyRoutingDecision); target != "" {
		return target
	}
	return NodeAssemble
}
