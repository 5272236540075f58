//
// Copyright (C) 2026 CAPI AI. All rights reserved.
//
// orquesta is licensed under the Apache License Version 2.0.
//
//

package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capiai/orquesta/agent"
	"github.com/capiai/orquesta/graph"
)

func manifestFor(name string, intents ...string) *Manifest {
	return &Manifest{
		Name:    name,
		Enabled: true,
		Intents: intents,
		Factory: func() (agent.Agent, error) {
			return &stubAgent{
				name:   name,
				result: &agent.Result{Status: agent.StatusCompleted, Message: "ok"},
			}, nil
		},
	}
}

func baseManifests() []*Manifest {
	return []*Manifest{
		manifestFor(AgentDataQuery, "balance_query"),
		manifestFor(AgentConversational, "greeting"),
	}
}

func TestDynamicBuilderInitialSnapshot(t *testing.T) {
	b, err := NewDynamicBuilder(balanceClassifier(), nil, baseManifests())
	require.NoError(t, err)

	g := b.Graph()
	require.NotNil(t, g)
	assert.Equal(t, int64(1), g.Version())
	assert.Equal(t, graph.RebuildInitial, g.RebuildReason())
	assert.Equal(t, int64(1), b.Version())

	_, exists := g.Node(AgentDataQuery)
	assert.True(t, exists)
}

func TestDynamicBuilderListsAgents(t *testing.T) {
	manifests := baseManifests()
	manifests[0].Description = "branch balance queries"
	b, err := NewDynamicBuilder(balanceClassifier(), nil, manifests)
	require.NoError(t, err)

	infos := b.Agents()
	require.Len(t, infos, 2)
	// Sorted by name regardless of registration order.
	assert.Equal(t, agent.Info{Name: AgentDataQuery, Description: "branch balance queries"}, infos[0])
	assert.Equal(t, AgentConversational, infos[1].Name)

	require.NoError(t, b.Register(manifestFor(AgentSummary, "summary_request")))
	infos = b.Agents()
	require.Len(t, infos, 3)
	assert.Equal(t, AgentSummary, infos[2].Name)
}

func TestDynamicBuilderVersionMonotonicity(t *testing.T) {
	b, err := NewDynamicBuilder(balanceClassifier(), nil, baseManifests())
	require.NoError(t, err)

	require.NoError(t, b.Register(manifestFor(AgentDesktop)))
	assert.Equal(t, int64(2), b.Graph().Version())
	assert.Equal(t, graph.RebuildRegisterAgent, b.Graph().RebuildReason())

	require.NoError(t, b.Unregister(AgentDesktop))
	assert.Equal(t, int64(3), b.Graph().Version())
	assert.Equal(t, graph.RebuildUnregisterAgent, b.Graph().RebuildReason())
}

func TestDynamicBuilderSnapshotSwapIsAtomic(t *testing.T) {
	b, err := NewDynamicBuilder(balanceClassifier(), nil, baseManifests())
	require.NoError(t, err)

	before := b.Graph()
	require.NoError(t, b.Register(manifestFor(AgentDesktop)))
	after := b.Graph()

	// The old snapshot is intact; in-flight turns keep using it.
	assert.NotSame(t, before, after)
	_, exists := before.Node(AgentDesktop)
	assert.False(t, exists)
	_, exists = after.Node(AgentDesktop)
	assert.True(t, exists)
}

func TestDynamicBuilderFailedRegistrationLeavesSnapshot(t *testing.T) {
	b, err := NewDynamicBuilder(balanceClassifier(), nil, baseManifests())
	require.NoError(t, err)
	before := b.Graph()

	err = b.Register(&Manifest{
		Name:    "capi_broken",
		Enabled: true,
		Factory: func() (agent.Agent, error) { return nil, errors.New("boot failure") },
	})
	require.Error(t, err)

	assert.Same(t, before, b.Graph())
	assert.Equal(t, int64(1), b.Version())

	// The broken manifest left no trace in the registry.
	assert.False(t, b.IsEnabled("capi_broken"))
}

func TestDynamicBuilderManifestValidation(t *testing.T) {
	_, err := NewDynamicBuilder(balanceClassifier(), nil, []*Manifest{{Name: ""}})
	assert.Error(t, err)

	_, err = NewDynamicBuilder(balanceClassifier(), nil, []*Manifest{{Name: "capi_x"}})
	assert.Error(t, err)

	mismatched := &Manifest{
		Name:    "capi_x",
		Factory: func() (agent.Agent, error) { return &stubAgent{name: "capi_y"}, nil },
	}
	_, err = NewDynamicBuilder(balanceClassifier(), nil, []*Manifest{mismatched})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capi_y")

	b, err := NewDynamicBuilder(balanceClassifier(), nil, baseManifests())
	require.NoError(t, err)
	assert.Error(t, b.Register(manifestFor(AgentDataQuery)))
}

func TestDynamicBuilderEnablement(t *testing.T) {
	manifests := baseManifests()
	manifests[1].Enabled = false
	b, err := NewDynamicBuilder(balanceClassifier(), nil, manifests)
	require.NoError(t, err)

	assert.True(t, b.IsEnabled(AgentDataQuery))
	assert.False(t, b.IsEnabled(AgentConversational))
	assert.False(t, b.IsEnabled("never_registered"))

	require.NoError(t, b.SetEnabled(AgentConversational, true))
	assert.True(t, b.IsEnabled(AgentConversational))
	assert.Error(t, b.SetEnabled("never_registered", true))

	// A base enablement can veto a manifest-enabled agent.
	vetoed, err := NewDynamicBuilder(balanceClassifier(),
		agent.EnablementFunc(func(name string) bool { return name != AgentDataQuery }),
		baseManifests())
	require.NoError(t, err)
	assert.False(t, vetoed.IsEnabled(AgentDataQuery))
	assert.True(t, vetoed.IsEnabled(AgentConversational))
}

func TestDynamicBuilderRoutesByManifestIntent(t *testing.T) {
	b, err := NewDynamicBuilder(balanceClassifier(), nil, baseManifests())
	require.NoError(t, err)

	exec, err := graph.NewExecutor(b.Graph())
	require.NoError(t, err)

	turn := graph.NewTurnState("session-1", "trace-1", "user-1", "saldo de la sucursal Palermo")
	outcome, err := exec.Execute(context.Background(), turn)
	require.NoError(t, err)

	assert.Equal(t, graph.StatusCompleted, outcome.Status)
	assert.Contains(t, graph.CompletedNodes(outcome.State), AgentDataQuery)
}
