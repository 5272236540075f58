//
// Copyright (C) 2026 CAPI AI. All rights reserved.
//
// orquesta is licensed under the Apache License Version 2.0.
//
//

package flow

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/capiai/orquesta/agent"
	"github.com/capiai/orquesta/graph"
	"github.com/capiai/orquesta/log"
)

// AgentFactory produces a fresh agent instance for graph construction.
type AgentFactory func() (agent.Agent, error)

// Manifest declares an agent available for dynamic registration: its
// factory, the intents it should receive by default, and whether it starts
// enabled.
type Manifest struct {
	Name        string
	Description string
	Factory     AgentFactory
	Intents     []string
	Enabled     bool
}

// DynamicBuilder maintains a mutable agent registry and publishes immutable,
// versioned graph snapshots. Registration and unregistration rebuild the
// whole graph; readers always observe a complete snapshot via Graph.
type DynamicBuilder struct {
	classifier agent.Classifier
	enablement agent.Enablement
	opts       []PipelineOption

	mu        sync.Mutex
	manifests map[string]*Manifest
	agents    map[string]agent.Agent
	version   int64

	current atomic.Pointer[graph.Graph]
}

// NewDynamicBuilder validates the manifests, builds the initial snapshot and
// returns the builder. Every manifest needs a name and a factory, and every
// factory must produce an agent whose Name matches its manifest.
func NewDynamicBuilder(
	classifier agent.Classifier,
	enablement agent.Enablement,
	manifests []*Manifest,
	opts ...PipelineOption,
) (*DynamicBuilder, error) {
	b := &DynamicBuilder{
		classifier: classifier,
		enablement: enablement,
		opts:       opts,
		manifests:  make(map[string]*Manifest, len(manifests)),
		agents:     make(map[string]agent.Agent, len(manifests)),
	}
	for _, m := range manifests {
		if err := b.admit(m); err != nil {
			return nil, err
		}
	}
	if err := b.rebuild(graph.RebuildInitial); err != nil {
		return nil, err
	}
	return b, nil
}

// Graph returns the current snapshot. Executions started on a snapshot are
// unaffected by later rebuilds.
func (b *DynamicBuilder) Graph() *graph.Graph {
	return b.current.Load()
}

// Version reports the version of the current snapshot.
func (b *DynamicBuilder) Version() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

// Agents lists the registered agents as Info records, sorted by name.
func (b *DynamicBuilder) Agents() []agent.Info {
	b.mu.Lock()
	defer b.mu.Unlock()
	infos := make([]agent.Info, 0, len(b.manifests))
	for _, m := range b.manifests {
		infos = append(infos, agent.Info{Name: m.Name, Description: m.Description})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Register adds an agent manifest and publishes a rebuilt snapshot. On any
// failure the registry and the published snapshot are left unchanged.
func (b *DynamicBuilder) Register(m *Manifest) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.manifests[m.Name]; exists {
		return fmt.Errorf("agent %s already registered", m.Name)
	}
	if err := b.admit(m); err != nil {
		return err
	}
	if err := b.rebuild(graph.RebuildRegisterAgent); err != nil {
		delete(b.manifests, m.Name)
		delete(b.agents, m.Name)
		return err
	}
	log.Infof("registered agent %s, graph version %d", m.Name, b.version)
	return nil
}

// Unregister removes an agent and publishes a rebuilt snapshot.
func (b *DynamicBuilder) Unregister(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, exists := b.manifests[name]
	if !exists {
		return fmt.Errorf("agent %s not registered", name)
	}
	prev := b.agents[name]
	delete(b.manifests, name)
	delete(b.agents, name)
	if err := b.rebuild(graph.RebuildUnregisterAgent); err != nil {
		b.manifests[name] = m
		b.agents[name] = prev
		return err
	}
	log.Infof("unregistered agent %s, graph version %d", name, b.version)
	return nil
}

// SetEnabled flips the enabled flag on a registered manifest. The graph
// topology is unchanged, so no rebuild happens; routing consults the flag
// on every decision.
func (b *DynamicBuilder) SetEnabled(name string, enabled bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, exists := b.manifests[name]
	if !exists {
		return fmt.Errorf("agent %s not registered", name)
	}
	m.Enabled = enabled
	return nil
}

// IsEnabled implements agent.Enablement. An agent is enabled when its
// manifest says so and the base enablement, if any, agrees. Unregistered
// names are disabled.
func (b *DynamicBuilder) IsEnabled(name string) bool {
	b.mu.Lock()
	m, exists := b.manifests[name]
	b.mu.Unlock()
	if !exists || !m.Enabled {
		return false
	}
	if b.enablement != nil {
		return b.enablement.IsEnabled(name)
	}
	return true
}

// admit validates a manifest, instantiates its agent and records both.
// Caller holds the lock (or is the constructor).
func (b *DynamicBuilder) admit(m *Manifest) error {
	if m == nil || m.Name == "" {
		return fmt.Errorf("agent manifest requires a name")
	}
	if m.Factory == nil {
		return fmt.Errorf("agent %s: manifest requires a factory", m.Name)
	}
	a, err := m.Factory()
	if err != nil {
		return fmt.Errorf("agent %s: factory failed: %w", m.Name, err)
	}
	if a == nil {
		return fmt.Errorf("agent %s: factory returned nil agent", m.Name)
	}
	if a.Name() != m.Name {
		return fmt.Errorf("agent %s: factory produced agent named %s", m.Name, a.Name())
	}
	b.manifests[m.Name] = m
	b.agents[m.Name] = a
	return nil
}

// rebuild compiles a new snapshot from the current registry and publishes
// it. The version advances only when compilation succeeds.
func (b *DynamicBuilder) rebuild(reason string) error {
	agents := make([]agent.Agent, 0, len(b.agents))
	for _, a := range b.agents {
		agents = append(agents, a)
	}
	opts := append([]PipelineOption{
		WithRouterOptions(WithIntentDefaults(b.intentDefaults())),
	}, b.opts...)
	p := NewPipeline(b.classifier, b, agents, opts...)
	g, err := p.build(b.version+1, reason)
	if err != nil {
		return fmt.Errorf("graph rebuild (%s): %w", reason, err)
	}
	b.version++
	b.current.Store(g)
	return nil
}

// intentDefaults derives the intent routing table from manifests. When two
// manifests claim the same intent the lexically first agent name wins, so
// the table is stable across rebuilds.
func (b *DynamicBuilder) intentDefaults() map[string]string {
	names := make([]string, 0, len(b.manifests))
	for name := range b.manifests {
		names = append(names, name)
	}
	sort.Strings(names)
	defaults := make(map[string]string)
	for _, name := range names {
		for _, intent := range b.manifests[name].Intents {
			if _, taken := defaults[intent]; !taken {
				defaults[intent] = name
			}
		}
	}
	return defaults
}
