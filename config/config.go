//
// Copyright (C) 2026 CAPI AI. All rights reserved.
//
// orquesta is licensed under the Apache License Version 2.0.
//
//

// Package config loads pipeline configuration from YAML with defaults
// applied for anything the file leaves out.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that decodes from YAML either as a Go
// duration string ("30m", "1h") or as an integer number of seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var seconds int64
	if err := value.Decode(&seconds); err == nil {
		*d = Duration(time.Duration(seconds) * time.Second)
		return nil
	}
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// String formats the duration the way time.Duration does.
func (d Duration) String() string { return time.Duration(d).String() }

// Config holds the tunables of the conversational pipeline.
type Config struct {
	Engine     EngineConfig     `yaml:"engine"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Events     EventsConfig     `yaml:"events"`
	Agents     AgentsConfig     `yaml:"agents"`
	Log        LogConfig        `yaml:"log"`
}

// EngineConfig bounds graph execution.
type EngineConfig struct {
	// MaxSteps caps the total node hops of one execution.
	MaxSteps int `yaml:"max_steps"`
	// MaxIterations caps loop controller passes per turn.
	MaxIterations int `yaml:"max_iterations"`
	// MaxRetries caps node retries recorded in state.
	MaxRetries int `yaml:"max_retries"`
}

// CheckpointConfig configures suspended-turn persistence.
type CheckpointConfig struct {
	// Backend selects the store: "memory" or "sqlite".
	Backend string `yaml:"backend"`
	// Path is the sqlite database file, ignored for the memory backend.
	Path string `yaml:"path"`
	// TTL is how long a suspended turn stays resumable.
	TTL Duration `yaml:"ttl"`
}

// EventsConfig configures the progress event relay.
type EventsConfig struct {
	// BufferSize is the relay queue depth; oldest events drop when full.
	BufferSize int `yaml:"buffer_size"`
}

// AgentsConfig configures the agent registry.
type AgentsConfig struct {
	// Enabled maps agent name to its enablement flag. Agents absent from
	// the map default to enabled.
	Enabled map[string]bool `yaml:"enabled"`
	// DataAgent names the agent whose results feed short-circuit routing.
	DataAgent string `yaml:"data_agent"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error, fatal.
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxSteps:      100,
			MaxIterations: 3,
			MaxRetries:    3,
		},
		Checkpoint: CheckpointConfig{
			Backend: "memory",
			TTL:     Duration(time.Hour),
		},
		Events: EventsConfig{
			BufferSize: 256,
		},
		Agents: AgentsConfig{
			Enabled:   map[string]bool{},
			DataAgent: "capi_datab",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML file over the defaults. A missing path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Engine.MaxSteps <= 0 {
		return fmt.Errorf("engine.max_steps must be positive, got %d", c.Engine.MaxSteps)
	}
	if c.Engine.MaxIterations <= 0 {
		return fmt.Errorf("engine.max_iterations must be positive, got %d", c.Engine.MaxIterations)
	}
	if c.Engine.MaxRetries < 0 {
		return fmt.Errorf("engine.max_retries must not be negative, got %d", c.Engine.MaxRetries)
	}
	switch c.Checkpoint.Backend {
	case "memory":
	case "sqlite":
		if c.Checkpoint.Path == "" {
			return fmt.Errorf("checkpoint.path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown checkpoint backend %q", c.Checkpoint.Backend)
	}
	if c.Checkpoint.TTL <= 0 {
		return fmt.Errorf("checkpoint.ttl must be positive, got %s", c.Checkpoint.TTL)
	}
	if c.Events.BufferSize <= 0 {
		return fmt.Errorf("events.buffer_size must be positive, got %d", c.Events.BufferSize)
	}
	return nil
}
