//
// Copyright (C) 2026 CAPI AI. All rights reserved.
//
// orquesta is licensed under the Apache License Version 2.0.
//
//

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Engine.MaxSteps)
	assert.Equal(t, 3, cfg.Engine.MaxIterations)
	assert.Equal(t, "memory", cfg.Checkpoint.Backend)
	assert.Equal(t, Duration(time.Hour), cfg.Checkpoint.TTL)
	assert.Equal(t, 256, cfg.Events.BufferSize)
	assert.Equal(t, "capi_datab", cfg.Agents.DataAgent)
	assert.Equal(t, "info", cfg.Log.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
engine:
  max_iterations: 5
checkpoint:
  backend: sqlite
  path: /var/lib/orquesta/checkpoints.db
  ttl: 30m
events:
  buffer_size: 64
agents:
  enabled:
    capi_datab: true
    capi_desktop: false
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Engine.MaxIterations)
	// Untouched keys keep their defaults.
	assert.Equal(t, 100, cfg.Engine.MaxSteps)
	assert.Equal(t, "sqlite", cfg.Checkpoint.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Checkpoint.TTL.Std())
	assert.Equal(t, 64, cfg.Events.BufferSize)
	assert.True(t, cfg.Agents.Enabled["capi_datab"])
	assert.False(t, cfg.Agents.Enabled["capi_desktop"])
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestDurationAcceptsSeconds(t *testing.T) {
	path := writeConfig(t, "checkpoint:\n  ttl: 120\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.Checkpoint.TTL.Std())

	_, err = Load(writeConfig(t, "checkpoint:\n  ttl: soon\n"))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max steps", func(c *Config) { c.Engine.MaxSteps = 0 }},
		{"zero iterations", func(c *Config) { c.Engine.MaxIterations = 0 }},
		{"negative retries", func(c *Config) { c.Engine.MaxRetries = -1 }},
		{"unknown backend", func(c *Config) { c.Checkpoint.Backend = "redis" }},
		{"sqlite without path", func(c *Config) { c.Checkpoint.Backend = "sqlite" }},
		{"zero ttl", func(c *Config) { c.Checkpoint.TTL = 0 }},
		{"zero buffer", func(c *Config) { c.Events.BufferSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
