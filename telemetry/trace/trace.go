//
// Copyright (C) 2026 CAPI AI. All rights reserved.
//
// orquesta is licensed under the Apache License Version 2.0.
//
//

// Package trace exposes the tracer used by the workflow engine.
package trace

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const instrumentName = "github.com/capiai/orquesta"

// Tracer is the tracer used across the engine. It resolves against the
// globally registered tracer provider, so applications wire exporters the
// usual otel way and the engine picks them up.
var Tracer trace.Tracer = otel.Tracer(instrumentName)

// Attribute key prefix for engine spans.
const (
	KeyNodeID       = "orquesta.node_id"
	KeyNodeName     = "orquesta.node_name"
	KeySessionID    = "orquesta.session_id"
	KeyNextNode     = "orquesta.next_node"
	KeyGraphVersion = "orquesta.graph_version"
	KeyError        = "orquesta.error"
)
