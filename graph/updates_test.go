//
// Copyright (C) 2026 CAPI AI. All rights reserved.
//
// orquesta is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTurnState(t *testing.T) {
	s := NewTurnState("session-1", "trace-1", "user-1", "what is my balance")

	assert.Equal(t, "session-1", StringValue(s, StateKeySessionID))
	assert.Equal(t, "trace-1", StringValue(s, StateKeyTraceID))
	assert.Equal(t, "user-1", StringValue(s, StateKeyUserID))
	assert.Equal(t, "what is my balance", StringValue(s, StateKeyQuery))
	assert.Equal(t, StatusInitialized, StringValue(s, StateKeyStatus))
	assert.Empty(t, CompletedNodes(s))
	assert.Empty(t, Errors(s))
	assert.Equal(t, 0, IntValue(s, StateKeyRetryCount))
}

func TestUpdateFieldLeavesOriginalUntouched(t *testing.T) {
	s := NewTurnState("session-1", "trace-1", "user-1", "q")
	next := UpdateField(s, StateKeyStatus, StatusProcessing)

	assert.Equal(t, StatusProcessing, StringValue(next, StateKeyStatus))
	assert.Equal(t, StatusInitialized, StringValue(s, StateKeyStatus))

	// Overwrites replace the value in the copy only.
	again := UpdateField(next, StateKeyStatus, StatusCompleted)
	assert.Equal(t, StatusCompleted, StringValue(again, StateKeyStatus))
	assert.Equal(t, StatusProcessing, StringValue(next, StateKeyStatus))
}

func TestAppendToListLeavesOriginalUntouched(t *testing.T) {
	s := NewTurnState("session-1", "trace-1", "user-1", "q")
	next := AppendToList(s, StateKeyCompletedNodes, "router", "assemble")

	assert.Equal(t, []string{"router", "assemble"}, CompletedNodes(next))
	assert.Empty(t, CompletedNodes(s))
	assert.Equal(t, "assemble", LastCompletedNode(next))
	assert.Equal(t, "", LastCompletedNode(s))
}

func TestMergeDictLaterKeysWin(t *testing.T) {
	s := NewTurnState("session-1", "trace-1", "user-1", "q")
	s = MergeDict(s, StateKeyResponseMetadata, map[string]any{"intent": "greeting", "confidence": 0.4})
	next := MergeDict(s, StateKeyResponseMetadata, map[string]any{"confidence": 0.9})

	assert.Equal(t, 0.9, Metadata(next)["confidence"])
	assert.Equal(t, "greeting", Metadata(next)["intent"])
	assert.Equal(t, 0.4, Metadata(s)["confidence"])
}

func TestAddErrorAppends(t *testing.T) {
	s := NewTurnState("session-1", "trace-1", "user-1", "q")
	s = AddError(s, ErrorTypeNodeExecution, "first", nil)
	s = AddError(s, ErrorTypeAgentExecution, "second", map[string]any{"agent": "capi_datab"})

	records := Errors(s)
	require.Len(t, records, 2)
	assert.Equal(t, "first", records[0].Message)
	assert.Equal(t, ErrorTypeAgentExecution, records[1].ErrorType)
	assert.False(t, records[0].Timestamp.IsZero())
}

func TestIncrementRetryBounded(t *testing.T) {
	s := NewTurnState("session-1", "trace-1", "user-1", "q")

	var err error
	for i := 1; i <= 3; i++ {
		s, err = IncrementRetry(s, 3)
		require.NoError(t, err)
		assert.Equal(t, i, IntValue(s, StateKeyRetryCount))
	}

	_, err = IncrementRetry(s, 3)
	assert.ErrorIs(t, err, ErrMaxRetriesExceeded)
	assert.Equal(t, 3, IntValue(s, StateKeyRetryCount))
}

func TestMetadataAccessors(t *testing.T) {
	s := NewTurnState("session-1", "trace-1", "user-1", "q")
	s = MergeDict(s, StateKeyResponseMetadata, map[string]any{
		"flag":  true,
		"label": "value",
	})

	assert.True(t, MetadataFlag(s, "flag"))
	assert.False(t, MetadataFlag(s, "missing"))
	assert.Equal(t, "value", MetadataString(s, "label"))
	assert.Equal(t, "", MetadataString(s, "missing"))
}
