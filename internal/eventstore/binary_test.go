package eventstore

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryCompactShapeRoundTrips(t *testing.T) {
	data := json.RawMessage(`{"type":"shape","left":1.5,"top":2.5,"width":10,"height":20,"angle":0}`)
	encoded, ok := TryCompact("shape", data)
	require.True(t, ok)

	restored, err := FromCompact(encoded)
	require.NoError(t, err)

	var want, got whiteboardObject
	require.NoError(t, json.Unmarshal(data, &want))
	require.NoError(t, json.Unmarshal(restored, &got))
	assert.InDelta(t, want.Left, got.Left, 1e-4)
	assert.InDelta(t, want.Top, got.Top, 1e-4)
}

func TestTryCompactPathRoundTrips(t *testing.T) {
	data := json.RawMessage(`{"type":"draw","left":0,"top":0,"width":100,"height":100,"angle":0,"points":[[0,0],[50,50],[100,100]]}`)
	encoded, ok := TryCompact("draw", data)
	require.True(t, ok)

	restored, err := FromCompact(encoded)
	require.NoError(t, err)

	var got whiteboardObject
	require.NoError(t, json.Unmarshal(restored, &got))
	require.Len(t, got.Points, 3)
	assert.InDelta(t, 0, got.Points[0][0], 0.02)
	assert.InDelta(t, 100, got.Points[2][0], 0.02)
}

func TestTryCompactFallsBackForNonCompactableKind(t *testing.T) {
	data := json.RawMessage(`{"foo":"bar"}`)
	_, ok := TryCompact("message", data)
	assert.False(t, ok)
}

func TestTryCompactFallsBackWhenFieldsWouldBeLost(t *testing.T) {
	data := json.RawMessage(`{"type":"shape","left":1,"top":1,"width":1,"height":1,"angle":0,"fill":"#ff0000"}`)
	_, ok := TryCompact("shape", data)
	assert.False(t, ok)
}
