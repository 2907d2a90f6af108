package commit

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxford/eventd/internal/edition"
	"github.com/foxford/eventd/internal/eventstore"
)

func TestMergeChangesModificationOverridesField(t *testing.T) {
	evID := uuid.New()
	source := []eventstore.Event{{
		ID:        evID,
		Kind:      "message",
		Set:       "message",
		Data:      json.RawMessage(`{"text":"hi"}`),
		CreatedAt: time.Unix(0, 10),
	}}
	newData := json.RawMessage(`{"text":"edited"}`)
	changes := []edition.Change{{
		Kind:      edition.KindModification,
		EventID:   &evID,
		EventData: newData,
	}}

	out, err := mergeChanges(source, changes, "committer")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, newData, out[0].Data)
	assert.Equal(t, "message", out[0].Set)
}

func TestMergeChangesRemovalDropsEvent(t *testing.T) {
	evID := uuid.New()
	source := []eventstore.Event{{ID: evID, Kind: "message", Set: "message", CreatedAt: time.Unix(0, 10)}}
	changes := []edition.Change{{Kind: edition.KindRemoval, EventID: &evID}}

	out, err := mergeChanges(source, changes, "committer")
	require.NoError(t, err)
	assert.Len(t, out, 0)
}

func TestMergeChangesBulkRemovalDropsSet(t *testing.T) {
	source := []eventstore.Event{
		{ID: uuid.New(), Kind: "draw", Set: "whiteboard", CreatedAt: time.Unix(0, 10)},
		{ID: uuid.New(), Kind: "message", Set: "message", CreatedAt: time.Unix(0, 20)},
	}
	set := "whiteboard"
	changes := []edition.Change{{Kind: edition.KindBulkRemoval, EventSet: &set}}

	out, err := mergeChanges(source, changes, "committer")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "message", out[0].Set)
}

func TestMergeChangesAdditionInsertsNewEvent(t *testing.T) {
	kind := "message"
	data := json.RawMessage(`{"text":"new"}`)
	occurredAt := int64(42)
	createdBy := "agent-1"
	changes := []edition.Change{{
		Kind:            edition.KindAddition,
		EventKind:       &kind,
		EventData:       data,
		EventOccurredAt: &occurredAt,
		EventCreatedBy:  &createdBy,
	}}

	out, err := mergeChanges(nil, changes, "committer")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "message", out[0].Set)
	assert.Equal(t, createdBy, out[0].CreatedBy)
	assert.Equal(t, occurredAt, out[0].OccurredAt)
}
