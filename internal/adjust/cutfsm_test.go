package adjust

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/foxford/eventd/internal/eventstore"
)

func cutEvent(occurredAt int64, cut string) eventstore.Event {
	data, _ := json.Marshal(map[string]string{"cut": cut})
	return eventstore.Event{OccurredAt: occurredAt, CreatedAt: time.Unix(0, occurredAt), Data: data}
}

func TestParseCutGapsWellFormed(t *testing.T) {
	events := []eventstore.Event{
		cutEvent(100, "start"),
		cutEvent(200, "stop"),
		cutEvent(500, "start"),
		cutEvent(600, "stop"),
	}
	gaps, err := ParseCutGaps(events)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(gaps))
	assert.Equal(t, int64(100), gaps[0].Start)
	assert.Equal(t, int64(200), gaps[0].End)
}

func TestParseCutGapsDoubleStartIsInvalid(t *testing.T) {
	events := []eventstore.Event{
		cutEvent(100, "start"),
		cutEvent(200, "start"),
	}
	_, err := ParseCutGaps(events)
	assert.Error(t, err)
}

func TestParseCutGapsUnterminatedIsInvalid(t *testing.T) {
	events := []eventstore.Event{cutEvent(100, "start")}
	_, err := ParseCutGaps(events)
	assert.Error(t, err)
}

func TestParseCutGapsStopWithoutStartIsInvalid(t *testing.T) {
	events := []eventstore.Event{cutEvent(100, "stop")}
	_, err := ParseCutGaps(events)
	assert.Error(t, err)
}
