package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/foxford/eventd/internal/roomregistry"
)

func TestOccurredAtNowRelativeToRoomStart(t *testing.T) {
	start := time.Now().Add(-time.Hour)
	room := &roomregistry.Room{Time: roomregistry.TimeWindow{Start: start}}

	got := occurredAtNow(room)
	assert.InDelta(t, time.Hour.Nanoseconds(), got, float64(time.Second.Nanoseconds()))
}
