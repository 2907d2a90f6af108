package roomregistry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeWindowIsClosed(t *testing.T) {
	start := time.Date(2020, 2, 18, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	open := TimeWindow{Start: start}
	assert.False(t, open.IsClosed(start.Add(24*time.Hour)))

	closedWindow := TimeWindow{Start: start, End: &end}
	assert.False(t, closedWindow.IsClosed(start.Add(30*time.Minute)))
	assert.True(t, closedWindow.IsClosed(end))
	assert.True(t, closedWindow.IsClosed(end.Add(time.Minute)))
}

func TestMergeLockedTypesPrunesFalse(t *testing.T) {
	r := &Room{LockedTypes: map[string]bool{"message": true, "draw": true}}
	merged := r.MergeLockedTypes(map[string]bool{"draw": false, "whiteboard": true})
	assert.Equal(t, map[string]bool{"message": true, "whiteboard": true}, merged)
}

func TestMergeWhiteboardAccessPrunesFalse(t *testing.T) {
	r := &Room{WhiteboardAccess: map[string]bool{"acc-1": true}}
	merged := r.MergeWhiteboardAccess(map[string]bool{"acc-1": false, "acc-2": true})
	assert.Equal(t, map[string]bool{"acc-2": true}, merged)
}
