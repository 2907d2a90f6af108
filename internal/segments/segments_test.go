package segments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvertEmptySegments(t *testing.T) {
	gaps := Invert(nil, 20000, 0)
	require.Len(t, gaps, 1)
	assert.Equal(t, Segment{Start: 0, End: 20000}, gaps[0])
}

func TestInvertTwoStreamsWithGap(t *testing.T) {
	// Scenario 3 from spec.md §8: segments [(0,20000),(26000,34000)].
	segs := []Segment{{Start: 0, End: 20000}, {Start: 26000, End: 34000}}
	gaps := Invert(segs, 34000, 0)
	require.Len(t, gaps, 1)
	assert.Equal(t, Segment{Start: 20000, End: 26000}, gaps[0])
}

func TestInvertDropsShortTrailingGap(t *testing.T) {
	segs := []Segment{{Start: 0, End: 19999}}
	gaps := Invert(segs, 20000, 5)
	assert.Empty(t, gaps)
}

func TestInvertRoundTrip(t *testing.T) {
	// Invariant 4 from spec.md §8: Invert(Invert(x)) == x for the same duration.
	segs := []Segment{{Start: 1000, End: 5000}, {Start: 8000, End: 9000}}
	total := int64(10000)
	gaps := Invert(segs, total, 0)
	roundTrip := Invert(gaps, total, 0)
	assert.Equal(t, segs, roundTrip)
}

func TestIntersect(t *testing.T) {
	a := []Segment{{Start: 0, End: 10}, {Start: 20, End: 30}}
	b := []Segment{{Start: 5, End: 25}}
	got := Intersect(a, b)
	want := []Segment{{Start: 5, End: 10}, {Start: 20, End: 25}}
	assert.Equal(t, want, got)
}

func TestShiftByGapsNoGapsBefore(t *testing.T) {
	gaps := []Segment{{Start: 20000, End: 26000}}
	assert.Equal(t, int64(15000), ShiftByGaps(15000, gaps))
}

func TestShiftByGapsConsumesFullGap(t *testing.T) {
	// Scenario 3: events at {1,15,22,23,28,36}s, gap (20000,26000)ms -> ns.
	gaps := []Segment{{Start: 20_000_000_000, End: 26_000_000_000}}
	assert.Equal(t, int64(22_000_000_000), ShiftByGaps(28_000_000_000, gaps))
}

func TestSumLength(t *testing.T) {
	segs := []Segment{{Start: 0, End: 10}, {Start: 20, End: 25}}
	assert.Equal(t, int64(15), SumLength(segs))
}

func strPtr(s string) *string { return &s }

func TestCollectPinSegmentsBasic(t *testing.T) {
	events := []PinEvent{
		{OccurredAt: 1_000_000_000, AgentID: strPtr("host")},
		{OccurredAt: 5_000_000_000, AgentID: strPtr("guest")},
		{OccurredAt: 8_000_000_000, AgentID: strPtr("host")},
	}
	segs := CollectPinSegments(events, 0, "host", 20000)
	require.Len(t, segs, 2)
	assert.Equal(t, Segment{Start: 1000, End: 5000}, segs[0])
	assert.Equal(t, Segment{Start: 8000, End: 20000}, segs[1])
}

func TestCollectPinSegmentsIgnoresRepeatPin(t *testing.T) {
	events := []PinEvent{
		{OccurredAt: 1_000_000_000, AgentID: strPtr("host")},
		{OccurredAt: 2_000_000_000, AgentID: strPtr("host")},
		{OccurredAt: 3_000_000_000, AgentID: nil},
	}
	segs := CollectPinSegments(events, 0, "host", 20000)
	require.Len(t, segs, 1)
	assert.Equal(t, Segment{Start: 1000, End: 3000}, segs[0])
}

func TestDeriveMuteSegments(t *testing.T) {
	start := mustTime(t, 0)
	trueVal, falseVal := true, false
	events := []MuteEvent{
		{RTCID: "rtc1", CreatedAt: mustTime(t, 1000), SendVideo: &falseVal},
		{RTCID: "rtc1", CreatedAt: mustTime(t, 3000), SendVideo: &trueVal},
		{RTCID: "other", CreatedAt: mustTime(t, 3500), SendVideo: &falseVal},
	}
	video, audio := DeriveMuteSegments(events, "rtc1", start, 20000)
	require.Len(t, video, 1)
	assert.Equal(t, Segment{Start: 1000, End: 3000}, video[0])
	assert.Empty(t, audio)
}

func mustTime(t *testing.T, ms int64) time.Time {
	t.Helper()
	base := time.Date(2020, 2, 18, 0, 0, 0, 0, time.UTC)
	return base.Add(time.Duration(ms) * time.Millisecond)
}
