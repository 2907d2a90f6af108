// Package adjust implements component E of spec.md: the Room-Adjust engine
// that derives an *original* and a *modified* room from a real-time room's
// event log, a set of edited-video segments and a preroll offset (spec.md
// §4.E).
package adjust

import (
	"time"

	"github.com/google/uuid"

	"github.com/foxford/eventd/internal/segments"
)

// Version selects between the v1 and v2 adjustment algorithms (spec.md
// §4.E: v2 additionally synthesizes `stream` events from `break`/
// `video_group` and emits per-recording segment sets).
type Version int

const (
	V1 Version = 1
	V2 Version = 2
)

// Adjustment is spec.md §3's Adjustment entity: at most one per source room.
type Adjustment struct {
	RoomID    uuid.UUID
	StartedAt time.Time
	Segments  []segments.Segment // ms, half-open
	OffsetMS  int64
	CreatedAt time.Time
}

// Input collects the parameters of an adjustment run (spec.md §4.E
// "Inputs").
type Input struct {
	RoomID           uuid.UUID
	StartedAt        time.Time
	SegmentsMS       []segments.Segment
	OffsetMS         int64
	MinSegmentLength int64 // ns
	Version          Version
}

// Result is returned to the caller once the asynchronous task completes;
// it is what gets broadcast on `audiences/{audience}/events` (spec.md §4.E
// "Concurrency").
type Result struct {
	OriginalRoomID  uuid.UUID
	ModifiedRoomID  uuid.UUID
	ModifiedSegments []segments.Segment // ms, [Inc, Exc)

	// Recordings is populated only for Version == V2 (spec.md §4.E "v2
	// output"): one entry per recording, in the order the caller supplied
	// them.
	Recordings []RecordingSegments
}

// RecordingSegments is spec.md §4.E's v2 per-recording output shape.
type RecordingSegments struct {
	RTCID              string
	Host               bool
	PinSegments        []segments.Segment
	ModifiedSegments   []segments.Segment
	VideoMuteSegments  []segments.Segment
	AudioMuteSegments  []segments.Segment
}
