package adjust

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/foxford/eventd/internal/apierrors"
	"github.com/foxford/eventd/internal/eventstore"
	eventstorage "github.com/foxford/eventd/internal/eventstore/storage"
	"github.com/foxford/eventd/internal/roomregistry"
	roomstorage "github.com/foxford/eventd/internal/roomregistry/storage"
	"github.com/foxford/eventd/internal/segments"
)

// AdjustmentStore persists the one-per-source-room Adjustment row. Defined
// here (rather than imported from adjust/storage) so this package's own
// storage/shared implementation can satisfy it without an import cycle.
type AdjustmentStore interface {
	Upsert(ctx context.Context, txn *sql.Tx, a *Adjustment) error
	FindByRoomID(ctx context.Context, roomID uuid.UUID) (*Adjustment, error)
}

// Recording describes one output stream of the source room, supplied by the
// caller: the set of recordings and which one is the host is metadata owned
// by the real-time conferencing service, outside this repo's scope. StartedAt
// anchors the recording's own clock so pin/mute events (timestamped against
// the event room) can be translated into recording-relative milliseconds.
type Recording struct {
	RTCID     string
	Host      bool
	CreatedBy string
	StartedAt time.Time
}

// Engine runs the room-adjust task described in spec.md §4.E.
type Engine struct {
	Rooms       roomstorage.Database
	Events      eventstorage.Database
	Adjustments AdjustmentStore
}

// Run executes one adjustment end to end. It is intended to be invoked from
// a detached async task per spec.md §4.E "Concurrency": a 202 is returned to
// the caller immediately and Run's result is broadcast when it completes.
// muteEvents is only consulted for Version == V2, where it feeds each
// recording's video/audio mute-segment derivation.
func (e *Engine) Run(ctx context.Context, in Input, recordings []Recording, muteEvents []segments.MuteEvent) (*Result, error) {
	room, err := e.Rooms.Find(ctx, in.RoomID)
	if err != nil {
		return nil, err
	}

	// Step 1: close an unbounded room at started_at.
	roomEnd := room.Time.End
	if roomEnd == nil {
		if err := e.Rooms.CloseRoom(ctx, in.RoomID, in.StartedAt); err != nil {
			return nil, apierrors.Wrap(apierrors.KindRoomAdjustTaskFailed, err)
		}
		roomEnd = &in.StartedAt
	}

	roomDuration := roomEnd.Sub(room.Time.Start).Nanoseconds()
	if roomDuration <= 0 {
		return nil, apierrors.New(apierrors.KindRoomAdjustTaskFailed, "invalid room duration")
	}

	for i, s := range in.SegmentsMS {
		if s.End < s.Start {
			return nil, apierrors.New(apierrors.KindRoomAdjustTaskFailed, "invalid segment bounds at index "+strconv.Itoa(i))
		}
	}

	// Step 2: persist exactly one Adjustment row per source room.
	adjustment := &Adjustment{
		RoomID:    in.RoomID,
		StartedAt: in.StartedAt,
		Segments:  in.SegmentsMS,
		OffsetMS:  in.OffsetMS,
		CreatedAt: time.Now(),
	}
	if err := e.Adjustments.Upsert(ctx, nil, adjustment); err != nil {
		return nil, apierrors.Wrap(apierrors.KindRoomAdjustTaskFailed, err)
	}

	// Transform: rtc_offset_ms, ns segments, segment_gaps.
	rtcOffsetMS := in.StartedAt.Sub(room.Time.Start).Milliseconds()
	nsSegments := make([]segments.Segment, len(in.SegmentsMS))
	for i, s := range in.SegmentsMS {
		start, err := msToNS(s.Start + rtcOffsetMS)
		if err != nil {
			return nil, apierrors.Wrap(apierrors.KindRoomAdjustTaskFailed, err)
		}
		end, err := msToNS(s.End + rtcOffsetMS)
		if err != nil {
			return nil, apierrors.Wrap(apierrors.KindRoomAdjustTaskFailed, err)
		}
		nsSegments[i] = segments.Segment{Start: start, End: end}
	}
	nsSegments = segments.SortByStart(nsSegments)
	totalSegmentsDurationMS := segments.SumLength(in.SegmentsMS)
	segmentGaps := segments.Invert(nsSegments, roomDuration, in.MinSegmentLength)

	// Original room: clone R's non-removed events, sliding left by
	// segmentGaps.
	original := &roomregistry.Room{
		ID:              uuid.New(),
		Audience:        room.Audience,
		SourceRoomID:    &room.ID,
		Time:            roomregistry.TimeWindow{Start: in.StartedAt, End: addMS(in.StartedAt, totalSegmentsDurationMS)},
		Tags:            room.Tags,
		CreatedAt:       time.Now(),
		ClassroomID:     room.ClassroomID,
		PreserveHistory: room.PreserveHistory,
	}
	if err := e.Rooms.Create(ctx, original); err != nil {
		return nil, apierrors.Wrap(apierrors.KindRoomAdjustTaskFailed, err)
	}

	sourceEvents, err := e.Events.ListNonRemoved(ctx, room.ID)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindRoomAdjustTaskFailed, err)
	}

	var streamSourceEvents []eventstore.Event
	if in.Version == V2 {
		streamSourceEvents, err = SynthesizeStreamEvents(sourceEvents)
		if err != nil {
			return nil, apierrors.Wrap(apierrors.KindRoomAdjustTaskFailed, err)
		}
	}

	originalClones := eventstore.ApplyShiftWithTiebreak(sourceEvents, func(occurredAt int64) int64 {
		return segments.ShiftByGaps(occurredAt, segmentGaps)
	})
	if err := e.Events.WithTx(ctx, func(txn *sql.Tx) error {
		return e.Events.CloneInto(ctx, txn, original.ID, originalClones)
	}); err != nil {
		return nil, apierrors.Wrap(apierrors.KindRoomAdjustTaskFailed, err)
	}

	if in.Version == V2 && len(streamSourceEvents) > 0 {
		synthShifted := eventstore.ApplyShiftWithTiebreak(streamSourceEvents, func(occurredAt int64) int64 {
			return segments.ShiftByGaps(occurredAt, segmentGaps)
		})
		if err := e.Events.WithTx(ctx, func(txn *sql.Tx) error {
			return e.Events.CloneInto(ctx, txn, original.ID, synthShifted)
		}); err != nil {
			return nil, apierrors.Wrap(apierrors.KindRoomAdjustTaskFailed, err)
		}
	}

	// Cut pass: parse O's `stream` events into cut_gaps.
	streamEvents, err := e.Events.ListByKind(ctx, original.ID, "stream")
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindRoomAdjustTaskFailed, err)
	}
	cutGaps, err := ParseCutGaps(streamEvents)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindRoomAdjustTaskFailed, err)
	}

	// Modified room: clone O's events through cut_gaps, with preroll offset.
	offsetNS, err := msToNS(in.OffsetMS)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindRoomAdjustTaskFailed, err)
	}
	modified := &roomregistry.Room{
		ID:              uuid.New(),
		Audience:        room.Audience,
		SourceRoomID:    &original.ID,
		Time:            original.Time,
		Tags:            room.Tags,
		CreatedAt:       time.Now(),
		ClassroomID:     room.ClassroomID,
		PreserveHistory: room.PreserveHistory,
	}
	if err := e.Rooms.Create(ctx, modified); err != nil {
		return nil, apierrors.Wrap(apierrors.KindRoomAdjustTaskFailed, err)
	}

	originalNonRemoved, err := e.Events.ListNonRemoved(ctx, original.ID)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindRoomAdjustTaskFailed, err)
	}
	modifiedClones := eventstore.ApplyShiftWithTiebreak(originalNonRemoved, func(occurredAt int64) int64 {
		return segments.ShiftByGaps(occurredAt, cutGaps) + offsetNS
	})
	if err := e.Events.WithTx(ctx, func(txn *sql.Tx) error {
		return e.Events.CloneInto(ctx, txn, modified.ID, modifiedClones)
	}); err != nil {
		return nil, apierrors.Wrap(apierrors.KindRoomAdjustTaskFailed, err)
	}
	if _, err := e.Events.Delete(ctx, modified.ID, "stream"); err != nil {
		return nil, apierrors.Wrap(apierrors.KindRoomAdjustTaskFailed, err)
	}

	modifiedSegmentsNS := segments.Invert(cutGaps, totalSegmentsDurationMS*1_000_000, in.MinSegmentLength)
	modifiedSegmentsMS := nsSegmentsToMS(modifiedSegmentsNS)

	result := &Result{
		OriginalRoomID:   original.ID,
		ModifiedRoomID:   modified.ID,
		ModifiedSegments: modifiedSegmentsMS,
	}

	if in.Version == V2 {
		cutOriginalSegments := segments.Intersect(cutGaps, nsSegments)

		pinEvents, err := e.Events.ListByKind(ctx, modified.ID, "pin")
		if err != nil {
			return nil, apierrors.Wrap(apierrors.KindRoomAdjustTaskFailed, err)
		}
		pins := make([]segments.PinEvent, len(pinEvents))
		for i, ev := range pinEvents {
			pins[i] = segments.PinEvent{OccurredAt: ev.OccurredAt, AgentID: pinAgentID(ev.Data)}
		}

		offsetDuration := time.Duration(in.OffsetMS) * time.Millisecond
		recordingEndMS := totalSegmentsDurationMS

		for _, rec := range recordings {
			rs := RecordingSegments{RTCID: rec.RTCID, Host: rec.Host}
			if rec.Host {
				rs.ModifiedSegments = nsSegmentsToMS(cutOriginalSegments)
			}
			// Non-host recordings reserve space but their ModifiedSegments are
			// emitted empty (spec.md §9 open question: unresolved whether to
			// intersect host cuts with each recording's own segments).

			eventRoomOffsetMS := rec.StartedAt.Sub(in.StartedAt.Add(-offsetDuration)).Milliseconds()
			rs.PinSegments = segments.CollectPinSegments(pins, eventRoomOffsetMS, rec.CreatedBy, recordingEndMS)
			rs.VideoMuteSegments, rs.AudioMuteSegments = segments.DeriveMuteSegments(muteEvents, rec.RTCID, rec.StartedAt, recordingEndMS)

			result.Recordings = append(result.Recordings, rs)
		}
	}

	return result, nil
}

// pinAgentID extracts data.agent_id from a `pin` event, returning nil when
// the field is absent, null, or not a string.
func pinAgentID(data json.RawMessage) *string {
	var body struct {
		AgentID *string `json:"agent_id"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil
	}
	return body.AgentID
}

func msToNS(ms int64) (int64, error) {
	if ms > math.MaxInt64/1_000_000 || ms < math.MinInt64/1_000_000 {
		return 0, errOverflow
	}
	return ms * 1_000_000, nil
}

func nsSegmentsToMS(segs []segments.Segment) []segments.Segment {
	out := make([]segments.Segment, len(segs))
	for i, s := range segs {
		out[i] = segments.Segment{Start: s.Start / 1_000_000, End: s.End / 1_000_000}
	}
	return out
}

func addMS(t time.Time, ms int64) *time.Time {
	out := t.Add(time.Duration(ms) * time.Millisecond)
	return &out
}

var errOverflow = apierrors.New(apierrors.KindArithmeticOverflow, "ms-to-ns conversion overflow")
