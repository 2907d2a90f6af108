package segments

// PinEvent is one `pin` configuration snapshot from a room's event stream,
// already filtered to a single room and ordered by OccurredAt ascending.
type PinEvent struct {
	// OccurredAt is the event's room-relative timestamp in nanoseconds.
	OccurredAt int64
	// AgentID is the pinned participant's parsed account id, or nil when the
	// event's data.agent_id was null / unparseable.
	AgentID *string
}

// CollectPinSegments reconstructs the half-open ms intervals during which
// recordingCreatedBy was the pinned speaker, per spec.md §4.D.
//
// State machine: Unpinned -> Pinned(start) on the first event whose AgentID
// equals recordingCreatedBy; Pinned(start) -> Unpinned on any other agent
// (nil or different), emitting [start, end). A repeated pin of the same
// agent while already pinned is a no-op. An unpin that lands at or before
// its pin's timestamp is dropped rather than emitted. If the stream ends
// while pinned, the final segment is closed at recordingEndMS. A segment is
// dropped entirely, not clamped, unless 0 <= start <= end <= recordingEndMS.
func CollectPinSegments(events []PinEvent, eventRoomOffsetMS int64, recordingCreatedBy string, recordingEndMS int64) []Segment {
	var out []Segment
	pinned := false
	var start int64

	toMS := func(occurredAt int64) int64 {
		return occurredAt/1_000_000 - eventRoomOffsetMS
	}

	emit := func(s, e int64) {
		if s <= e && s >= 0 && e <= recordingEndMS {
			out = append(out, Segment{Start: s, End: e})
		}
	}

	for _, ev := range events {
		ms := toMS(ev.OccurredAt)
		isTarget := ev.AgentID != nil && *ev.AgentID == recordingCreatedBy

		switch {
		case !pinned && isTarget:
			pinned = true
			start = ms
		case pinned && !isTarget:
			if ms > start {
				emit(start, ms)
			}
			pinned = false
		default:
			// pinned && isTarget (repeat pin): no-op.
			// !pinned && !isTarget: no-op.
		}
	}

	if pinned {
		emit(start, recordingEndMS)
	}

	return out
}
