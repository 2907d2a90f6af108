// Package roomregistry implements component B of spec.md: rooms, their time
// windows, tags, locked event kinds and whiteboard-access map (spec.md §4.B).
package roomregistry

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Kind is the optional room-kind enum from spec.md §3.
type Kind string

const (
	KindWebinar   Kind = "webinar"
	KindP2P       Kind = "p2p"
	KindMinigroup Kind = "minigroup"
)

// TimeWindow is a half-open interval [Start, End) where End may be unset
// (unbounded / still open), per spec.md §3 "Room" invariants.
type TimeWindow struct {
	Start time.Time
	End   *time.Time
}

// IsClosed reports whether the window is closed as of now: true iff End is
// set and now >= *End.
func (w TimeWindow) IsClosed(now time.Time) bool {
	return w.End != nil && !now.Before(*w.End)
}

// Room is spec.md §3's Room entity.
type Room struct {
	ID                       uuid.UUID
	Audience                 string
	SourceRoomID             *uuid.UUID
	Time                     TimeWindow
	Tags                     json.RawMessage
	CreatedAt                time.Time
	PreserveHistory          bool
	ClassroomID              *uuid.UUID
	LockedTypes              map[string]bool
	ValidateWhiteboardAccess bool
	WhiteboardAccess         map[string]bool
	Kind                     *Kind
}

// IsClosed reports whether the room is closed as of now (spec.md §3: "is_closed
// iff now >= end").
func (r *Room) IsClosed(now time.Time) bool {
	return r.Time.IsClosed(now)
}

// pruneFalse drops every false-valued entry from m, per spec.md §4.B:
// "locked_types and whiteboard_access maps are merged then pruned of false
// values" -- only true entries are ever persisted.
func pruneFalse(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		if v {
			out[k] = true
		}
	}
	return out
}

// MergeLockedTypes merges patch into the room's LockedTypes and prunes false
// values, returning the new map without mutating the room in place (the
// caller persists it).
func (r *Room) MergeLockedTypes(patch map[string]bool) map[string]bool {
	return mergeAndPrune(r.LockedTypes, patch)
}

// MergeWhiteboardAccess merges patch into the room's WhiteboardAccess map and
// prunes false values.
func (r *Room) MergeWhiteboardAccess(patch map[string]bool) map[string]bool {
	return mergeAndPrune(r.WhiteboardAccess, patch)
}

func mergeAndPrune(base, patch map[string]bool) map[string]bool {
	merged := make(map[string]bool, len(base)+len(patch))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return pruneFalse(merged)
}
