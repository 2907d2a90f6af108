// Package commit implements component G of spec.md: the Edition-Commit
// engine, which applies a changelist plus cut events to a source room and
// produces a new committed room (spec.md §4.G).
package commit

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/foxford/eventd/internal/adjust"
	"github.com/foxford/eventd/internal/apierrors"
	"github.com/foxford/eventd/internal/edition"
	"github.com/foxford/eventd/internal/eventstore"
	eventstorage "github.com/foxford/eventd/internal/eventstore/storage"
	"github.com/foxford/eventd/internal/roomregistry"
	roomstorage "github.com/foxford/eventd/internal/roomregistry/storage"
	"github.com/foxford/eventd/internal/segments"
)

// EditionStore is the subset of edition/storage.Database the engine needs,
// named locally to keep this package's dependency surface minimal and avoid
// importing the whole port.
type EditionStore interface {
	FindEdition(ctx context.Context, id uuid.UUID) (*edition.Edition, error)
	ListChangesForCommit(ctx context.Context, editionID uuid.UUID) ([]edition.Change, error)
}

// Engine runs the edition-commit task described in spec.md §4.G.
type Engine struct {
	Rooms    roomstorage.Database
	Events   eventstorage.Database
	Editions EditionStore
}

// Result is returned once the commit completes (spec.md §4.G step 5).
type Result struct {
	DestinationRoomID uuid.UUID
	ModifiedSegments  []segments.Segment // ms
}

// Run applies editionID's changelist to its source room, producing a new
// destination room. Only the event clone runs inside a transaction: the
// destination room is created before it and its stream events are deleted
// after it, each as a separate write, so a failure after the room is created
// leaves that room in place.
func (e *Engine) Run(ctx context.Context, editionID uuid.UUID, committer string, offsetMS int64) (*Result, error) {
	ed, err := e.Editions.FindEdition(ctx, editionID)
	if err != nil {
		return nil, err
	}

	room, err := e.Rooms.Find(ctx, ed.SourceRoomID)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindEditionCommitTaskFailed, err)
	}
	roomEnd := room.Time.End
	if roomEnd == nil {
		return nil, apierrors.New(apierrors.KindEditionCommitTaskFailed, "source room has no bounded time.end")
	}
	roomDuration := roomEnd.Sub(room.Time.Start).Nanoseconds()
	if roomDuration <= 0 {
		return nil, apierrors.New(apierrors.KindEditionCommitTaskFailed, "invalid room duration")
	}

	// Step 1: cut_gaps from R's stream events (same FSM as §4.E).
	streamEvents, err := e.Events.ListByKind(ctx, room.ID, "stream")
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindEditionCommitTaskFailed, err)
	}
	cutGaps, err := adjust.ParseCutGaps(streamEvents)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindEditionCommitTaskFailed, err)
	}

	changes, err := e.Editions.ListChangesForCommit(ctx, editionID)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindEditionCommitTaskFailed, err)
	}
	sourceEvents, err := e.Events.ListNonRemoved(ctx, room.ID)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindEditionCommitTaskFailed, err)
	}

	offsetNS := offsetMS * 1_000_000
	merged, err := mergeChanges(sourceEvents, changes, committer)
	if err != nil {
		return nil, err
	}
	cloned := eventstore.ApplyShiftWithTiebreak(merged, func(occurredAt int64) int64 {
		return segments.ShiftByGaps(occurredAt, cutGaps) + offsetNS
	})

	// Step 2: create the destination room.
	dest := &roomregistry.Room{
		ID:              uuid.New(),
		Audience:        room.Audience,
		SourceRoomID:    &room.ID,
		Time:            room.Time,
		Tags:            room.Tags,
		CreatedAt:       time.Now(),
		ClassroomID:     room.ClassroomID,
		PreserveHistory: room.PreserveHistory,
	}
	if err := e.Rooms.Create(ctx, dest); err != nil {
		return nil, apierrors.Wrap(apierrors.KindEditionCommitTaskFailed, err)
	}

	// Steps 3-5: clone inside a transaction, then strip stream events in a
	// separate write.
	err = e.Events.WithTx(ctx, func(txn *sql.Tx) error {
		if err := e.Events.CloneInto(ctx, txn, dest.ID, cloned); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindEditionCommitTaskFailed, err)
	}
	if _, err := e.Events.Delete(ctx, dest.ID, "stream"); err != nil {
		return nil, apierrors.Wrap(apierrors.KindEditionCommitTaskFailed, err)
	}

	modifiedSegmentsNS := segments.Invert(cutGaps, roomDuration, 0)
	modifiedSegmentsMS := make([]segments.Segment, len(modifiedSegmentsNS))
	for i, s := range modifiedSegmentsNS {
		modifiedSegmentsMS[i] = segments.Segment{Start: s.Start / 1_000_000, End: s.End / 1_000_000}
	}

	return &Result{DestinationRoomID: dest.ID, ModifiedSegments: modifiedSegmentsMS}, nil
}

// mergeChanges implements spec.md §4.G step 3's conceptual outer join in
// application code: for each source event, a modification change keyed by
// event_id overrides it and a removal change keyed by event_id drops it;
// bulk_removal changes drop every event in their event_set; every addition
// change produces a brand-new row.
func mergeChanges(sourceEvents []eventstore.Event, changes []edition.Change, committer string) ([]eventstore.Event, error) {
	byEventID := make(map[uuid.UUID]edition.Change)
	var additions []edition.Change
	bulkRemovedSets := make(map[string]bool)
	removedIDs := make(map[uuid.UUID]bool)

	for _, c := range changes {
		switch c.Kind {
		case edition.KindAddition:
			additions = append(additions, c)
		case edition.KindBulkRemoval:
			bulkRemovedSets[*c.EventSet] = true
		case edition.KindModification:
			byEventID[*c.EventID] = c
		case edition.KindRemoval:
			removedIDs[*c.EventID] = true
		}
	}

	var out []eventstore.Event
	for _, ev := range sourceEvents {
		if bulkRemovedSets[ev.Set] || removedIDs[ev.ID] {
			continue
		}
		if c, ok := byEventID[ev.ID]; ok {
			merged, err := applyModification(ev, c)
			if err != nil {
				return nil, err
			}
			out = append(out, merged)
			continue
		}
		out = append(out, ev)
	}

	for _, c := range additions {
		ev, err := additionToEvent(c, committer)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// applyModification coalesces change.* over event.*, per spec.md §4.G step
// 3's "modification" rule: set default is COALESCE(change.set, event.set,
// change.kind, event.kind).
func applyModification(ev eventstore.Event, c edition.Change) (eventstore.Event, error) {
	out := ev
	switch {
	case c.EventSet != nil:
		out.Set = *c.EventSet
	case ev.Set != "":
		out.Set = ev.Set
	case c.EventKind != nil:
		out.Set = *c.EventKind
	default:
		out.Set = ev.Kind
	}
	if c.EventKind != nil {
		out.Kind = *c.EventKind
	}
	if c.EventLabel != nil {
		out.Label = c.EventLabel
	}
	if c.EventData != nil {
		out.Data = c.EventData
	}
	if c.EventOccurredAt != nil {
		out.OccurredAt = *c.EventOccurredAt
	}
	if c.EventCreatedBy != nil {
		out.CreatedBy = *c.EventCreatedBy
	}
	return out, nil
}

func additionToEvent(c edition.Change, committer string) (eventstore.Event, error) {
	set := ""
	if c.EventSet != nil {
		set = *c.EventSet
	} else if c.EventKind != nil {
		set = *c.EventKind
	}
	data := c.EventData
	if data == nil {
		data = json.RawMessage("null")
	}
	createdBy := committer
	if c.EventCreatedBy != nil {
		createdBy = *c.EventCreatedBy
	}
	var occurredAt int64
	if c.EventOccurredAt != nil {
		occurredAt = *c.EventOccurredAt
	}
	kind := ""
	if c.EventKind != nil {
		kind = *c.EventKind
	}
	return eventstore.Event{
		ID:                 uuid.New(),
		Kind:               kind,
		Set:                set,
		Label:              c.EventLabel,
		Data:               data,
		OccurredAt:         occurredAt,
		CreatedBy:          createdBy,
		CreatedAt:          c.CreatedAt,
		OriginalOccurredAt: occurredAt,
	}, nil
}
