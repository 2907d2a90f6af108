// Package statequery implements component H of spec.md: the "set state at
// time T" read path, with pagination and total-count, layered thinly over
// the event store's SetStateAt/SetStateTotalCount (spec.md §4.H).
package statequery

import (
	"context"

	"github.com/google/uuid"

	"github.com/foxford/eventd/internal/apierrors"
	"github.com/foxford/eventd/internal/eventstore"
	eventstorage "github.com/foxford/eventd/internal/eventstore/storage"
)

// SetResult is one queried set's projection. When the set degrades to a
// single unlabeled event (spec.md §4.H: "a set returning a single unlabeled
// event degrades to that event"), Single is non-nil and Events is nil.
type SetResult struct {
	Set     string
	Events  []eventstore.Event
	Single  *eventstore.Event
	HasNext *bool // only populated when exactly one set was requested
}

// Engine answers state queries over the event store.
type Engine struct {
	Events eventstorage.Database
}

// Query runs spec.md §4.H's operation: one or more sets (1..MaxStateSets),
// each resolved to its latest-by-label projection as of occurredAt.
func (e *Engine) Query(ctx context.Context, roomID uuid.UUID, sets []string, occurredAt int64, limit int) ([]SetResult, error) {
	if len(sets) == 0 || len(sets) > eventstore.MaxStateSets {
		return nil, apierrors.New(apierrors.KindInvalidStateSets, "sets must contain between 1 and 10 entries")
	}
	if limit <= 0 {
		limit = eventstore.DefaultListLimit
	}
	if limit > eventstore.MaxListLimit {
		limit = eventstore.MaxListLimit
	}

	out := make([]SetResult, 0, len(sets))
	for _, set := range sets {
		events, err := e.Events.SetStateAt(ctx, roomID, set, occurredAt, limit)
		if err != nil {
			return nil, apierrors.Wrap(apierrors.KindDBQueryFailed, err)
		}

		result := SetResult{Set: set, Events: events}

		if len(sets) == 1 {
			total, err := e.Events.SetStateTotalCount(ctx, roomID, set, occurredAt)
			if err != nil {
				return nil, apierrors.Wrap(apierrors.KindDBQueryFailed, err)
			}
			hasNext := total > uint64(limit)
			result.HasNext = &hasNext
		}

		// A set whose projection is a single unlabeled event degrades to
		// that event rather than a one-element list (client-side shape
		// convention, spec.md §4.H).
		if len(events) == 1 && events[0].Label == nil {
			result.Single = &events[0]
			result.Events = nil
		}

		out = append(out, result)
	}
	return out, nil
}
