package adjust

import (
	"encoding/json"
	"sort"

	"github.com/foxford/eventd/internal/apierrors"
	"github.com/foxford/eventd/internal/eventstore"
	"github.com/foxford/eventd/internal/segments"
)

type cutPayload struct {
	Cut string `json:"cut"`
}

// ParseCutGaps runs the cut FSM of spec.md §4.E over a room's `stream`
// events: Stopped -[start]-> Started(t); Started(s) -[stop]-> emit (s,t),
// Stopped. Any other transition is malformed input and returns
// apierrors.KindInvalidCutEvents, fatal for the enclosing adjustment.
func ParseCutGaps(streamEvents []eventstore.Event) ([]segments.Segment, error) {
	sorted := make([]eventstore.Event, len(streamEvents))
	copy(sorted, streamEvents)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].OccurredAt < sorted[j].OccurredAt })

	var gaps []segments.Segment
	started := false
	var startedAt int64

	for _, ev := range sorted {
		var p cutPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return nil, apierrors.Wrap(apierrors.KindInvalidCutEvents, err)
		}
		switch p.Cut {
		case "start":
			if started {
				return nil, apierrors.New(apierrors.KindInvalidCutEvents, "cut start while already started")
			}
			started = true
			startedAt = ev.OccurredAt
		case "stop":
			if !started {
				return nil, apierrors.New(apierrors.KindInvalidCutEvents, "cut stop without a matching start")
			}
			gaps = append(gaps, segments.Segment{Start: startedAt, End: ev.OccurredAt})
			started = false
		default:
			return nil, apierrors.New(apierrors.KindInvalidCutEvents, "unrecognized cut value: "+p.Cut)
		}
	}

	if started {
		return nil, apierrors.New(apierrors.KindInvalidCutEvents, "stream left in the started state")
	}
	return gaps, nil
}
