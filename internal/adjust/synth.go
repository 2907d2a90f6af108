package adjust

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/foxford/eventd/internal/eventstore"
)

type breakPayload struct {
	Value bool `json:"value"`
}

type videoGroupPayload struct {
	VideoGroup string `json:"video_group"`
}

type streamPayload struct {
	Cut string `json:"cut"`
}

// SynthesizeStreamEvents implements spec.md §4.E's "v2 extra" step: before
// the cut pass, every `break` event with a boolean `data.value` and every
// `video_group` event with `data.video_group` in {created, deleted} is
// turned into a synthetic `stream` event carrying `{"cut": "start"|"stop"}`
// at the same occurred_at. Other video_group values are ignored. The
// synthetic events are appended to roomEvents' original kind=stream set,
// ready for ParseCutGaps.
func SynthesizeStreamEvents(roomEvents []eventstore.Event) ([]eventstore.Event, error) {
	var out []eventstore.Event
	for _, ev := range roomEvents {
		switch ev.Kind {
		case "stream":
			out = append(out, ev)
		case "break":
			var p breakPayload
			if err := json.Unmarshal(ev.Data, &p); err != nil {
				continue
			}
			cut := "stop"
			if p.Value {
				cut = "start"
			}
			synth, err := synthesizeStreamEvent(ev, cut)
			if err != nil {
				return nil, err
			}
			out = append(out, synth)
		case "video_group":
			var p videoGroupPayload
			if err := json.Unmarshal(ev.Data, &p); err != nil {
				continue
			}
			var cut string
			switch p.VideoGroup {
			case "created":
				cut = "start"
			case "deleted":
				cut = "stop"
			default:
				continue
			}
			synth, err := synthesizeStreamEvent(ev, cut)
			if err != nil {
				return nil, err
			}
			out = append(out, synth)
		}
	}
	return out, nil
}

func synthesizeStreamEvent(source eventstore.Event, cut string) (eventstore.Event, error) {
	data, err := json.Marshal(streamPayload{Cut: cut})
	if err != nil {
		return eventstore.Event{}, err
	}
	return eventstore.Event{
		ID:                 uuid.New(),
		RoomID:             source.RoomID,
		Kind:               "stream",
		Set:                "stream",
		Data:               data,
		OccurredAt:         source.OccurredAt,
		CreatedBy:          source.CreatedBy,
		CreatedAt:          source.CreatedAt,
		OriginalOccurredAt: source.OriginalOccurredAt,
	}, nil
}
