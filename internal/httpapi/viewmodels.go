package httpapi

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/foxford/eventd/internal/admission"
	"github.com/foxford/eventd/internal/edition"
	"github.com/foxford/eventd/internal/eventstore"
	"github.com/foxford/eventd/internal/roomregistry"
)

// roomView renders a roomregistry.Room the way the original service's
// db::room::Object serializes: time as a [start,end-or-null] unix-seconds
// tuple, created_at as unix seconds, source_room_id omitted when nil.
type roomView struct {
	ID                       uuid.UUID       `json:"id"`
	Audience                 string          `json:"audience"`
	SourceRoomID             *uuid.UUID      `json:"source_room_id,omitempty"`
	Time                     [2]*int64       `json:"time"`
	Tags                     json.RawMessage `json:"tags,omitempty"`
	CreatedAt                int64           `json:"created_at"`
	PreserveHistory          bool            `json:"preserve_history"`
	ClassroomID              *uuid.UUID      `json:"classroom_id,omitempty"`
	LockedTypes              map[string]bool `json:"locked_types"`
	ValidateWhiteboardAccess bool            `json:"validate_whiteboard_access"`
	WhiteboardAccess         map[string]bool `json:"whiteboard_access"`
	Kind                     *roomregistry.Kind `json:"kind,omitempty"`
}

func renderRoom(r *roomregistry.Room) roomView {
	start := r.Time.Start.Unix()
	var end *int64
	if r.Time.End != nil {
		e := r.Time.End.Unix()
		end = &e
	}
	return roomView{
		ID:                       r.ID,
		Audience:                 r.Audience,
		SourceRoomID:             r.SourceRoomID,
		Time:                     [2]*int64{&start, end},
		Tags:                     r.Tags,
		CreatedAt:                r.CreatedAt.Unix(),
		PreserveHistory:          r.PreserveHistory,
		ClassroomID:              r.ClassroomID,
		LockedTypes:              r.LockedTypes,
		ValidateWhiteboardAccess: r.ValidateWhiteboardAccess,
		WhiteboardAccess:         r.WhiteboardAccess,
		Kind:                     r.Kind,
	}
}

// eventView mirrors eventstore.Event's existing json tags directly; it
// exists only so occurred_at round-trips exactly and created_at renders as
// unix seconds like the room view, instead of time.Time's RFC3339 default.
type eventView struct {
	ID                 uuid.UUID       `json:"id"`
	RoomID             uuid.UUID       `json:"room_id"`
	Kind               string          `json:"kind"`
	Set                string          `json:"set"`
	Label              *string         `json:"label,omitempty"`
	Attribute          *string         `json:"attribute,omitempty"`
	Data               json.RawMessage `json:"data"`
	OccurredAt         int64           `json:"occurred_at"`
	CreatedBy          string          `json:"created_by"`
	CreatedAt          int64           `json:"created_at"`
	Removed            bool            `json:"removed"`
	OriginalOccurredAt int64           `json:"original_occurred_at"`
}

func renderEvent(e eventstore.Event) eventView {
	return eventView{
		ID: e.ID, RoomID: e.RoomID, Kind: e.Kind, Set: e.Set, Label: e.Label,
		Attribute: e.Attribute, Data: e.Data, OccurredAt: e.OccurredAt,
		CreatedBy: e.CreatedBy, CreatedAt: e.CreatedAt.Unix(), Removed: e.Removed,
		OriginalOccurredAt: e.OriginalOccurredAt,
	}
}

func renderEvents(evs []eventstore.Event) []eventView {
	out := make([]eventView, len(evs))
	for i, e := range evs {
		out[i] = renderEvent(e)
	}
	return out
}

type agentView struct {
	AgentID   string    `json:"agent_id"`
	RoomID    uuid.UUID `json:"room_id"`
	AccountID string    `json:"account_id"`
	Label     string    `json:"label,omitempty"`
	Status    string    `json:"status"`
	Banned    bool      `json:"banned"`
	CreatedAt int64     `json:"created_at"`
}

func renderAgent(a admission.Agent, banned bool) agentView {
	return agentView{
		AgentID: a.AgentID, RoomID: a.RoomID, AccountID: a.AccountID, Label: a.Label,
		Status: string(a.Status), Banned: banned, CreatedAt: a.CreatedAt.Unix(),
	}
}

type banView struct {
	AccountID   string     `json:"account_id"`
	RoomID      *uuid.UUID `json:"room_id,omitempty"`
	ClassroomID *uuid.UUID `json:"classroom_id,omitempty"`
	Reason      *string    `json:"reason,omitempty"`
	CreatedAt   int64      `json:"created_at"`
}

func renderBan(b admission.Ban) banView {
	return banView{
		AccountID: b.AccountID, RoomID: b.RoomID, ClassroomID: b.ClassroomID,
		Reason: b.Reason, CreatedAt: b.CreatedAt.Unix(),
	}
}

func renderBans(bs []admission.Ban) []banView {
	out := make([]banView, len(bs))
	for i, b := range bs {
		out[i] = renderBan(b)
	}
	return out
}

type editionView struct {
	ID           uuid.UUID `json:"id"`
	SourceRoomID uuid.UUID `json:"source_room_id"`
	CreatedBy    string    `json:"created_by"`
	CreatedAt    int64     `json:"created_at"`
}

func renderEdition(e edition.Edition) editionView {
	return editionView{ID: e.ID, SourceRoomID: e.SourceRoomID, CreatedBy: e.CreatedBy, CreatedAt: e.CreatedAt.Unix()}
}

func renderEditions(es []edition.Edition) []editionView {
	out := make([]editionView, len(es))
	for i, e := range es {
		out[i] = renderEdition(e)
	}
	return out
}

type changeView struct {
	ID              uuid.UUID       `json:"id"`
	EditionID       uuid.UUID       `json:"edition_id"`
	Kind            string          `json:"kind"`
	EventID         *uuid.UUID      `json:"event_id,omitempty"`
	EventKind       *string         `json:"event_kind,omitempty"`
	EventSet        *string         `json:"event_set,omitempty"`
	EventLabel      *string         `json:"event_label,omitempty"`
	EventData       json.RawMessage `json:"event_data,omitempty"`
	EventOccurredAt *int64          `json:"event_occurred_at,omitempty"`
	EventCreatedBy  *string         `json:"event_created_by,omitempty"`
	CreatedAt       int64           `json:"created_at"`
}

func renderChange(c edition.Change) changeView {
	return changeView{
		ID: c.ID, EditionID: c.EditionID, Kind: string(c.Kind), EventID: c.EventID,
		EventKind: c.EventKind, EventSet: c.EventSet, EventLabel: c.EventLabel,
		EventData: c.EventData, EventOccurredAt: c.EventOccurredAt,
		EventCreatedBy: c.EventCreatedBy, CreatedAt: c.CreatedAt.Unix(),
	}
}

func renderChanges(cs []edition.Change) []changeView {
	out := make([]changeView, len(cs))
	for i, c := range cs {
		out[i] = renderChange(c)
	}
	return out
}

// stateSetView renders one queried set, degrading to a bare event when the
// projection is a single unlabeled event (spec.md §4.H's client-side shape
// convention).
type stateSetView struct {
	Events []eventView
	Single *eventView
}

func (s stateSetView) MarshalJSON() ([]byte, error) {
	if s.Single != nil {
		return json.Marshal(s.Single)
	}
	if s.Events == nil {
		return json.Marshal([]eventView{})
	}
	return json.Marshal(s.Events)
}
