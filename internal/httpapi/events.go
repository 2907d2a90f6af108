package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/matrix-org/util"

	"github.com/foxford/eventd/internal/apierrors"
	"github.com/foxford/eventd/internal/eventstore"
	"github.com/foxford/eventd/internal/notify"
	"github.com/foxford/eventd/internal/statequery"
)

func (d *Deps) listEvents(req *http.Request) util.JSONResponse {
	roomID, err := roomIDFromRequest(req)
	if err != nil {
		return errorResponse(err)
	}

	q := req.URL.Query()
	f := eventstore.Filter{Direction: eventstore.DirectionBackward}
	if kinds := q.Get("kind"); kinds != "" {
		f.Kinds = strings.Split(kinds, ",")
	}
	if set := q.Get("set"); set != "" {
		f.Set = &set
	}
	if label := q.Get("label"); label != "" {
		f.Label = &label
	}
	if attr := q.Get("attribute"); attr != "" {
		f.Attribute = &attr
	}
	if v := q.Get("occurred_at_gt"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.OccurredAtFrom = &n
		}
	}
	if v := q.Get("occurred_at_lt"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.OccurredAtTo = &n
		}
	}
	if v := q.Get("last_occurred_at"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.LastOccurredAt = &n
		}
	}
	if v := q.Get("direction"); v == string(eventstore.DirectionForward) {
		f.Direction = eventstore.DirectionForward
	}
	f.Limit = eventstore.DefaultListLimit
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= eventstore.MaxListLimit {
			f.Limit = n
		}
	}

	events, err := d.Events.List(req.Context(), roomID, f)
	if err != nil {
		return errorResponse(apierrors.Wrap(apierrors.KindDBQueryFailed, err))
	}
	return util.JSONResponse{Code: http.StatusOK, JSON: renderEvents(events)}
}

type createEventRequest struct {
	Kind       string          `json:"kind"`
	Set        *string         `json:"set"`
	Label      *string         `json:"label"`
	Attribute  *string         `json:"attribute"`
	Data       json.RawMessage `json:"data"`
	OccurredAt int64           `json:"occurred_at"`
	Removed    *bool           `json:"removed"`
}

func (d *Deps) createEvent(req *http.Request) util.JSONResponse {
	roomID, err := roomIDFromRequest(req)
	if err != nil {
		return errorResponse(err)
	}
	room, err := d.Rooms.Find(req.Context(), roomID)
	if err != nil {
		return errorResponse(apierrors.Wrap(apierrors.KindRoomNotFound, err))
	}
	if room.IsClosed(time.Now()) {
		return errorResponse(apierrors.New(apierrors.KindRoomClosed, "room is closed"))
	}

	var in createEventRequest
	if err := decodeBody(req, &in); err != nil {
		return errorResponse(err)
	}
	if d.MaxPayloadBytes > 0 && len(in.Data) > d.MaxPayloadBytes {
		return errorResponse(apierrors.New(apierrors.KindPayloadTooLarge, "event data exceeds max_payload_bytes"))
	}

	createdBy := accountIDFromRequest(req)
	event, err := d.Events.Insert(req.Context(), eventstore.NewEventInput{
		RoomID: roomID, Kind: in.Kind, Data: in.Data, OccurredAt: in.OccurredAt,
		CreatedBy: createdBy, Set: in.Set, Label: in.Label, Attribute: in.Attribute, Removed: in.Removed,
	})
	if err != nil {
		return errorResponse(apierrors.Wrap(apierrors.KindTransientEventCreationFailed, err))
	}

	if d.Outbox != nil {
		_ = d.Outbox.Publish(req.Context(), nil, notify.LabelEventCreate, notify.ScopeRoom, roomID.String(), renderEvent(*event))
	}

	return util.JSONResponse{Code: http.StatusCreated, JSON: renderEvent(*event)}
}

func (d *Deps) readState(req *http.Request) util.JSONResponse {
	roomID, err := roomIDFromRequest(req)
	if err != nil {
		return errorResponse(err)
	}
	room, err := d.Rooms.Find(req.Context(), roomID)
	if err != nil {
		return errorResponse(apierrors.Wrap(apierrors.KindRoomNotFound, err))
	}

	q := req.URL.Query()
	var sets []string
	if raw := q.Get("sets"); raw != "" {
		sets = strings.Split(raw, ",")
	}
	occurredAt := int64(0)
	if v := q.Get("occurred_at"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			occurredAt = n
		}
	} else if room.Time.End != nil {
		occurredAt = room.Time.End.Sub(room.Time.Start).Nanoseconds()
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	results, err := d.StateQuery.Query(req.Context(), roomID, sets, occurredAt, limit)
	if err != nil {
		return errorResponse(err)
	}

	body := make(map[string]interface{}, len(results)+1)
	for _, r := range results {
		body[r.Set] = renderStateSet(r)
		if r.HasNext != nil {
			body["has_next"] = *r.HasNext
		}
	}
	return util.JSONResponse{Code: http.StatusOK, JSON: body}
}

func renderStateSet(r statequery.SetResult) stateSetView {
	v := stateSetView{Events: renderEvents(r.Events)}
	if r.Single != nil {
		single := renderEvent(*r.Single)
		v.Single = &single
	}
	return v
}
