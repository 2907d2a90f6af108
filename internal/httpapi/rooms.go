package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/matrix-org/util"

	"github.com/foxford/eventd/internal/apierrors"
	"github.com/foxford/eventd/internal/notify"
	"github.com/foxford/eventd/internal/roomregistry"
)

func roomIDFromRequest(req *http.Request) (uuid.UUID, error) {
	raw := mux.Vars(req)["room_id"]
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.UUID{}, apierrors.New(apierrors.KindInvalidPayload, "invalid room_id")
	}
	return id, nil
}

type createRoomRequest struct {
	Audience        string          `json:"audience"`
	Time            [2]*int64       `json:"time"`
	Tags            json.RawMessage `json:"tags"`
	ClassroomID     *uuid.UUID      `json:"classroom_id"`
	PreserveHistory *bool           `json:"preserve_history"`
}

func (d *Deps) createRoom(req *http.Request) util.JSONResponse {
	var in createRoomRequest
	if err := decodeBody(req, &in); err != nil {
		return errorResponse(err)
	}
	if in.Time[0] == nil {
		return errorResponse(apierrors.New(apierrors.KindInvalidRoomTime, "time.start is required"))
	}
	start := time.Unix(*in.Time[0], 0).UTC()
	var end *time.Time
	if in.Time[1] != nil {
		e := time.Unix(*in.Time[1], 0).UTC()
		if !e.After(start) {
			return errorResponse(apierrors.New(apierrors.KindInvalidRoomTime, "time.end must be after time.start"))
		}
		end = &e
	}
	preserveHistory := true
	if in.PreserveHistory != nil {
		preserveHistory = *in.PreserveHistory
	}

	room := &roomregistry.Room{
		ID:              uuid.New(),
		Audience:        in.Audience,
		Time:            roomregistry.TimeWindow{Start: start, End: end},
		Tags:            in.Tags,
		CreatedAt:       time.Now(),
		PreserveHistory: preserveHistory,
		ClassroomID:     in.ClassroomID,
	}
	if err := d.Rooms.Create(req.Context(), room); err != nil {
		return errorResponse(apierrors.Wrap(apierrors.KindDBQueryFailed, err))
	}

	if d.Outbox != nil {
		_ = d.Outbox.Publish(req.Context(), nil, notify.LabelRoomCreate, notify.ScopeAudience, room.Audience, renderRoom(room))
	}

	return util.JSONResponse{Code: http.StatusCreated, JSON: renderRoom(room)}
}

func (d *Deps) readRoom(req *http.Request) util.JSONResponse {
	roomID, err := roomIDFromRequest(req)
	if err != nil {
		return errorResponse(err)
	}
	room, err := d.Rooms.Find(req.Context(), roomID)
	if err != nil {
		return errorResponse(apierrors.Wrap(apierrors.KindRoomNotFound, err))
	}
	return util.JSONResponse{Code: http.StatusOK, JSON: renderRoom(room)}
}

type updateRoomRequest struct {
	Time        *[2]*int64       `json:"time"`
	Tags        *json.RawMessage `json:"tags"`
	ClassroomID *uuid.UUID       `json:"classroom_id"`
}

func (d *Deps) updateRoom(req *http.Request) util.JSONResponse {
	roomID, err := roomIDFromRequest(req)
	if err != nil {
		return errorResponse(err)
	}
	var in updateRoomRequest
	if err := decodeBody(req, &in); err != nil {
		return errorResponse(err)
	}

	now := time.Now()
	var room *roomregistry.Room
	if in.Time != nil && in.Time[1] != nil {
		end := time.Unix(*in.Time[1], 0).UTC()
		room, err = d.Rooms.UpdateTime(req.Context(), roomID, &end, now)
		if err != nil {
			return errorResponse(apierrors.Wrap(apierrors.KindInvalidRoomTime, err))
		}
	}
	if in.Tags != nil {
		if err := d.Rooms.UpdateTags(req.Context(), roomID, *in.Tags); err != nil {
			return errorResponse(apierrors.Wrap(apierrors.KindDBQueryFailed, err))
		}
	}
	if in.ClassroomID != nil {
		if err := d.Rooms.UpdateClassroomID(req.Context(), roomID, *in.ClassroomID); err != nil {
			return errorResponse(apierrors.Wrap(apierrors.KindDBQueryFailed, err))
		}
	}

	room, err = d.Rooms.Find(req.Context(), roomID)
	if err != nil {
		return errorResponse(apierrors.Wrap(apierrors.KindRoomNotFound, err))
	}

	if d.Outbox != nil {
		_ = d.Outbox.Publish(req.Context(), nil, notify.LabelRoomUpdate, notify.ScopeAudience, room.Audience, renderRoom(room))
		if room.IsClosed(now) {
			_ = d.Outbox.Publish(req.Context(), nil, notify.LabelRoomClose, notify.ScopeRoom, room.ID.String(), renderRoom(room))
		}
	}

	return util.JSONResponse{Code: http.StatusOK, JSON: renderRoom(room)}
}

type mergeMapRequest struct {
	Value map[string]bool `json:"value"`
}

func (d *Deps) lockedTypes(req *http.Request) util.JSONResponse {
	roomID, err := roomIDFromRequest(req)
	if err != nil {
		return errorResponse(err)
	}
	var in mergeMapRequest
	if err := decodeBody(req, &in); err != nil {
		return errorResponse(err)
	}
	if _, err := d.Rooms.MergeLockedTypes(req.Context(), roomID, in.Value); err != nil {
		return errorResponse(apierrors.Wrap(apierrors.KindDBQueryFailed, err))
	}
	room, err := d.Rooms.Find(req.Context(), roomID)
	if err != nil {
		return errorResponse(apierrors.Wrap(apierrors.KindRoomNotFound, err))
	}
	return util.JSONResponse{Code: http.StatusOK, JSON: renderRoom(room)}
}

func (d *Deps) whiteboardAccess(req *http.Request) util.JSONResponse {
	roomID, err := roomIDFromRequest(req)
	if err != nil {
		return errorResponse(err)
	}
	var in mergeMapRequest
	if err := decodeBody(req, &in); err != nil {
		return errorResponse(err)
	}
	if _, err := d.Rooms.MergeWhiteboardAccess(req.Context(), roomID, in.Value); err != nil {
		return errorResponse(apierrors.Wrap(apierrors.KindDBQueryFailed, err))
	}
	room, err := d.Rooms.Find(req.Context(), roomID)
	if err != nil {
		return errorResponse(apierrors.Wrap(apierrors.KindRoomNotFound, err))
	}
	return util.JSONResponse{Code: http.StatusOK, JSON: renderRoom(room)}
}
