package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/matrix-org/util"

	"github.com/foxford/eventd/internal/apierrors"
	"github.com/foxford/eventd/internal/edition"
	"github.com/foxford/eventd/internal/metrics"
	"github.com/foxford/eventd/internal/notify"
)

func editionIDFromRequest(req *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(req)["edition_id"])
	if err != nil {
		return uuid.UUID{}, apierrors.New(apierrors.KindInvalidPayload, "invalid edition_id")
	}
	return id, nil
}

func changeIDFromRequest(req *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(req)["change_id"])
	if err != nil {
		return uuid.UUID{}, apierrors.New(apierrors.KindInvalidPayload, "invalid change_id")
	}
	return id, nil
}

func (d *Deps) listEditions(req *http.Request) util.JSONResponse {
	roomID, err := roomIDFromRequest(req)
	if err != nil {
		return errorResponse(err)
	}
	editions, err := d.Editions.ListEditionsBySourceRoom(req.Context(), roomID)
	if err != nil {
		return errorResponse(apierrors.Wrap(apierrors.KindDBQueryFailed, err))
	}
	return util.JSONResponse{Code: http.StatusOK, JSON: renderEditions(editions)}
}

func (d *Deps) createEdition(req *http.Request) util.JSONResponse {
	roomID, err := roomIDFromRequest(req)
	if err != nil {
		return errorResponse(err)
	}
	ed := &edition.Edition{
		ID: uuid.New(), SourceRoomID: roomID,
		CreatedBy: accountIDFromRequest(req), CreatedAt: time.Now(),
	}
	if err := d.Editions.CreateEdition(req.Context(), ed); err != nil {
		return errorResponse(apierrors.Wrap(apierrors.KindDBQueryFailed, err))
	}

	if d.Outbox != nil {
		room, err := d.Rooms.Find(req.Context(), roomID)
		if err == nil {
			_ = d.Outbox.Publish(req.Context(), nil, notify.LabelEditionCreate, notify.ScopeAudience, room.Audience, renderEdition(*ed))
		}
	}

	return util.JSONResponse{Code: http.StatusCreated, JSON: renderEdition(*ed)}
}

func (d *Deps) deleteEdition(req *http.Request) util.JSONResponse {
	editionID, err := editionIDFromRequest(req)
	if err != nil {
		return errorResponse(err)
	}
	ed, err := d.Editions.FindEdition(req.Context(), editionID)
	if err != nil {
		return errorResponse(err)
	}
	if err := d.Editions.DeleteEdition(req.Context(), editionID); err != nil {
		return errorResponse(apierrors.Wrap(apierrors.KindDBQueryFailed, err))
	}
	return util.JSONResponse{Code: http.StatusOK, JSON: renderEdition(*ed)}
}

type commitEditionRequest struct {
	OffsetMS int64 `json:"offset"`
}

func (d *Deps) commitEdition(req *http.Request) util.JSONResponse {
	editionID, err := editionIDFromRequest(req)
	if err != nil {
		return errorResponse(err)
	}
	ed, err := d.Editions.FindEdition(req.Context(), editionID)
	if err != nil {
		return errorResponse(err)
	}
	room, err := d.Rooms.Find(req.Context(), ed.SourceRoomID)
	if err != nil {
		return errorResponse(apierrors.Wrap(apierrors.KindRoomNotFound, err))
	}

	var in commitEditionRequest
	_ = decodeBody(req, &in) // body is optional; offset defaults to 0

	committer := accountIDFromRequest(req)

	go func() {
		ctx := detachedContext()
		start := time.Now()
		result, err := d.Commit.Run(ctx, editionID, committer, in.OffsetMS)
		metrics.CommitTaskDuration.Observe(time.Since(start).Seconds())

		payload := map[string]interface{}{"edition_id": editionID}
		if err != nil {
			metrics.CommitTaskFailures.Inc()
			payload["status"] = "error"
			payload["reason"] = err.Error()
		} else {
			payload["status"] = "success"
			payload["room_id"] = result.DestinationRoomID
			payload["modified_segments"] = result.ModifiedSegments
		}
		if d.Outbox != nil {
			_ = d.Outbox.Publish(ctx, nil, notify.LabelEditionCommit, notify.ScopeAudience, room.Audience, payload)
		}
	}()

	return util.JSONResponse{Code: http.StatusAccepted, JSON: struct{}{}}
}

func (d *Deps) listChanges(req *http.Request) util.JSONResponse {
	editionID, err := editionIDFromRequest(req)
	if err != nil {
		return errorResponse(err)
	}
	q := req.URL.Query()
	var f edition.ListFilter
	if v := q.Get("last_created_at"); v != "" {
		if sec, perr := parseUnix(v); perr == nil {
			f.LastCreatedAt = &sec
		}
	}
	changes, err := d.Editions.ListChanges(req.Context(), editionID, f)
	if err != nil {
		return errorResponse(apierrors.Wrap(apierrors.KindDBQueryFailed, err))
	}
	return util.JSONResponse{Code: http.StatusOK, JSON: renderChanges(changes)}
}

type createChangeRequest struct {
	Kind            edition.Kind    `json:"type"`
	EventID         *uuid.UUID      `json:"event_id"`
	EventKind       *string         `json:"event_kind"`
	EventSet        *string         `json:"event_set"`
	EventLabel      *string         `json:"event_label"`
	EventData       json.RawMessage `json:"event_data"`
	EventOccurredAt *int64          `json:"event_occurred_at"`
	EventCreatedBy  *string         `json:"event_created_by"`
}

func (d *Deps) createChange(req *http.Request) util.JSONResponse {
	editionID, err := editionIDFromRequest(req)
	if err != nil {
		return errorResponse(err)
	}
	var in createChangeRequest
	if err := decodeBody(req, &in); err != nil {
		return errorResponse(err)
	}

	c := &edition.Change{
		ID: uuid.New(), EditionID: editionID, Kind: in.Kind,
		EventID: in.EventID, EventKind: in.EventKind, EventSet: in.EventSet,
		EventLabel: in.EventLabel, EventData: in.EventData,
		EventOccurredAt: in.EventOccurredAt, EventCreatedBy: in.EventCreatedBy,
		CreatedAt: time.Now(),
	}
	if err := d.Editions.InsertChange(req.Context(), c); err != nil {
		return errorResponse(err)
	}
	return util.JSONResponse{Code: http.StatusCreated, JSON: renderChange(*c)}
}

func (d *Deps) deleteChange(req *http.Request) util.JSONResponse {
	changeID, err := changeIDFromRequest(req)
	if err != nil {
		return errorResponse(err)
	}
	c, err := d.Editions.FindChange(req.Context(), changeID)
	if err != nil {
		return errorResponse(err)
	}
	if err := d.Editions.DeleteChange(req.Context(), changeID); err != nil {
		return errorResponse(apierrors.Wrap(apierrors.KindDBQueryFailed, err))
	}
	return util.JSONResponse{Code: http.StatusOK, JSON: renderChange(*c)}
}
