package httpapi

import (
	"net/http"

	"github.com/matrix-org/util"

	"github.com/foxford/eventd/internal/apierrors"
	"github.com/foxford/eventd/internal/notify"
)

type enterRoomRequest struct {
	AgentID string `json:"agent_id"`
	Label   string `json:"label"`
}

func (d *Deps) enterRoom(req *http.Request) util.JSONResponse {
	roomID, err := roomIDFromRequest(req)
	if err != nil {
		return errorResponse(err)
	}
	var in enterRoomRequest
	if err := decodeBody(req, &in); err != nil {
		return errorResponse(err)
	}
	accountID := accountIDFromRequest(req)

	result, err := d.Admission.Enter(req.Context(), roomID, accountID, in.AgentID, in.Label)
	if err != nil {
		return errorResponse(err)
	}

	if d.Outbox != nil {
		_ = d.Outbox.Publish(req.Context(), nil, notify.LabelRoomEnter, notify.ScopeRoom, roomID.String(), renderAgent(result.Agent, result.Banned))
	}

	return util.JSONResponse{Code: http.StatusOK, JSON: struct{}{}}
}

func (d *Deps) listAgents(req *http.Request) util.JSONResponse {
	roomID, err := roomIDFromRequest(req)
	if err != nil {
		return errorResponse(err)
	}
	agents, err := d.Admission.ListAgents(req.Context(), roomID)
	if err != nil {
		return errorResponse(apierrors.Wrap(apierrors.KindDBQueryFailed, err))
	}
	bans, err := d.Admission.ListBans(req.Context(), roomID)
	if err != nil {
		return errorResponse(apierrors.Wrap(apierrors.KindDBQueryFailed, err))
	}
	banned := make(map[string]bool, len(bans))
	for _, b := range bans {
		banned[b.AccountID] = true
	}

	out := make([]agentView, len(agents))
	for i, a := range agents {
		out[i] = renderAgent(a, banned[a.AccountID])
	}
	return util.JSONResponse{Code: http.StatusOK, JSON: out}
}

type updateAgentsRequest struct {
	AccountID string  `json:"account_id"`
	Value     bool    `json:"value"`
	Reason    *string `json:"reason"`
}

func (d *Deps) updateAgents(req *http.Request) util.JSONResponse {
	roomID, err := roomIDFromRequest(req)
	if err != nil {
		return errorResponse(err)
	}
	var in updateAgentsRequest
	if err := decodeBody(req, &in); err != nil {
		return errorResponse(err)
	}
	if err := d.Admission.SetBan(req.Context(), roomID, in.AccountID, in.Value, in.Reason); err != nil {
		return errorResponse(err)
	}
	return util.JSONResponse{Code: http.StatusOK, JSON: struct{}{}}
}

func (d *Deps) listBans(req *http.Request) util.JSONResponse {
	roomID, err := roomIDFromRequest(req)
	if err != nil {
		return errorResponse(err)
	}
	bans, err := d.Admission.ListBans(req.Context(), roomID)
	if err != nil {
		return errorResponse(apierrors.Wrap(apierrors.KindDBQueryFailed, err))
	}
	return util.JSONResponse{Code: http.StatusOK, JSON: renderBans(bans)}
}

func (d *Deps) dumpEvents(req *http.Request) util.JSONResponse {
	roomID, err := roomIDFromRequest(req)
	if err != nil {
		return errorResponse(err)
	}
	if d.ObjectStore == nil {
		return errorResponse(apierrors.New(apierrors.KindNoS3Client, "no object storage client configured"))
	}
	room, err := d.Rooms.Find(req.Context(), roomID)
	if err != nil {
		return errorResponse(apierrors.Wrap(apierrors.KindRoomNotFound, err))
	}

	go func() {
		ctx := detachedContext()
		uri, err := d.ObjectStore.DumpEventsToBucket(ctx, roomID)
		payload := map[string]interface{}{"room_id": roomID}
		if err != nil {
			payload["status"] = "error"
			payload["reason"] = err.Error()
		} else {
			payload["status"] = "success"
			payload["uri"] = uri
		}
		if d.Outbox != nil {
			_ = d.Outbox.Publish(ctx, nil, notify.LabelRoomDumpEvents, notify.ScopeAudience, room.Audience, payload)
		}
	}()

	return util.JSONResponse{Code: http.StatusAccepted, JSON: struct{}{}}
}
