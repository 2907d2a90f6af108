package httpapi

import (
	"net/http"
	"time"

	"github.com/matrix-org/util"

	"github.com/foxford/eventd/internal/adjust"
	"github.com/foxford/eventd/internal/apierrors"
	"github.com/foxford/eventd/internal/metrics"
	"github.com/foxford/eventd/internal/notify"
	"github.com/foxford/eventd/internal/segments"
)

type adjustRoomRequest struct {
	StartedAt        int64              `json:"started_at"`
	Segments         [][2]int64         `json:"segments"`
	OffsetMS         int64              `json:"offset"`
	MinSegmentLength int64              `json:"min_segment_length"`
	Version          int                `json:"version"`
	Recordings       []recordingRequest `json:"recordings"`
	MuteEvents       []muteEventRequest `json:"mute_events"`
}

// recordingRequest is one entry of the v2 request body's `recordings` array
// (spec.md §4.E "v2 output"): the real-time conferencing service supplies
// these out of band since recording/host enumeration is outside this
// service's scope.
type recordingRequest struct {
	RTCID     string `json:"rtc_id"`
	Host      bool   `json:"host"`
	CreatedBy string `json:"created_by"`
	StartedAt int64  `json:"started_at"`
}

// muteEventRequest is one send_video/send_audio config snapshot for a
// recording's participant, used to derive mute segments (spec.md §4.D).
type muteEventRequest struct {
	RTCID     string `json:"rtc_id"`
	CreatedAt int64  `json:"created_at"`
	SendVideo *bool  `json:"send_video"`
	SendAudio *bool  `json:"send_audio"`
}

func (d *Deps) adjustRoom(req *http.Request) util.JSONResponse {
	roomID, err := roomIDFromRequest(req)
	if err != nil {
		return errorResponse(err)
	}
	room, err := d.Rooms.Find(req.Context(), roomID)
	if err != nil {
		return errorResponse(apierrors.Wrap(apierrors.KindRoomNotFound, err))
	}

	var in adjustRoomRequest
	if err := decodeBody(req, &in); err != nil {
		return errorResponse(err)
	}

	segs := make([]segments.Segment, len(in.Segments))
	for i, s := range in.Segments {
		segs[i] = segments.Segment{Start: s[0], End: s[1]}
	}
	version := adjust.V1
	if in.Version == 2 {
		version = adjust.V2
	}

	task := adjust.Input{
		RoomID:           roomID,
		StartedAt:        time.Unix(in.StartedAt, 0).UTC(),
		SegmentsMS:       segs,
		OffsetMS:         in.OffsetMS,
		MinSegmentLength: in.MinSegmentLength,
		Version:          version,
	}

	recordings := make([]adjust.Recording, len(in.Recordings))
	for i, r := range in.Recordings {
		recordings[i] = adjust.Recording{
			RTCID:     r.RTCID,
			Host:      r.Host,
			CreatedBy: r.CreatedBy,
			StartedAt: time.Unix(r.StartedAt, 0).UTC(),
		}
	}
	muteEvents := make([]segments.MuteEvent, len(in.MuteEvents))
	for i, m := range in.MuteEvents {
		muteEvents[i] = segments.MuteEvent{
			RTCID:     m.RTCID,
			CreatedAt: time.Unix(m.CreatedAt, 0).UTC(),
			SendVideo: m.SendVideo,
			SendAudio: m.SendAudio,
		}
	}

	go func() {
		ctx := detachedContext()
		start := time.Now()
		result, err := d.Adjust.Run(ctx, task, recordings, muteEvents)
		metrics.AdjustTaskDuration.Observe(time.Since(start).Seconds())

		payload := map[string]interface{}{"room_id": roomID, "tags": room.Tags}
		if err != nil {
			metrics.AdjustTaskFailures.Inc()
			payload["status"] = "error"
			payload["reason"] = err.Error()
		} else {
			payload["status"] = "success"
			payload["original_room_id"] = result.OriginalRoomID
			payload["modified_room_id"] = result.ModifiedRoomID
			payload["modified_segments"] = result.ModifiedSegments
			if version == adjust.V2 {
				payload["recordings"] = result.Recordings
			}
		}
		if d.Outbox != nil {
			_ = d.Outbox.Publish(ctx, nil, notify.LabelRoomAdjust, notify.ScopeAudience, room.Audience, payload)
		}
	}()

	return util.JSONResponse{Code: http.StatusAccepted, JSON: struct{}{}}
}
