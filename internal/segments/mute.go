package segments

import "time"

// MuteEvent is one config snapshot carrying the participant's send_video /
// send_audio flags, ordered by CreatedAt ascending before being passed in.
type MuteEvent struct {
	RTCID     string
	CreatedAt time.Time
	SendVideo *bool
	SendAudio *bool
}

// DeriveMuteSegments reconstructs, independently for video and audio, the
// half-open ms intervals during which the participant was muted, per
// spec.md §4.D.
//
// Events whose RTCID doesn't match rtcID, or whose offset from
// recordingStart falls outside the open interval (0, recordingEndMS), are
// dropped. For each field, a true->false transition opens a mute segment; a
// false->true transition (or end of stream) closes it.
func DeriveMuteSegments(events []MuteEvent, rtcID string, recordingStart time.Time, recordingEndMS int64) (video []Segment, audio []Segment) {
	type fieldState struct {
		known    bool
		sending  bool
		muteFrom int64
		muted    bool
		segs     []Segment
	}
	var v, a fieldState

	applyTransition := func(fs *fieldState, sending bool, nowMS int64) {
		if !fs.known {
			fs.known = true
			fs.sending = sending
			if !sending {
				fs.muted = true
				fs.muteFrom = nowMS
			}
			return
		}
		if fs.sending && !sending {
			// true -> false: entering mute.
			fs.muted = true
			fs.muteFrom = nowMS
		} else if !fs.sending && sending {
			// false -> true: leaving mute, close the segment.
			if fs.muted {
				fs.segs = append(fs.segs, Segment{Start: fs.muteFrom, End: nowMS})
				fs.muted = false
			}
		}
		fs.sending = sending
	}

	for _, ev := range events {
		if ev.RTCID != rtcID {
			continue
		}
		deltaMS := ev.CreatedAt.Sub(recordingStart).Milliseconds()
		if deltaMS <= 0 || deltaMS >= recordingEndMS {
			continue
		}
		if ev.SendVideo != nil {
			applyTransition(&v, *ev.SendVideo, deltaMS)
		}
		if ev.SendAudio != nil {
			applyTransition(&a, *ev.SendAudio, deltaMS)
		}
	}

	if v.muted {
		v.segs = append(v.segs, Segment{Start: v.muteFrom, End: recordingEndMS})
	}
	if a.muted {
		a.segs = append(a.segs, Segment{Start: a.muteFrom, End: recordingEndMS})
	}

	return v.segs, a.segs
}
