// Package apierrors defines the closed set of error kinds this service can
// return, and the {status,kind,title,detail} JSON envelope used to render
// them over HTTP (spec.md §6, §7).
package apierrors

import (
	"fmt"
	"net/http"
)

// Kind is one of the fixed, documented error kinds. Unlike dendrite's
// Matrix-errcode taxonomy (gomatrixserverlib/spec), this service defines its
// own closed vocabulary per spec.md §6.
type Kind string

const (
	KindAccessDenied                  Kind = "access_denied"
	KindAgentNotEntered                Kind = "agent_not_entered_the_room"
	KindAuthorizationFailed           Kind = "authorization_failed"
	KindBrokerRequestFailed           Kind = "broker_request_failed"
	KindChangeNotFound                Kind = "change_not_found"
	KindDBConnectionAcquisitionFailed Kind = "db_connection_acquisition_failed"
	KindDBQueryFailed                 Kind = "db_query_failed"
	KindEditionCommitTaskFailed       Kind = "edition_commit_task_failed"
	KindEditionNotFound               Kind = "edition_not_found"
	KindInvalidPayload                Kind = "invalid_payload"
	KindInvalidRoomTime               Kind = "invalid_room_time"
	KindInvalidStateSets              Kind = "invalid_state_sets"
	KindNoS3Client                    Kind = "no_s3_client"
	KindPayloadTooLarge               Kind = "payload_too_large"
	KindPublishFailed                 Kind = "publish_failed"
	KindRoomAdjustTaskFailed          Kind = "room_adjust_task_failed"
	KindRoomClosed                    Kind = "room_closed"
	KindRoomNotFound                  Kind = "room_not_found"
	KindSerializationFailed           Kind = "serialization_failed"
	KindTransientEventCreationFailed  Kind = "transient_event_creation_failed"
	KindWhiteboardAccessNotChecked    Kind = "whiteboard_access_update_not_checked"

	// KindInvalidCutEvents and KindArithmeticOverflow are adjust/commit-engine
	// specific failure causes (spec.md §4.E "Failure modes") that surface
	// through RoomAdjustTaskFailed/EditionCommitTaskFailed rather than as
	// distinct HTTP kinds, but are useful internally for logging/Sentry tags.
	KindInvalidCutEvents   Kind = "invalid_cut_events"
	KindArithmeticOverflow Kind = "arithmetic_overflow"
)

// httpStatus maps each kind to its default HTTP status. Handlers may still
// override on a case-by-case basis.
var httpStatus = map[Kind]int{
	KindAccessDenied:                  http.StatusForbidden,
	KindAgentNotEntered:               http.StatusForbidden,
	KindAuthorizationFailed:           http.StatusForbidden,
	KindBrokerRequestFailed:           http.StatusBadGateway,
	KindChangeNotFound:                http.StatusNotFound,
	KindDBConnectionAcquisitionFailed: http.StatusServiceUnavailable,
	KindDBQueryFailed:                 http.StatusInternalServerError,
	KindEditionCommitTaskFailed:       http.StatusInternalServerError,
	KindEditionNotFound:               http.StatusNotFound,
	KindInvalidPayload:                http.StatusBadRequest,
	KindInvalidRoomTime:               http.StatusBadRequest,
	KindInvalidStateSets:              http.StatusBadRequest,
	KindNoS3Client:                    http.StatusNotImplemented,
	KindPayloadTooLarge:               http.StatusRequestEntityTooLarge,
	KindPublishFailed:                 http.StatusInternalServerError,
	KindRoomAdjustTaskFailed:          http.StatusInternalServerError,
	KindRoomClosed:                    http.StatusConflict,
	KindRoomNotFound:                  http.StatusNotFound,
	KindSerializationFailed:           http.StatusInternalServerError,
	KindTransientEventCreationFailed:  http.StatusServiceUnavailable,
	KindWhiteboardAccessNotChecked:    http.StatusBadRequest,
	KindInvalidCutEvents:              http.StatusInternalServerError,
	KindArithmeticOverflow:            http.StatusInternalServerError,
}

// Error is the canonical application error type. Every package in this
// service that can fail in a documented way returns *Error (or an error that
// wraps one), so the HTTP layer never has to guess a kind from a bare error
// string.
type Error struct {
	Kind   Kind
	Title  string
	Detail string
	cause  error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

// Status returns the HTTP status code to use for this error.
func (e *Error) Status() int {
	if s, ok := httpStatus[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New constructs an *Error with a human title derived from the kind.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Title: titleFor(kind), Detail: detail}
}

// Wrap constructs an *Error carrying cause, preserving it for errors.Is/As
// chains via Unwrap.
func Wrap(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Title: titleFor(kind), Detail: cause.Error(), cause: cause}
}

func titleFor(kind Kind) string {
	switch kind {
	case KindAccessDenied:
		return "Access denied"
	case KindAgentNotEntered:
		return "Agent has not entered the room"
	case KindAuthorizationFailed:
		return "Authorization failed"
	case KindBrokerRequestFailed:
		return "Broker request failed"
	case KindChangeNotFound:
		return "Change not found"
	case KindDBConnectionAcquisitionFailed:
		return "Failed to acquire a database connection"
	case KindDBQueryFailed:
		return "Database query failed"
	case KindEditionCommitTaskFailed:
		return "Edition commit failed"
	case KindEditionNotFound:
		return "Edition not found"
	case KindInvalidPayload:
		return "Invalid payload"
	case KindInvalidRoomTime:
		return "Invalid room time"
	case KindInvalidStateSets:
		return "Invalid state sets"
	case KindNoS3Client:
		return "No object storage client configured"
	case KindPayloadTooLarge:
		return "Payload too large"
	case KindPublishFailed:
		return "Failed to publish notification"
	case KindRoomAdjustTaskFailed:
		return "Room adjustment failed"
	case KindRoomClosed:
		return "Room is closed"
	case KindRoomNotFound:
		return "Room not found"
	case KindSerializationFailed:
		return "Serialization failed"
	case KindTransientEventCreationFailed:
		return "Transient failure creating event"
	case KindWhiteboardAccessNotChecked:
		return "Whiteboard access update not checked"
	default:
		return string(kind)
	}
}

// Envelope is the wire shape of an error response.
type Envelope struct {
	Status int    `json:"status"`
	Kind   Kind   `json:"kind"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// ToEnvelope renders e as the {status,kind,title,detail} body from spec.md §6.
func (e *Error) ToEnvelope() Envelope {
	return Envelope{Status: e.Status(), Kind: e.Kind, Title: e.Title, Detail: e.Detail}
}

// As attempts to recover an *Error from a generic error value, the way the
// HTTP layer does at the edge of every handler.
func As(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	type unwrapper interface{ Unwrap() error }
	for err != nil {
		if apiErr, ok := err.(*Error); ok {
			return apiErr, true
		}
		u, ok := err.(unwrapper)
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}
