// Package eventstore implements component A of spec.md: the append-only,
// room-scoped event log with set/label/attribute indices, soft-deletion and
// vacuum (spec.md §4.A).
package eventstore

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Direction selects the ordering of a List query.
type Direction string

const (
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
)

// Event is one row of the event log (spec.md §3 "Event").
type Event struct {
	ID                 uuid.UUID       `json:"id"`
	RoomID             uuid.UUID       `json:"room_id"`
	Kind               string          `json:"kind"`
	Set                string          `json:"set"`
	Label              *string         `json:"label,omitempty"`
	Attribute          *string         `json:"attribute,omitempty"`
	Data               json.RawMessage `json:"data"`
	OccurredAt         int64           `json:"occurred_at"`
	CreatedBy          string          `json:"created_by"`
	CreatedAt          time.Time       `json:"created_at"`
	Removed            bool            `json:"removed"`
	OriginalOccurredAt int64           `json:"original_occurred_at"`
}

// NewEventInput is the caller-supplied subset of fields for Insert.
// Set defaults to Kind and Label/Attribute/Removed default to their zero
// values when left unset; CreatedAt is set to the insert time, per spec.md
// §4.A "Insert".
type NewEventInput struct {
	RoomID     uuid.UUID
	Kind       string
	Data       json.RawMessage
	OccurredAt int64
	CreatedBy  string

	Set       *string
	Label     *string
	Attribute *string
	Removed   *bool
	CreatedAt *time.Time
}

// Filter captures the List operation's query parameters (spec.md §4.A).
type Filter struct {
	Kinds            []string
	Set              *string
	Label            *string
	Attribute        *string
	OccurredAtFrom   *int64
	OccurredAtTo     *int64
	LastOccurredAt   *int64
	Limit            int
	Direction        Direction
}

// MaxStateSets bounds the number of sets accepted by a single state query
// (spec.md §4.H).
const MaxStateSets = 10

// DefaultListLimit and MaxListLimit bound List/SetStateAt page sizes
// (spec.md §4.H: "default 100, cap 100").
const (
	DefaultListLimit = 100
	MaxListLimit     = 100
)
