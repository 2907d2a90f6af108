// Package admission implements component C of spec.md: agent presence
// (in_progress -> ready), per-room and per-classroom bans, and the ban-cache
// callback consulted by the external authz engine (spec.md §4.C).
package admission

import (
	"time"

	"github.com/google/uuid"
)

// Status is an Agent's presence state.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusReady      Status = "ready"
)

// Agent is spec.md §3's Agent entity: the presence record created at the
// start of the Enter protocol and promoted to ready once the broker confirms
// the room has been entered.
type Agent struct {
	AgentID   string
	RoomID    uuid.UUID
	AccountID string
	Label     string
	Status    Status
	CreatedAt time.Time
}

// Ban is spec.md §3's Ban entity. Scope is either per-room (RoomID set) or
// per-classroom (ClassroomID set) -- existence of the row is the ban.
type Ban struct {
	AccountID   string
	RoomID      *uuid.UUID
	ClassroomID *uuid.UUID
	Reason      *string
	CreatedAt   time.Time
}

// EnterResult is returned from Enter: the promoted agent plus the ban flag
// looked up by (account_id, classroom_id), per spec.md §4.C step 5.
type EnterResult struct {
	Agent  Agent
	Banned bool
}
