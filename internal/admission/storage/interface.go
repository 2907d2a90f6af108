package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/foxford/eventd/internal/admission"
)

// Database is the admission port used by the rest of the service: the Enter
// protocol, ban lookups consulted by the authz ban-callback, and the
// agent-update (ban/unban) transaction.
type Database interface {
	// Enter runs spec.md §4.C's Enter protocol end to end, including the
	// broker round-trip.
	Enter(ctx context.Context, roomID uuid.UUID, accountID, agentID, label string) (*admission.EnterResult, error)

	// IsBanned answers the ban-callback consulted by the external authz
	// engine: true if accountID is banned from roomID or its classroom.
	// Callers must treat any error as "not banned" (fail-open), per
	// spec.md §4.C.
	IsBanned(ctx context.Context, accountID string, roomID uuid.UUID) (bool, error)

	// SetBan performs the agent-update (ban/unban) transaction: insert or
	// delete the ban row and append an agent_ban event, atomically.
	SetBan(ctx context.Context, roomID uuid.UUID, accountID string, banned bool, reason *string) error

	ListBans(ctx context.Context, roomID uuid.UUID) ([]admission.Ban, error)

	// ListAgents lists every agent that has entered roomID (spec.md §6
	// "GET /rooms/:id/agents").
	ListAgents(ctx context.Context, roomID uuid.UUID) ([]admission.Agent, error)
}
