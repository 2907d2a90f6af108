package tables

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/foxford/eventd/internal/admission"
)

// Agents is the agent-presence repository (spec.md §3 "Agent").
type Agents interface {
	Insert(ctx context.Context, txn *sql.Tx, a *admission.Agent) error
	UpdateStatus(ctx context.Context, txn *sql.Tx, roomID uuid.UUID, agentID string, status admission.Status) error
	SelectByRoomAndAgent(ctx context.Context, txn *sql.Tx, roomID uuid.UUID, agentID string) (*admission.Agent, error)
	SelectByRoom(ctx context.Context, txn *sql.Tx, roomID uuid.UUID) ([]admission.Agent, error)
}
