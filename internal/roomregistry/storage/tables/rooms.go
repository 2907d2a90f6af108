package tables

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/foxford/eventd/internal/roomregistry"
)

// Rooms is the prepared-statement repository for the room registry.
type Rooms interface {
	Insert(ctx context.Context, txn *sql.Tx, r *roomregistry.Room) error
	SelectByID(ctx context.Context, txn *sql.Tx, id uuid.UUID) (*roomregistry.Room, error)
	SelectByClassroomID(ctx context.Context, txn *sql.Tx, classroomID uuid.UUID) ([]roomregistry.Room, error)
	UpdateTime(ctx context.Context, txn *sql.Tx, id uuid.UUID, end sql.NullTime) error
	UpdateTags(ctx context.Context, txn *sql.Tx, id uuid.UUID, tags []byte) error
	UpdateClassroomID(ctx context.Context, txn *sql.Tx, id uuid.UUID, classroomID uuid.UUID) error
	UpdateLockedTypes(ctx context.Context, txn *sql.Tx, id uuid.UUID, lockedTypes map[string]bool) error
	UpdateWhiteboardAccess(ctx context.Context, txn *sql.Tx, id uuid.UUID, access map[string]bool) error
}
