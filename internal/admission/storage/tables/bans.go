package tables

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/foxford/eventd/internal/admission"
)

// Bans is the ban repository (spec.md §3 "Ban"): per-room rows keyed by
// (account_id, room_id), per-classroom rows keyed by (account_id,
// classroom_id). Existence of a row is the ban.
type Bans interface {
	InsertRoomBan(ctx context.Context, txn *sql.Tx, b *admission.Ban) error
	DeleteRoomBan(ctx context.Context, txn *sql.Tx, accountID string, roomID uuid.UUID) error
	InsertClassroomBan(ctx context.Context, txn *sql.Tx, b *admission.Ban) error
	DeleteClassroomBan(ctx context.Context, txn *sql.Tx, accountID string, classroomID uuid.UUID) error

	ExistsForRoom(ctx context.Context, txn *sql.Tx, accountID string, roomID uuid.UUID) (bool, error)
	ExistsForClassroom(ctx context.Context, txn *sql.Tx, accountID string, classroomID uuid.UUID) (bool, error)
	ListForRoom(ctx context.Context, txn *sql.Tx, roomID uuid.UUID) ([]admission.Ban, error)
}
