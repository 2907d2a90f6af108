package tables

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/foxford/eventd/internal/adjust"
)

// Adjustments is the repository for spec.md §3's Adjustment entity: at most
// one row per source room.
type Adjustments interface {
	Upsert(ctx context.Context, txn *sql.Tx, a *adjust.Adjustment) error
	FindByRoomID(ctx context.Context, txn *sql.Tx, roomID uuid.UUID) (*adjust.Adjustment, error)
}
