// Package shared provides the thin persistence wrapper the adjust engine
// uses to record its one-per-source-room Adjustment row.
package shared

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/foxford/eventd/internal/adjust"
	"github.com/foxford/eventd/internal/adjust/storage/tables"
)

// Database implements the Adjustment persistence port.
type Database struct {
	Adjustments tables.Adjustments
}

func (d *Database) Upsert(ctx context.Context, txn *sql.Tx, a *adjust.Adjustment) error {
	return d.Adjustments.Upsert(ctx, txn, a)
}

func (d *Database) FindByRoomID(ctx context.Context, roomID uuid.UUID) (*adjust.Adjustment, error) {
	return d.Adjustments.FindByRoomID(ctx, nil, roomID)
}
