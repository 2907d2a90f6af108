// Package postgres is the Postgres-backed implementation of the Adjustment
// repository.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/foxford/eventd/internal/adjust"
	"github.com/foxford/eventd/internal/adjust/storage/tables"
	"github.com/foxford/eventd/internal/segments"
	"github.com/foxford/eventd/internal/sqlutil"
)

const adjustmentsSchema = `
CREATE TABLE IF NOT EXISTS adjustment (
	room_id    UUID PRIMARY KEY,
	started_at TIMESTAMPTZ NOT NULL,
	segments   JSONB NOT NULL,
	offset_ms  BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

const (
	upsertAdjustmentSQL = `
INSERT INTO adjustment (room_id, started_at, segments, offset_ms, created_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (room_id) DO UPDATE SET started_at = EXCLUDED.started_at, segments = EXCLUDED.segments, offset_ms = EXCLUDED.offset_ms, created_at = EXCLUDED.created_at`

	selectAdjustmentByRoomIDSQL = `
SELECT room_id, started_at, segments, offset_ms, created_at FROM adjustment WHERE room_id = $1`
)

type adjustmentsStatements struct {
	upsertAdjustmentStmt        *sql.Stmt
	selectAdjustmentByRoomIDStmt *sql.Stmt
}

// CreateAdjustmentsTable creates the adjustment table schema.
func CreateAdjustmentsTable(db *sql.DB) error {
	_, err := db.Exec(adjustmentsSchema)
	return err
}

// PrepareAdjustmentsTable prepares the Adjustments repository's statements.
func PrepareAdjustmentsTable(db *sql.DB) (tables.Adjustments, error) {
	s := &adjustmentsStatements{}
	return s, sqlutil.StatementList{
		{&s.upsertAdjustmentStmt, upsertAdjustmentSQL},
		{&s.selectAdjustmentByRoomIDStmt, selectAdjustmentByRoomIDSQL},
	}.Prepare(db)
}

func (s *adjustmentsStatements) Upsert(ctx context.Context, txn *sql.Tx, a *adjust.Adjustment) error {
	data, err := json.Marshal(a.Segments)
	if err != nil {
		return err
	}
	stmt := sqlutil.TxStmt(txn, s.upsertAdjustmentStmt)
	_, err = stmt.ExecContext(ctx, a.RoomID, a.StartedAt, data, a.OffsetMS, a.CreatedAt)
	return err
}

func (s *adjustmentsStatements) FindByRoomID(ctx context.Context, txn *sql.Tx, roomID uuid.UUID) (*adjust.Adjustment, error) {
	stmt := sqlutil.TxStmt(txn, s.selectAdjustmentByRoomIDStmt)
	row := stmt.QueryRowContext(ctx, roomID)

	var a adjust.Adjustment
	var data []byte
	if err := row.Scan(&a.RoomID, &a.StartedAt, &data, &a.OffsetMS, &a.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	var segs []segments.Segment
	if err := json.Unmarshal(data, &segs); err != nil {
		return nil, err
	}
	a.Segments = segs
	return &a, nil
}
