// Package postgres is the Postgres-backed implementation of the room
// registry repository.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/foxford/eventd/internal"
	"github.com/foxford/eventd/internal/roomregistry"
	"github.com/foxford/eventd/internal/roomregistry/storage/tables"
	"github.com/foxford/eventd/internal/sqlutil"
)

const roomsSchema = `
CREATE TABLE IF NOT EXISTS room (
	id                         UUID PRIMARY KEY,
	audience                   TEXT NOT NULL,
	source_room_id             UUID,
	time_start                 TIMESTAMPTZ NOT NULL,
	time_end                   TIMESTAMPTZ,
	tags                       JSONB NOT NULL DEFAULT '{}',
	created_at                 TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	preserve_history           BOOLEAN NOT NULL DEFAULT FALSE,
	classroom_id               UUID,
	locked_types               JSONB NOT NULL DEFAULT '{}',
	validate_whiteboard_access BOOLEAN NOT NULL DEFAULT FALSE,
	whiteboard_access          JSONB NOT NULL DEFAULT '{}',
	kind                       TEXT
);

CREATE INDEX IF NOT EXISTS idx_room_classroom_id ON room(classroom_id);
CREATE INDEX IF NOT EXISTS idx_room_audience ON room(audience);
`

const (
	insertRoomSQL = `
INSERT INTO room (id, audience, source_room_id, time_start, time_end, tags, created_at, preserve_history, classroom_id, locked_types, validate_whiteboard_access, whiteboard_access, kind)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`

	selectRoomByIDSQL = `
SELECT id, audience, source_room_id, time_start, time_end, tags, created_at, preserve_history, classroom_id, locked_types, validate_whiteboard_access, whiteboard_access, kind
FROM room WHERE id = $1`

	selectRoomsByClassroomIDSQL = `
SELECT id, audience, source_room_id, time_start, time_end, tags, created_at, preserve_history, classroom_id, locked_types, validate_whiteboard_access, whiteboard_access, kind
FROM room WHERE classroom_id = $1`

	updateRoomTimeSQL             = `UPDATE room SET time_end = $2 WHERE id = $1`
	updateRoomTagsSQL             = `UPDATE room SET tags = $2 WHERE id = $1`
	updateRoomClassroomIDSQL      = `UPDATE room SET classroom_id = $2 WHERE id = $1`
	updateRoomLockedTypesSQL      = `UPDATE room SET locked_types = $2 WHERE id = $1`
	updateRoomWhiteboardAccessSQL = `UPDATE room SET whiteboard_access = $2 WHERE id = $1`
)

type roomsStatements struct {
	insertRoomStmt                 *sql.Stmt
	selectRoomByIDStmt              *sql.Stmt
	selectRoomsByClassroomIDStmt     *sql.Stmt
	updateRoomTimeStmt              *sql.Stmt
	updateRoomTagsStmt              *sql.Stmt
	updateRoomClassroomIDStmt       *sql.Stmt
	updateRoomLockedTypesStmt       *sql.Stmt
	updateRoomWhiteboardAccessStmt  *sql.Stmt
}

// CreateRoomsTable creates the room table schema.
func CreateRoomsTable(db *sql.DB) error {
	_, err := db.Exec(roomsSchema)
	return err
}

// PrepareRoomsTable prepares the Rooms repository's statements.
func PrepareRoomsTable(db *sql.DB) (tables.Rooms, error) {
	s := &roomsStatements{}
	return s, sqlutil.StatementList{
		{&s.insertRoomStmt, insertRoomSQL},
		{&s.selectRoomByIDStmt, selectRoomByIDSQL},
		{&s.selectRoomsByClassroomIDStmt, selectRoomsByClassroomIDSQL},
		{&s.updateRoomTimeStmt, updateRoomTimeSQL},
		{&s.updateRoomTagsStmt, updateRoomTagsSQL},
		{&s.updateRoomClassroomIDStmt, updateRoomClassroomIDSQL},
		{&s.updateRoomLockedTypesStmt, updateRoomLockedTypesSQL},
		{&s.updateRoomWhiteboardAccessStmt, updateRoomWhiteboardAccessSQL},
	}.Prepare(db)
}

func (s *roomsStatements) Insert(ctx context.Context, txn *sql.Tx, r *roomregistry.Room) error {
	lockedTypes, err := json.Marshal(r.LockedTypes)
	if err != nil {
		return err
	}
	whiteboardAccess, err := json.Marshal(r.WhiteboardAccess)
	if err != nil {
		return err
	}
	tags := r.Tags
	if tags == nil {
		tags = json.RawMessage(`{}`)
	}
	var kind *string
	if r.Kind != nil {
		k := string(*r.Kind)
		kind = &k
	}

	stmt := sqlutil.TxStmt(txn, s.insertRoomStmt)
	_, err = stmt.ExecContext(ctx,
		r.ID, r.Audience, r.SourceRoomID, r.Time.Start, r.Time.End, tags, r.CreatedAt,
		r.PreserveHistory, r.ClassroomID, lockedTypes, r.ValidateWhiteboardAccess, whiteboardAccess, kind,
	)
	return err
}

func (s *roomsStatements) SelectByID(ctx context.Context, txn *sql.Tx, id uuid.UUID) (*roomregistry.Room, error) {
	stmt := sqlutil.TxStmt(txn, s.selectRoomByIDStmt)
	row := stmt.QueryRowContext(ctx, id)
	r, err := scanRoom(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

func (s *roomsStatements) SelectByClassroomID(ctx context.Context, txn *sql.Tx, classroomID uuid.UUID) ([]roomregistry.Room, error) {
	stmt := sqlutil.TxStmt(txn, s.selectRoomsByClassroomIDStmt)
	rows, err := stmt.QueryContext(ctx, classroomID)
	if err != nil {
		return nil, err
	}
	defer internal.CloseAndLogIfError(ctx, rows, "SelectByClassroomID: rows.close() failed")

	var out []roomregistry.Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *roomsStatements) UpdateTime(ctx context.Context, txn *sql.Tx, id uuid.UUID, end sql.NullTime) error {
	stmt := sqlutil.TxStmt(txn, s.updateRoomTimeStmt)
	_, err := stmt.ExecContext(ctx, id, end)
	return err
}

func (s *roomsStatements) UpdateTags(ctx context.Context, txn *sql.Tx, id uuid.UUID, tags []byte) error {
	stmt := sqlutil.TxStmt(txn, s.updateRoomTagsStmt)
	_, err := stmt.ExecContext(ctx, id, tags)
	return err
}

func (s *roomsStatements) UpdateClassroomID(ctx context.Context, txn *sql.Tx, id uuid.UUID, classroomID uuid.UUID) error {
	stmt := sqlutil.TxStmt(txn, s.updateRoomClassroomIDStmt)
	_, err := stmt.ExecContext(ctx, id, classroomID)
	return err
}

func (s *roomsStatements) UpdateLockedTypes(ctx context.Context, txn *sql.Tx, id uuid.UUID, lockedTypes map[string]bool) error {
	data, err := json.Marshal(lockedTypes)
	if err != nil {
		return err
	}
	stmt := sqlutil.TxStmt(txn, s.updateRoomLockedTypesStmt)
	_, err = stmt.ExecContext(ctx, id, data)
	return err
}

func (s *roomsStatements) UpdateWhiteboardAccess(ctx context.Context, txn *sql.Tx, id uuid.UUID, access map[string]bool) error {
	data, err := json.Marshal(access)
	if err != nil {
		return err
	}
	stmt := sqlutil.TxStmt(txn, s.updateRoomWhiteboardAccessStmt)
	_, err = stmt.ExecContext(ctx, id, data)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (*roomregistry.Room, error) {
	var r roomregistry.Room
	var tags, lockedTypes, whiteboardAccess []byte
	var kind *string
	if err := row.Scan(
		&r.ID, &r.Audience, &r.SourceRoomID, &r.Time.Start, &r.Time.End, &tags, &r.CreatedAt,
		&r.PreserveHistory, &r.ClassroomID, &lockedTypes, &r.ValidateWhiteboardAccess, &whiteboardAccess, &kind,
	); err != nil {
		return nil, err
	}
	r.Tags = tags
	if err := json.Unmarshal(lockedTypes, &r.LockedTypes); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(whiteboardAccess, &r.WhiteboardAccess); err != nil {
		return nil, err
	}
	if kind != nil {
		k := roomregistry.Kind(*kind)
		r.Kind = &k
	}
	return &r, nil
}
