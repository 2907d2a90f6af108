package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/foxford/eventd/internal"
	"github.com/foxford/eventd/internal/admission"
	"github.com/foxford/eventd/internal/admission/storage/tables"
	"github.com/foxford/eventd/internal/sqlutil"
)

const bansSchema = `
CREATE TABLE IF NOT EXISTS room_ban (
	account_id TEXT NOT NULL,
	room_id    UUID NOT NULL,
	reason     TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (account_id, room_id)
);

CREATE TABLE IF NOT EXISTS classroom_ban (
	account_id   TEXT NOT NULL,
	classroom_id UUID NOT NULL,
	reason       TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (account_id, classroom_id)
);
`

const (
	insertRoomBanSQL = `
INSERT INTO room_ban (account_id, room_id, reason, created_at) VALUES ($1,$2,$3,$4)
ON CONFLICT (account_id, room_id) DO UPDATE SET reason = EXCLUDED.reason`

	deleteRoomBanSQL = `DELETE FROM room_ban WHERE account_id = $1 AND room_id = $2`

	insertClassroomBanSQL = `
INSERT INTO classroom_ban (account_id, classroom_id, reason, created_at) VALUES ($1,$2,$3,$4)
ON CONFLICT (account_id, classroom_id) DO UPDATE SET reason = EXCLUDED.reason`

	deleteClassroomBanSQL = `DELETE FROM classroom_ban WHERE account_id = $1 AND classroom_id = $2`

	existsRoomBanSQL      = `SELECT EXISTS(SELECT 1 FROM room_ban WHERE account_id = $1 AND room_id = $2)`
	existsClassroomBanSQL = `SELECT EXISTS(SELECT 1 FROM classroom_ban WHERE account_id = $1 AND classroom_id = $2)`

	listRoomBansSQL = `SELECT account_id, room_id, reason, created_at FROM room_ban WHERE room_id = $1`
)

type bansStatements struct {
	insertRoomBanStmt      *sql.Stmt
	deleteRoomBanStmt      *sql.Stmt
	insertClassroomBanStmt *sql.Stmt
	deleteClassroomBanStmt *sql.Stmt
	existsRoomBanStmt      *sql.Stmt
	existsClassroomBanStmt *sql.Stmt
	listRoomBansStmt       *sql.Stmt
}

// CreateBansTable creates the room_ban/classroom_ban schema.
func CreateBansTable(db *sql.DB) error {
	_, err := db.Exec(bansSchema)
	return err
}

// PrepareBansTable prepares the Bans repository's statements.
func PrepareBansTable(db *sql.DB) (tables.Bans, error) {
	s := &bansStatements{}
	return s, sqlutil.StatementList{
		{&s.insertRoomBanStmt, insertRoomBanSQL},
		{&s.deleteRoomBanStmt, deleteRoomBanSQL},
		{&s.insertClassroomBanStmt, insertClassroomBanSQL},
		{&s.deleteClassroomBanStmt, deleteClassroomBanSQL},
		{&s.existsRoomBanStmt, existsRoomBanSQL},
		{&s.existsClassroomBanStmt, existsClassroomBanSQL},
		{&s.listRoomBansStmt, listRoomBansSQL},
	}.Prepare(db)
}

func (s *bansStatements) InsertRoomBan(ctx context.Context, txn *sql.Tx, b *admission.Ban) error {
	stmt := sqlutil.TxStmt(txn, s.insertRoomBanStmt)
	_, err := stmt.ExecContext(ctx, b.AccountID, b.RoomID, b.Reason, b.CreatedAt)
	return err
}

func (s *bansStatements) DeleteRoomBan(ctx context.Context, txn *sql.Tx, accountID string, roomID uuid.UUID) error {
	stmt := sqlutil.TxStmt(txn, s.deleteRoomBanStmt)
	_, err := stmt.ExecContext(ctx, accountID, roomID)
	return err
}

func (s *bansStatements) InsertClassroomBan(ctx context.Context, txn *sql.Tx, b *admission.Ban) error {
	stmt := sqlutil.TxStmt(txn, s.insertClassroomBanStmt)
	_, err := stmt.ExecContext(ctx, b.AccountID, b.ClassroomID, b.Reason, b.CreatedAt)
	return err
}

func (s *bansStatements) DeleteClassroomBan(ctx context.Context, txn *sql.Tx, accountID string, classroomID uuid.UUID) error {
	stmt := sqlutil.TxStmt(txn, s.deleteClassroomBanStmt)
	_, err := stmt.ExecContext(ctx, accountID, classroomID)
	return err
}

func (s *bansStatements) ExistsForRoom(ctx context.Context, txn *sql.Tx, accountID string, roomID uuid.UUID) (bool, error) {
	stmt := sqlutil.TxStmt(txn, s.existsRoomBanStmt)
	var exists bool
	err := stmt.QueryRowContext(ctx, accountID, roomID).Scan(&exists)
	return exists, err
}

func (s *bansStatements) ExistsForClassroom(ctx context.Context, txn *sql.Tx, accountID string, classroomID uuid.UUID) (bool, error) {
	stmt := sqlutil.TxStmt(txn, s.existsClassroomBanStmt)
	var exists bool
	err := stmt.QueryRowContext(ctx, accountID, classroomID).Scan(&exists)
	return exists, err
}

func (s *bansStatements) ListForRoom(ctx context.Context, txn *sql.Tx, roomID uuid.UUID) ([]admission.Ban, error) {
	stmt := sqlutil.TxStmt(txn, s.listRoomBansStmt)
	rows, err := stmt.QueryContext(ctx, roomID)
	if err != nil {
		return nil, err
	}
	defer internal.CloseAndLogIfError(ctx, rows, "Bans.ListForRoom: rows.close() failed")

	var out []admission.Ban
	for rows.Next() {
		var b admission.Ban
		b.RoomID = &roomID
		if err := rows.Scan(&b.AccountID, &b.RoomID, &b.Reason, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}
