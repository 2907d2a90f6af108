// Package postgres is the Postgres-backed implementation of the edition/
// change repositories.
package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/foxford/eventd/internal"
	"github.com/foxford/eventd/internal/edition"
	"github.com/foxford/eventd/internal/edition/storage/tables"
	"github.com/foxford/eventd/internal/sqlutil"
)

const editionsSchema = `
CREATE TABLE IF NOT EXISTS edition (
	id             UUID PRIMARY KEY,
	source_room_id UUID NOT NULL,
	created_by     TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_edition_source_room_id ON edition(source_room_id);
`

const (
	insertEditionSQL = `
INSERT INTO edition (id, source_room_id, created_by, created_at) VALUES ($1,$2,$3,$4)`

	selectEditionByIDSQL = `
SELECT id, source_room_id, created_by, created_at FROM edition WHERE id = $1`

	selectEditionsBySourceRoomIDSQL = `
SELECT id, source_room_id, created_by, created_at FROM edition WHERE source_room_id = $1 ORDER BY created_at`

	deleteEditionSQL = `DELETE FROM edition WHERE id = $1`
)

type editionsStatements struct {
	insertEditionStmt                *sql.Stmt
	selectEditionByIDStmt             *sql.Stmt
	selectEditionsBySourceRoomIDStmt   *sql.Stmt
	deleteEditionStmt                 *sql.Stmt
}

// CreateEditionsTable creates the edition table schema.
func CreateEditionsTable(db *sql.DB) error {
	_, err := db.Exec(editionsSchema)
	return err
}

// PrepareEditionsTable prepares the Editions repository's statements.
func PrepareEditionsTable(db *sql.DB) (tables.Editions, error) {
	s := &editionsStatements{}
	return s, sqlutil.StatementList{
		{&s.insertEditionStmt, insertEditionSQL},
		{&s.selectEditionByIDStmt, selectEditionByIDSQL},
		{&s.selectEditionsBySourceRoomIDStmt, selectEditionsBySourceRoomIDSQL},
		{&s.deleteEditionStmt, deleteEditionSQL},
	}.Prepare(db)
}

func (s *editionsStatements) Insert(ctx context.Context, txn *sql.Tx, e *edition.Edition) error {
	stmt := sqlutil.TxStmt(txn, s.insertEditionStmt)
	_, err := stmt.ExecContext(ctx, e.ID, e.SourceRoomID, e.CreatedBy, e.CreatedAt)
	return err
}

func (s *editionsStatements) SelectByID(ctx context.Context, txn *sql.Tx, id uuid.UUID) (*edition.Edition, error) {
	stmt := sqlutil.TxStmt(txn, s.selectEditionByIDStmt)
	row := stmt.QueryRowContext(ctx, id)
	var e edition.Edition
	if err := row.Scan(&e.ID, &e.SourceRoomID, &e.CreatedBy, &e.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (s *editionsStatements) SelectBySourceRoomID(ctx context.Context, txn *sql.Tx, sourceRoomID uuid.UUID) ([]edition.Edition, error) {
	stmt := sqlutil.TxStmt(txn, s.selectEditionsBySourceRoomIDStmt)
	rows, err := stmt.QueryContext(ctx, sourceRoomID)
	if err != nil {
		return nil, err
	}
	defer internal.CloseAndLogIfError(ctx, rows, "Editions.SelectBySourceRoomID: rows.close() failed")

	var out []edition.Edition
	for rows.Next() {
		var e edition.Edition
		if err := rows.Scan(&e.ID, &e.SourceRoomID, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *editionsStatements) Delete(ctx context.Context, txn *sql.Tx, id uuid.UUID) error {
	stmt := sqlutil.TxStmt(txn, s.deleteEditionStmt)
	_, err := stmt.ExecContext(ctx, id)
	return err
}
