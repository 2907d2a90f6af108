package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/foxford/eventd/internal"
	"github.com/foxford/eventd/internal/edition"
	"github.com/foxford/eventd/internal/edition/storage/tables"
	"github.com/foxford/eventd/internal/sqlutil"
)

const changesSchema = `
CREATE TABLE IF NOT EXISTS change (
	id                UUID PRIMARY KEY,
	edition_id        UUID NOT NULL,
	kind              TEXT NOT NULL,
	event_id          UUID,
	event_kind        TEXT,
	event_set         TEXT,
	event_label       TEXT,
	event_data        JSONB,
	event_occurred_at BIGINT,
	event_created_by  TEXT,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_change_edition_id ON change(edition_id, created_at);
`

const (
	insertChangeSQL = `
INSERT INTO change (id, edition_id, kind, event_id, event_kind, event_set, event_label, event_data, event_occurred_at, event_created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

	selectChangeByIDSQL = `
SELECT id, edition_id, kind, event_id, event_kind, event_set, event_label, event_data, event_occurred_at, event_created_by, created_at
FROM change WHERE id = $1`

	deleteChangeSQL = `DELETE FROM change WHERE id = $1`

	listChangesForCommitSQL = `
SELECT id, edition_id, kind, event_id, event_kind, event_set, event_label, event_data, event_occurred_at, event_created_by, created_at
FROM change WHERE edition_id = $1`
)

type changesStatements struct {
	db                      *sql.DB
	insertChangeStmt        *sql.Stmt
	selectChangeByIDStmt    *sql.Stmt
	deleteChangeStmt        *sql.Stmt
	listChangesForCommitStmt *sql.Stmt
}

// CreateChangesTable creates the change table schema.
func CreateChangesTable(db *sql.DB) error {
	_, err := db.Exec(changesSchema)
	return err
}

// PrepareChangesTable prepares the Changes repository's statements.
func PrepareChangesTable(db *sql.DB) (tables.Changes, error) {
	s := &changesStatements{db: db}
	return s, sqlutil.StatementList{
		{&s.insertChangeStmt, insertChangeSQL},
		{&s.selectChangeByIDStmt, selectChangeByIDSQL},
		{&s.deleteChangeStmt, deleteChangeSQL},
		{&s.listChangesForCommitStmt, listChangesForCommitSQL},
	}.Prepare(db)
}

func (s *changesStatements) Insert(ctx context.Context, txn *sql.Tx, c *edition.Change) error {
	stmt := sqlutil.TxStmt(txn, s.insertChangeStmt)
	_, err := stmt.ExecContext(ctx,
		c.ID, c.EditionID, c.Kind, c.EventID, c.EventKind, c.EventSet, c.EventLabel,
		c.EventData, c.EventOccurredAt, c.EventCreatedBy, c.CreatedAt,
	)
	return err
}

func (s *changesStatements) SelectByID(ctx context.Context, txn *sql.Tx, id uuid.UUID) (*edition.Change, error) {
	stmt := sqlutil.TxStmt(txn, s.selectChangeByIDStmt)
	row := stmt.QueryRowContext(ctx, id)
	c, err := scanChange(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (s *changesStatements) Delete(ctx context.Context, txn *sql.Tx, id uuid.UUID) error {
	stmt := sqlutil.TxStmt(txn, s.deleteChangeStmt)
	_, err := stmt.ExecContext(ctx, id)
	return err
}

// List is a small dynamic query (one optional predicate) rather than a
// prepared statement, mirroring the event store's List: the cursor is
// optional, so a single fixed shape can't cover both cases cleanly.
func (s *changesStatements) List(ctx context.Context, txn *sql.Tx, editionID uuid.UUID, lastCreatedAt *time.Time, limit int) ([]edition.Change, error) {
	query := `SELECT id, edition_id, kind, event_id, event_kind, event_set, event_label, event_data, event_occurred_at, event_created_by, created_at
FROM change WHERE edition_id = $1`
	args := []any{editionID}
	if lastCreatedAt != nil {
		query += fmt.Sprintf(" AND created_at > $%d", len(args)+1)
		args = append(args, *lastCreatedAt)
	}
	query += " ORDER BY created_at"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}

	var rows *sql.Rows
	var err error
	if txn != nil {
		rows, err = txn.QueryContext(ctx, query, args...)
	} else {
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, err
	}
	defer internal.CloseAndLogIfError(ctx, rows, "Changes.List: rows.close() failed")

	var out []edition.Change
	for rows.Next() {
		c, err := scanChange(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *changesStatements) ListForCommit(ctx context.Context, txn *sql.Tx, editionID uuid.UUID) ([]edition.Change, error) {
	stmt := sqlutil.TxStmt(txn, s.listChangesForCommitStmt)
	rows, err := stmt.QueryContext(ctx, editionID)
	if err != nil {
		return nil, err
	}
	defer internal.CloseAndLogIfError(ctx, rows, "Changes.ListForCommit: rows.close() failed")

	var out []edition.Change
	for rows.Next() {
		c, err := scanChange(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChange(row rowScanner) (*edition.Change, error) {
	var c edition.Change
	if err := row.Scan(
		&c.ID, &c.EditionID, &c.Kind, &c.EventID, &c.EventKind, &c.EventSet, &c.EventLabel,
		&c.EventData, &c.EventOccurredAt, &c.EventCreatedBy, &c.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}
