// Package postgres is the Postgres-backed implementation of the event store
// repositories declared in storage/tables, following the teacher's
// CreateXTable/PrepareXTable split (roomserver/storage/postgres/*.go).
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/foxford/eventd/internal"
	"github.com/foxford/eventd/internal/eventstore"
	"github.com/foxford/eventd/internal/eventstore/storage/postgres/deltas"
	"github.com/foxford/eventd/internal/eventstore/storage/tables"
	"github.com/foxford/eventd/internal/sqlutil"
)

const eventsSchema = `
CREATE TABLE IF NOT EXISTS event (
	id                   UUID PRIMARY KEY,
	room_id              UUID NOT NULL,
	kind                 TEXT NOT NULL,
	"set"                TEXT NOT NULL,
	label                TEXT,
	attribute            TEXT,
	data                 JSONB,
	binary_data          BYTEA,
	occurred_at          BIGINT NOT NULL,
	created_by           TEXT NOT NULL,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	removed              BOOLEAN NOT NULL DEFAULT FALSE,
	original_occurred_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_event_room_occurred_at ON event(room_id, occurred_at DESC, created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_event_room_set_label ON event(room_id, "set", label);
CREATE INDEX IF NOT EXISTS idx_event_room_kind ON event(room_id, kind);
`

const (
	insertEventSQL = `
INSERT INTO event (id, room_id, kind, "set", label, attribute, data, binary_data, occurred_at, created_by, created_at, removed, original_occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	deleteByKindSQL = `DELETE FROM event WHERE room_id = $1 AND kind = $2`

	selectOriginalEventSQL = `
SELECT id, room_id, kind, "set", label, attribute, data, binary_data, occurred_at, created_by, created_at, removed, original_occurred_at
FROM event
WHERE room_id = $1 AND "set" = $2 AND label = $3
ORDER BY original_occurred_at ASC
LIMIT 1`

	selectNonRemovedSQL = `
SELECT id, room_id, kind, "set", label, attribute, data, binary_data, occurred_at, created_by, created_at, removed, original_occurred_at
FROM event
WHERE room_id = $1 AND removed = false
ORDER BY occurred_at ASC, created_at ASC, id ASC`

	selectByKindSQL = `
SELECT id, room_id, kind, "set", label, attribute, data, binary_data, occurred_at, created_by, created_at, removed, original_occurred_at
FROM event
WHERE room_id = $1 AND kind = $2
ORDER BY occurred_at ASC, created_at ASC, id ASC`

	selectStateAtSQL = `
WITH latest AS (
	SELECT DISTINCT ON (label) *
	FROM event
	WHERE room_id = $1 AND "set" = $2 AND label IS NOT NULL
	ORDER BY label, occurred_at DESC, created_at DESC, id DESC
),
candidate AS (
	SELECT DISTINCT ON (label) *
	FROM event
	WHERE room_id = $1 AND "set" = $2 AND label IS NOT NULL AND occurred_at <= $3
	ORDER BY label, occurred_at DESC, created_at DESC, id DESC
)
SELECT c.id, c.room_id, c.kind, c."set", c.label, c.attribute, c.data, c.binary_data, c.occurred_at, c.created_by, c.created_at, c.removed, c.original_occurred_at
FROM candidate c
JOIN latest l ON l.label = c.label
WHERE l.removed = false AND (l.attribute IS NULL OR l.attribute <> 'deleted')
ORDER BY c.occurred_at DESC
LIMIT $4`

	selectStateTotalCountSQL = `
WITH latest AS (
	SELECT DISTINCT ON (label) *
	FROM event
	WHERE room_id = $1 AND "set" = $2 AND label IS NOT NULL
	ORDER BY label, occurred_at DESC, created_at DESC, id DESC
),
candidate AS (
	SELECT DISTINCT ON (label) label
	FROM event
	WHERE room_id = $1 AND "set" = $2 AND label IS NOT NULL AND occurred_at <= $3
	ORDER BY label, occurred_at DESC, created_at DESC, id DESC
)
SELECT COUNT(*)
FROM candidate c
JOIN latest l ON l.label = c.label
WHERE l.removed = false AND (l.attribute IS NULL OR l.attribute <> 'deleted')`

	vacuumVersionsSQL = `
WITH ranked AS (
	SELECT e.id,
	       ROW_NUMBER() OVER (PARTITION BY e.room_id, e."set", e.label ORDER BY e.occurred_at DESC, e.created_at DESC, e.id DESC) AS rn,
	       e.created_at
	FROM event e
	JOIN room r ON r.id = e.room_id
	WHERE r.preserve_history = false AND e.label IS NOT NULL
)
DELETE FROM event
WHERE id IN (
	SELECT id FROM ranked WHERE rn > $1 OR created_at < $2
)`

	vacuumDeletedSQL = `
DELETE FROM event
WHERE id IN (
	SELECT e.id FROM event e
	JOIN room r ON r.id = e.room_id
	WHERE r.preserve_history = false AND e.attribute = 'deleted' AND e.created_at < $1
)`
)

type eventsStatements struct {
	db *sql.DB

	insertEventStmt            *sql.Stmt
	deleteByKindStmt           *sql.Stmt
	selectOriginalEventStmt    *sql.Stmt
	selectNonRemovedStmt       *sql.Stmt
	selectByKindStmt           *sql.Stmt
	selectStateAtStmt          *sql.Stmt
	selectStateTotalCountStmt  *sql.Stmt
	vacuumVersionsStmt         *sql.Stmt
	vacuumDeletedStmt          *sql.Stmt
}

// CreateEventsTable creates the event table schema and runs its migrations.
func CreateEventsTable(db *sql.DB) error {
	if _, err := db.Exec(eventsSchema); err != nil {
		return err
	}
	m := sqlutil.NewMigrator(db)
	m.AddMigrations(sqlutil.Migration{
		Version: "eventstore: add original_occurred_at backfill index",
		Up:      deltas.UpOriginalOccurredAtIndex,
	})
	return m.Up(context.Background())
}

// PrepareEventsTable prepares the Events repository's statements.
func PrepareEventsTable(db *sql.DB) (tables.Events, error) {
	s := &eventsStatements{db: db}
	return s, sqlutil.StatementList{
		{&s.insertEventStmt, insertEventSQL},
		{&s.deleteByKindStmt, deleteByKindSQL},
		{&s.selectOriginalEventStmt, selectOriginalEventSQL},
		{&s.selectNonRemovedStmt, selectNonRemovedSQL},
		{&s.selectByKindStmt, selectByKindSQL},
		{&s.selectStateAtStmt, selectStateAtSQL},
		{&s.selectStateTotalCountStmt, selectStateTotalCountSQL},
		{&s.vacuumVersionsStmt, vacuumVersionsSQL},
		{&s.vacuumDeletedStmt, vacuumDeletedSQL},
	}.Prepare(db)
}

func (s *eventsStatements) Insert(ctx context.Context, txn *sql.Tx, ev *eventstore.Event) error {
	data, binaryData := encodeForStorage(ev.Kind, ev.Data)
	stmt := sqlutil.TxStmt(txn, s.insertEventStmt)
	_, err := stmt.ExecContext(ctx,
		ev.ID, ev.RoomID, ev.Kind, ev.Set, ev.Label, ev.Attribute,
		data, binaryData, ev.OccurredAt, ev.CreatedBy, ev.CreatedAt, ev.Removed, ev.OriginalOccurredAt,
	)
	return err
}

func (s *eventsStatements) Delete(ctx context.Context, txn *sql.Tx, roomID uuid.UUID, kind string) (int64, error) {
	stmt := sqlutil.TxStmt(txn, s.deleteByKindStmt)
	res, err := stmt.ExecContext(ctx, roomID, kind)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *eventsStatements) OriginalEvent(ctx context.Context, txn *sql.Tx, roomID uuid.UUID, set, label string) (*eventstore.Event, error) {
	stmt := sqlutil.TxStmt(txn, s.selectOriginalEventStmt)
	row := stmt.QueryRowContext(ctx, roomID, set, label)
	ev, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ev, nil
}

func (s *eventsStatements) ListNonRemoved(ctx context.Context, txn *sql.Tx, roomID uuid.UUID) ([]eventstore.Event, error) {
	stmt := sqlutil.TxStmt(txn, s.selectNonRemovedStmt)
	rows, err := stmt.QueryContext(ctx, roomID)
	if err != nil {
		return nil, err
	}
	defer internal.CloseAndLogIfError(ctx, rows, "ListNonRemoved: rows.close() failed")
	return scanEvents(rows)
}

func (s *eventsStatements) ListByKind(ctx context.Context, txn *sql.Tx, roomID uuid.UUID, kind string) ([]eventstore.Event, error) {
	stmt := sqlutil.TxStmt(txn, s.selectByKindStmt)
	rows, err := stmt.QueryContext(ctx, roomID, kind)
	if err != nil {
		return nil, err
	}
	defer internal.CloseAndLogIfError(ctx, rows, "ListByKind: rows.close() failed")
	return scanEvents(rows)
}

func (s *eventsStatements) SetStateAt(ctx context.Context, txn *sql.Tx, roomID uuid.UUID, set string, cutoff int64, limit int) ([]eventstore.Event, error) {
	stmt := sqlutil.TxStmt(txn, s.selectStateAtStmt)
	rows, err := stmt.QueryContext(ctx, roomID, set, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer internal.CloseAndLogIfError(ctx, rows, "SetStateAt: rows.close() failed")
	return scanEvents(rows)
}

func (s *eventsStatements) SetStateTotalCount(ctx context.Context, txn *sql.Tx, roomID uuid.UUID, set string, cutoff int64) (uint64, error) {
	stmt := sqlutil.TxStmt(txn, s.selectStateTotalCountStmt)
	var count uint64
	err := stmt.QueryRowContext(ctx, roomID, set, cutoff).Scan(&count)
	return count, err
}

func (s *eventsStatements) VacuumVersions(ctx context.Context, txn *sql.Tx, maxHistorySize int, maxHistoryLifetime time.Duration) (int64, error) {
	stmt := sqlutil.TxStmt(txn, s.vacuumVersionsStmt)
	cutoff := time.Now().Add(-maxHistoryLifetime)
	res, err := stmt.ExecContext(ctx, maxHistorySize, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *eventsStatements) VacuumDeleted(ctx context.Context, txn *sql.Tx, maxDeletedLifetime time.Duration) (int64, error) {
	stmt := sqlutil.TxStmt(txn, s.vacuumDeletedStmt)
	cutoff := time.Now().Add(-maxDeletedLifetime)
	res, err := stmt.ExecContext(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// List is built dynamically rather than as a fixed prepared statement: its
// filter combination is too open-ended (optional kind/set/label/attribute/
// range/cursor, either direction) for a single statement shape.
func (s *eventsStatements) List(ctx context.Context, txn *sql.Tx, roomID uuid.UUID, f eventstore.Filter) ([]eventstore.Event, error) {
	direction := f.Direction
	if direction == "" {
		direction = eventstore.DirectionBackward
	}
	limit := f.Limit
	if limit <= 0 {
		limit = eventstore.DefaultListLimit
	}
	if limit > eventstore.MaxListLimit {
		limit = eventstore.MaxListLimit
	}

	query := `SELECT id, room_id, kind, "set", label, attribute, data, binary_data, occurred_at, created_by, created_at, removed, original_occurred_at
FROM event WHERE room_id = $1`
	args := []any{roomID}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(f.Kinds) == 1 {
		query += " AND kind = " + arg(f.Kinds[0])
	} else if len(f.Kinds) > 1 {
		query += " AND kind = ANY(" + arg(pq.Array(f.Kinds)) + ")"
	}
	if f.Set != nil {
		query += ` AND "set" = ` + arg(*f.Set)
	}
	if f.Label != nil {
		query += " AND label = " + arg(*f.Label)
	}
	if f.Attribute != nil {
		query += " AND attribute = " + arg(*f.Attribute)
	}
	if f.OccurredAtFrom != nil {
		query += " AND occurred_at >= " + arg(*f.OccurredAtFrom)
	}
	if f.OccurredAtTo != nil {
		query += " AND occurred_at <= " + arg(*f.OccurredAtTo)
	}
	if f.LastOccurredAt != nil {
		if direction == eventstore.DirectionForward {
			query += " AND occurred_at > " + arg(*f.LastOccurredAt)
		} else {
			query += " AND occurred_at < " + arg(*f.LastOccurredAt)
		}
	}

	if direction == eventstore.DirectionForward {
		query += " ORDER BY occurred_at ASC, created_at ASC, id ASC"
	} else {
		query += " ORDER BY occurred_at DESC, created_at DESC, id DESC"
	}
	query += " LIMIT " + arg(limit)

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
	defer internal.CloseAndLogIfError(ctx, rows, "List: rows.close() failed")
	return scanEvents(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*eventstore.Event, error) {
	var ev eventstore.Event
	var data, binaryData []byte
	if err := row.Scan(
		&ev.ID, &ev.RoomID, &ev.Kind, &ev.Set, &ev.Label, &ev.Attribute,
		&data, &binaryData, &ev.OccurredAt, &ev.CreatedBy, &ev.CreatedAt, &ev.Removed, &ev.OriginalOccurredAt,
	); err != nil {
		return nil, err
	}
	if err := populateData(&ev, data, binaryData); err != nil {
		return nil, err
	}
	return &ev, nil
}

func scanEvents(rows *sql.Rows) ([]eventstore.Event, error) {
	var out []eventstore.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ev)
	}
	return out, rows.Err()
}

func populateData(ev *eventstore.Event, data, binaryData []byte) error {
	if len(binaryData) > 0 {
		decoded, err := eventstore.FromCompact(binaryData)
		if err != nil {
			return fmt.Errorf("eventstore: decode binary_data for event %s: %w", ev.ID, err)
		}
		ev.Data = decoded
		return nil
	}
	ev.Data = data
	return nil
}

// encodeForStorage picks between JSON and the compact binary representation
// per spec.md §4.A.1.
func encodeForStorage(kind string, data []byte) (jsonCol, binCol []byte) {
	if compact, ok := eventstore.TryCompact(kind, data); ok {
		return nil, compact
	}
	return data, nil
}
