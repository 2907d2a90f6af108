// Package tables declares the narrow, SQL-shaped repository interfaces that
// storage/postgres implements, the same split the teacher uses between
// mediaapi/storage/tables and mediaapi/storage/postgres.
package tables

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/foxford/eventd/internal/eventstore"
)

// Events is the prepared-statement repository for the event log.
type Events interface {
	Insert(ctx context.Context, txn *sql.Tx, ev *eventstore.Event) error
	Delete(ctx context.Context, txn *sql.Tx, roomID uuid.UUID, kind string) (int64, error)
	List(ctx context.Context, txn *sql.Tx, roomID uuid.UUID, f eventstore.Filter) ([]eventstore.Event, error)
	SetStateAt(ctx context.Context, txn *sql.Tx, roomID uuid.UUID, set string, cutoff int64, limit int) ([]eventstore.Event, error)
	SetStateTotalCount(ctx context.Context, txn *sql.Tx, roomID uuid.UUID, set string, cutoff int64) (uint64, error)
	OriginalEvent(ctx context.Context, txn *sql.Tx, roomID uuid.UUID, set string, label string) (*eventstore.Event, error)
	ListNonRemoved(ctx context.Context, txn *sql.Tx, roomID uuid.UUID) ([]eventstore.Event, error)
	ListByKind(ctx context.Context, txn *sql.Tx, roomID uuid.UUID, kind string) ([]eventstore.Event, error)
	VacuumVersions(ctx context.Context, txn *sql.Tx, maxHistorySize int, maxHistoryLifetime time.Duration) (int64, error)
	VacuumDeleted(ctx context.Context, txn *sql.Tx, maxDeletedLifetime time.Duration) (int64, error)
}
