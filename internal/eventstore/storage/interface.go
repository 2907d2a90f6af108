package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/foxford/eventd/internal/eventstore"
)

// Database is the full event-store port used by the rest of the service:
// HTTP handlers, the admission/admission-ban package, and the adjust/commit
// engines.
type Database interface {
	Insert(ctx context.Context, in eventstore.NewEventInput) (*eventstore.Event, error)
	Delete(ctx context.Context, roomID uuid.UUID, kind string) (int64, error)
	List(ctx context.Context, roomID uuid.UUID, f eventstore.Filter) ([]eventstore.Event, error)
	SetStateAt(ctx context.Context, roomID uuid.UUID, set string, cutoff int64, limit int) ([]eventstore.Event, error)
	SetStateTotalCount(ctx context.Context, roomID uuid.UUID, set string, cutoff int64) (uint64, error)
	OriginalEvent(ctx context.Context, roomID uuid.UUID, set, label string) (*eventstore.Event, error)
	ListNonRemoved(ctx context.Context, roomID uuid.UUID) ([]eventstore.Event, error)
	ListByKind(ctx context.Context, roomID uuid.UUID, kind string) ([]eventstore.Event, error)
	Vacuum(ctx context.Context, maxHistorySize int, maxHistoryLifetime, maxDeletedLifetime time.Duration) (int64, error)

	// CloneInto inserts clonedEvents into roomID inside txn, on behalf of the
	// adjust/commit engines which own the transaction boundary.
	CloneInto(ctx context.Context, txn *sql.Tx, roomID uuid.UUID, clonedEvents []eventstore.Event) error
	// WithTx runs fn inside a new transaction on the underlying *sql.DB so
	// engines can own an explicit, long-lived transaction (spec.md §5: "hold at most one DB
	// connection at a time for the duration of their transaction").
	WithTx(ctx context.Context, fn func(txn *sql.Tx) error) error
}
