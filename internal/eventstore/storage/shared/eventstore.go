// Package shared implements the event-store business logic on top of the
// tables.Events repository, the same layering the teacher uses in
// mediaapi/storage/shared/mediaapi.go: cross-cutting rules (ID generation,
// payload limits, default-field application) live here, SQL lives in
// storage/postgres.
package shared

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/foxford/eventd/internal/apierrors"
	"github.com/foxford/eventd/internal/eventstore"
	"github.com/foxford/eventd/internal/eventstore/storage/tables"
	"github.com/foxford/eventd/internal/sqlutil"
)

// Database implements storage.Database against a concrete tables.Events
// repository and a *sql.DB connection pool.
type Database struct {
	DB              *sql.DB
	Writer          sqlutil.Writer
	Events          tables.Events
	MaxPayloadBytes int
}

// Insert validates and stores a new event (spec.md §4.A "Insert").
// Set defaults to Kind when unset; OriginalOccurredAt is always set equal to
// OccurredAt at insert time, per spec.md §3 ("Event" invariants).
func (d *Database) Insert(ctx context.Context, in eventstore.NewEventInput) (*eventstore.Event, error) {
	if d.MaxPayloadBytes > 0 && len(in.Data) > d.MaxPayloadBytes {
		return nil, apierrors.New(apierrors.KindPayloadTooLarge, "event data exceeds the configured payload limit")
	}

	set := in.Kind
	if in.Set != nil {
		set = *in.Set
	}
	removed := false
	if in.Removed != nil {
		removed = *in.Removed
	}
	createdAt := time.Now()
	if in.CreatedAt != nil {
		createdAt = *in.CreatedAt
	}

	ev := &eventstore.Event{
		ID:                 uuid.New(),
		RoomID:             in.RoomID,
		Kind:               in.Kind,
		Set:                set,
		Label:              in.Label,
		Attribute:          in.Attribute,
		Data:               in.Data,
		OccurredAt:         in.OccurredAt,
		CreatedBy:          in.CreatedBy,
		CreatedAt:          createdAt,
		Removed:            removed,
		OriginalOccurredAt: in.OccurredAt,
	}

	err := d.Writer.Do(d.DB, nil, func(txn *sql.Tx) error {
		return d.Events.Insert(ctx, txn, ev)
	})
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindDBQueryFailed, err)
	}
	return ev, nil
}

func (d *Database) Delete(ctx context.Context, roomID uuid.UUID, kind string) (int64, error) {
	var count int64
	err := d.Writer.Do(d.DB, nil, func(txn *sql.Tx) error {
		var err error
		count, err = d.Events.Delete(ctx, txn, roomID, kind)
		return err
	})
	return count, err
}

func (d *Database) List(ctx context.Context, roomID uuid.UUID, f eventstore.Filter) ([]eventstore.Event, error) {
	return d.Events.List(ctx, nil, roomID, f)
}

func (d *Database) SetStateAt(ctx context.Context, roomID uuid.UUID, set string, cutoff int64, limit int) ([]eventstore.Event, error) {
	if limit <= 0 {
		limit = eventstore.DefaultListLimit
	}
	if limit > eventstore.MaxListLimit {
		limit = eventstore.MaxListLimit
	}
	return d.Events.SetStateAt(ctx, nil, roomID, set, cutoff, limit)
}

func (d *Database) SetStateTotalCount(ctx context.Context, roomID uuid.UUID, set string, cutoff int64) (uint64, error) {
	return d.Events.SetStateTotalCount(ctx, nil, roomID, set, cutoff)
}

func (d *Database) OriginalEvent(ctx context.Context, roomID uuid.UUID, set, label string) (*eventstore.Event, error) {
	return d.Events.OriginalEvent(ctx, nil, roomID, set, label)
}

func (d *Database) ListNonRemoved(ctx context.Context, roomID uuid.UUID) ([]eventstore.Event, error) {
	return d.Events.ListNonRemoved(ctx, nil, roomID)
}

func (d *Database) ListByKind(ctx context.Context, roomID uuid.UUID, kind string) ([]eventstore.Event, error) {
	return d.Events.ListByKind(ctx, nil, roomID, kind)
}

// Vacuum enforces the three-knob retention policy (spec.md §4.I), skipping
// rooms with preserve_history=true entirely (enforced inside the SQL via a
// join against the room table).
func (d *Database) Vacuum(ctx context.Context, maxHistorySize int, maxHistoryLifetime, maxDeletedLifetime time.Duration) (int64, error) {
	var total int64
	err := d.Writer.Do(d.DB, nil, func(txn *sql.Tx) error {
		n, err := d.Events.VacuumVersions(ctx, txn, maxHistorySize, maxHistoryLifetime)
		if err != nil {
			return err
		}
		total += n
		n, err = d.Events.VacuumDeleted(ctx, txn, maxDeletedLifetime)
		if err != nil {
			return err
		}
		total += n
		return nil
	})
	return total, err
}

func (d *Database) CloneInto(ctx context.Context, txn *sql.Tx, roomID uuid.UUID, clonedEvents []eventstore.Event) error {
	for i := range clonedEvents {
		ev := clonedEvents[i]
		ev.ID = uuid.New()
		ev.RoomID = roomID
		if err := d.Events.Insert(ctx, txn, &ev); err != nil {
			return err
		}
	}
	return nil
}

func (d *Database) WithTx(ctx context.Context, fn func(txn *sql.Tx) error) error {
	return sqlutil.WithTransaction(ctx, d.DB, fn)
}
