// Package shared implements the room registry business rules on top of the
// tables.Rooms repository (spec.md §4.B).
package shared

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/foxford/eventd/internal/apierrors"
	"github.com/foxford/eventd/internal/roomregistry"
	"github.com/foxford/eventd/internal/roomregistry/storage/tables"
	"github.com/foxford/eventd/internal/sqlutil"
)

// Database implements roomregistry's storage.Database port.
type Database struct {
	DB     *sql.DB
	Writer sqlutil.Writer
	Rooms  tables.Rooms
}

func (d *Database) Create(ctx context.Context, r *roomregistry.Room) error {
	if r.Time.End != nil && !r.Time.End.After(r.Time.Start) {
		return apierrors.New(apierrors.KindInvalidRoomTime, "room time.end must be after time.start")
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	return d.Writer.Do(d.DB, nil, func(txn *sql.Tx) error {
		return d.Rooms.Insert(ctx, txn, r)
	})
}

func (d *Database) Find(ctx context.Context, id uuid.UUID) (*roomregistry.Room, error) {
	r, err := d.Rooms.SelectByID(ctx, nil, id)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindDBQueryFailed, err)
	}
	if r == nil {
		return nil, apierrors.New(apierrors.KindRoomNotFound, id.String())
	}
	return r, nil
}

func (d *Database) FindByClassroomID(ctx context.Context, classroomID uuid.UUID) ([]roomregistry.Room, error) {
	return d.Rooms.SelectByClassroomID(ctx, nil, classroomID)
}

// CloseRoom sets an open room's end to exactly `end`, used by the adjust
// engine precondition (spec.md §4.E step 1: "if R.time.end is unbounded, set
// R.time.end := started_at").
func (d *Database) CloseRoom(ctx context.Context, id uuid.UUID, end time.Time) error {
	return d.Writer.Do(d.DB, nil, func(txn *sql.Tx) error {
		return d.Rooms.UpdateTime(ctx, txn, id, sql.NullTime{Time: end, Valid: true})
	})
}

// UpdateTime applies spec.md §4.B's update rule: "time may only widen bounds
// into the future on an open room." A closed room (IsClosed(now)) rejects
// any time update; an open room may only move End further into the future
// (or set it for the first time), never backward.
func (d *Database) UpdateTime(ctx context.Context, id uuid.UUID, newEnd *time.Time, now time.Time) (*roomregistry.Room, error) {
	room, err := d.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if room.IsClosed(now) {
		return nil, apierrors.New(apierrors.KindRoomClosed, "cannot update the time of a closed room")
	}
	if newEnd != nil {
		if !newEnd.After(room.Time.Start) {
			return nil, apierrors.New(apierrors.KindInvalidRoomTime, "time.end must be after time.start")
		}
		if room.Time.End != nil && !newEnd.After(*room.Time.End) {
			return nil, apierrors.New(apierrors.KindInvalidRoomTime, "time.end may only widen into the future")
		}
	}

	var end sql.NullTime
	if newEnd != nil {
		end = sql.NullTime{Time: *newEnd, Valid: true}
	}
	if err := d.Writer.Do(d.DB, nil, func(txn *sql.Tx) error {
		return d.Rooms.UpdateTime(ctx, txn, id, end)
	}); err != nil {
		return nil, apierrors.Wrap(apierrors.KindDBQueryFailed, err)
	}

	room.Time.End = newEnd
	return room, nil
}

func (d *Database) UpdateTags(ctx context.Context, id uuid.UUID, tags []byte) error {
	return d.Writer.Do(d.DB, nil, func(txn *sql.Tx) error {
		return d.Rooms.UpdateTags(ctx, txn, id, tags)
	})
}

func (d *Database) UpdateClassroomID(ctx context.Context, id uuid.UUID, classroomID uuid.UUID) error {
	return d.Writer.Do(d.DB, nil, func(txn *sql.Tx) error {
		return d.Rooms.UpdateClassroomID(ctx, txn, id, classroomID)
	})
}

func (d *Database) MergeLockedTypes(ctx context.Context, id uuid.UUID, patch map[string]bool) (map[string]bool, error) {
	room, err := d.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	merged := room.MergeLockedTypes(patch)
	if err := d.Writer.Do(d.DB, nil, func(txn *sql.Tx) error {
		return d.Rooms.UpdateLockedTypes(ctx, txn, id, merged)
	}); err != nil {
		return nil, apierrors.Wrap(apierrors.KindDBQueryFailed, err)
	}
	return merged, nil
}

func (d *Database) MergeWhiteboardAccess(ctx context.Context, id uuid.UUID, patch map[string]bool) (map[string]bool, error) {
	room, err := d.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	merged := room.MergeWhiteboardAccess(patch)
	if err := d.Writer.Do(d.DB, nil, func(txn *sql.Tx) error {
		return d.Rooms.UpdateWhiteboardAccess(ctx, txn, id, merged)
	}); err != nil {
		return nil, apierrors.Wrap(apierrors.KindDBQueryFailed, err)
	}
	return merged, nil
}
