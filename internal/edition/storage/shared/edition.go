// Package shared implements the edition/change business rules of spec.md
// §4.F on top of the tables.Editions/tables.Changes repositories. No authz
// check (the "update on room" / "update on edition's source room" checks)
// is made here or by the HTTP handlers that call these methods; this package
// only owns CRUD, validation of change-kind field requirements, and cursor
// listing.
package shared

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/foxford/eventd/internal/apierrors"
	"github.com/foxford/eventd/internal/edition"
	"github.com/foxford/eventd/internal/edition/storage/tables"
	"github.com/foxford/eventd/internal/sqlutil"
)

// Database implements storage.Database.
type Database struct {
	DB      *sql.DB
	Writer  sqlutil.Writer
	Editions tables.Editions
	Changes  tables.Changes
}

func (d *Database) CreateEdition(ctx context.Context, e *edition.Edition) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if err := d.Writer.Do(d.DB, nil, func(txn *sql.Tx) error {
		return d.Editions.Insert(ctx, txn, e)
	}); err != nil {
		return apierrors.Wrap(apierrors.KindDBQueryFailed, err)
	}
	return nil
}

func (d *Database) FindEdition(ctx context.Context, id uuid.UUID) (*edition.Edition, error) {
	e, err := d.Editions.SelectByID(ctx, nil, id)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindDBQueryFailed, err)
	}
	if e == nil {
		return nil, apierrors.New(apierrors.KindEditionNotFound, id.String())
	}
	return e, nil
}

func (d *Database) ListEditionsBySourceRoom(ctx context.Context, sourceRoomID uuid.UUID) ([]edition.Edition, error) {
	return d.Editions.SelectBySourceRoomID(ctx, nil, sourceRoomID)
}

func (d *Database) DeleteEdition(ctx context.Context, id uuid.UUID) error {
	return d.Writer.Do(d.DB, nil, func(txn *sql.Tx) error {
		return d.Editions.Delete(ctx, txn, id)
	})
}

// InsertChange validates the change's fields against its kind (spec.md §3
// "Change" semantics) before persisting.
func (d *Database) InsertChange(ctx context.Context, c *edition.Change) error {
	if err := validateChange(c); err != nil {
		return err
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if err := d.Writer.Do(d.DB, nil, func(txn *sql.Tx) error {
		return d.Changes.Insert(ctx, txn, c)
	}); err != nil {
		return apierrors.Wrap(apierrors.KindDBQueryFailed, err)
	}
	return nil
}

func validateChange(c *edition.Change) error {
	switch c.Kind {
	case edition.KindAddition:
		if c.EventKind == nil || c.EventData == nil || c.EventOccurredAt == nil || c.EventCreatedBy == nil {
			return apierrors.New(apierrors.KindInvalidPayload, "addition requires event_kind, event_data, event_occurred_at and event_created_by")
		}
	case edition.KindModification, edition.KindRemoval:
		if c.EventID == nil {
			return apierrors.New(apierrors.KindInvalidPayload, string(c.Kind)+" requires event_id")
		}
	case edition.KindBulkRemoval:
		if c.EventSet == nil {
			return apierrors.New(apierrors.KindInvalidPayload, "bulk_removal requires event_set")
		}
	default:
		return apierrors.New(apierrors.KindInvalidPayload, "unrecognized change kind: "+string(c.Kind))
	}
	return nil
}

func (d *Database) FindChange(ctx context.Context, id uuid.UUID) (*edition.Change, error) {
	c, err := d.Changes.SelectByID(ctx, nil, id)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindDBQueryFailed, err)
	}
	if c == nil {
		return nil, apierrors.New(apierrors.KindChangeNotFound, id.String())
	}
	return c, nil
}

func (d *Database) DeleteChange(ctx context.Context, id uuid.UUID) error {
	return d.Writer.Do(d.DB, nil, func(txn *sql.Tx) error {
		return d.Changes.Delete(ctx, txn, id)
	})
}

func (d *Database) ListChanges(ctx context.Context, editionID uuid.UUID, f edition.ListFilter) ([]edition.Change, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 100 {
		limit = 100
	}
	return d.Changes.List(ctx, nil, editionID, f.LastCreatedAt, limit)
}

func (d *Database) ListChangesForCommit(ctx context.Context, editionID uuid.UUID) ([]edition.Change, error) {
	return d.Changes.ListForCommit(ctx, nil, editionID)
}
