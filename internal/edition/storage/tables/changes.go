package tables

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/foxford/eventd/internal/edition"
)

// Changes is the Change repository (spec.md §3 "Change").
type Changes interface {
	Insert(ctx context.Context, txn *sql.Tx, c *edition.Change) error
	SelectByID(ctx context.Context, txn *sql.Tx, id uuid.UUID) (*edition.Change, error)
	Delete(ctx context.Context, txn *sql.Tx, id uuid.UUID) error
	// List returns changes for editionID ordered by created_at ascending,
	// resuming after lastCreatedAt when set (spec.md §4.F cursor listing).
	List(ctx context.Context, txn *sql.Tx, editionID uuid.UUID, lastCreatedAt *time.Time, limit int) ([]edition.Change, error)
	// ListForCommit returns every change for editionID, of all four kinds,
	// for the commit engine's merge pass (spec.md §4.G step 3).
	ListForCommit(ctx context.Context, txn *sql.Tx, editionID uuid.UUID) ([]edition.Change, error)
}
