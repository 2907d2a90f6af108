package tables

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/foxford/eventd/internal/edition"
)

// Editions is the Edition repository (spec.md §3 "Edition").
type Editions interface {
	Insert(ctx context.Context, txn *sql.Tx, e *edition.Edition) error
	SelectByID(ctx context.Context, txn *sql.Tx, id uuid.UUID) (*edition.Edition, error)
	SelectBySourceRoomID(ctx context.Context, txn *sql.Tx, sourceRoomID uuid.UUID) ([]edition.Edition, error)
	Delete(ctx context.Context, txn *sql.Tx, id uuid.UUID) error
}
