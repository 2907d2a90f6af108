package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/foxford/eventd/internal/edition"
)

// Database is the edition/change port used by the rest of the service.
type Database interface {
	CreateEdition(ctx context.Context, e *edition.Edition) error
	FindEdition(ctx context.Context, id uuid.UUID) (*edition.Edition, error)
	ListEditionsBySourceRoom(ctx context.Context, sourceRoomID uuid.UUID) ([]edition.Edition, error)
	DeleteEdition(ctx context.Context, id uuid.UUID) error

	InsertChange(ctx context.Context, c *edition.Change) error
	FindChange(ctx context.Context, id uuid.UUID) (*edition.Change, error)
	DeleteChange(ctx context.Context, id uuid.UUID) error
	ListChanges(ctx context.Context, editionID uuid.UUID, f edition.ListFilter) ([]edition.Change, error)
	ListChangesForCommit(ctx context.Context, editionID uuid.UUID) ([]edition.Change, error)
}

// DefaultListLimit mirrors the event store's page-size default/cap for
// change listing, since spec.md §4.F doesn't specify a distinct limit.
const (
	DefaultListLimit = 100
	MaxListLimit     = 100
)
