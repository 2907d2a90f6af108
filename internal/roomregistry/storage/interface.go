package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/foxford/eventd/internal/roomregistry"
)

// Database is the room registry port used by the rest of the service.
type Database interface {
	Create(ctx context.Context, r *roomregistry.Room) error
	Find(ctx context.Context, id uuid.UUID) (*roomregistry.Room, error)
	FindByClassroomID(ctx context.Context, classroomID uuid.UUID) ([]roomregistry.Room, error)
	// CloseRoom sets an open room's end bound to exactly end, used by the
	// adjust engine precondition (spec.md §4.E step 1).
	CloseRoom(ctx context.Context, id uuid.UUID, end time.Time) error
	// UpdateTime widens an open room's end into the future; it refuses a
	// closed room or a non-widening end.
	UpdateTime(ctx context.Context, id uuid.UUID, newEnd *time.Time, now time.Time) (*roomregistry.Room, error)
	UpdateTags(ctx context.Context, id uuid.UUID, tags []byte) error
	UpdateClassroomID(ctx context.Context, id uuid.UUID, classroomID uuid.UUID) error
	MergeLockedTypes(ctx context.Context, id uuid.UUID, patch map[string]bool) (map[string]bool, error)
	MergeWhiteboardAccess(ctx context.Context, id uuid.UUID, patch map[string]bool) (map[string]bool, error)
}
