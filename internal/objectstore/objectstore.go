// Package objectstore declares the external object-storage collaborator used
// by the async events-dump task (spec.md §1 "object storage dump contract").
// The storage backend itself (S3 bucket layout, credentials, lifecycle
// policy) is out of scope; only the contract this service calls lives here.
package objectstore

import (
	"context"

	"github.com/google/uuid"
)

// Store is the external object-storage collaborator. DumpEventsToBucket
// serializes a room's full event history and uploads it, returning the
// object's URI on success.
type Store interface {
	DumpEventsToBucket(ctx context.Context, roomID uuid.UUID) (uri string, err error)
}
