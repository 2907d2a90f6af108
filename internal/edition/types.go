// Package edition implements component F of spec.md: named editorial
// changelists (Edition/Change) over a source room (spec.md §4.F).
package edition

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Kind is a Change's kind (spec.md §3 "Change").
type Kind string

const (
	KindAddition     Kind = "addition"
	KindModification Kind = "modification"
	KindRemoval      Kind = "removal"
	KindBulkRemoval  Kind = "bulk_removal"
)

// Edition is spec.md §3's Edition entity.
type Edition struct {
	ID           uuid.UUID
	SourceRoomID uuid.UUID
	CreatedBy    string
	CreatedAt    time.Time
}

// Change is spec.md §3's Change entity. Event* fields are optional and
// interpreted according to Kind: see spec.md §3 for the per-kind semantics
// (addition/modification/removal/bulk_removal).
type Change struct {
	ID        uuid.UUID
	EditionID uuid.UUID
	Kind      Kind

	EventID         *uuid.UUID
	EventKind       *string
	EventSet        *string
	EventLabel      *string
	EventData       json.RawMessage
	EventOccurredAt *int64
	EventCreatedBy  *string

	CreatedAt time.Time
}

// ListFilter captures the cursor-based listing parameters (spec.md §4.F
// "Listing supports last_created_at cursor").
type ListFilter struct {
	LastCreatedAt *time.Time
	Limit         int
}
