// Package broker declares the external real-time messaging collaborator
// invoked by the admission Enter protocol (spec.md §1 "EnterRoom /
// EnterBroadcastRoom contracts"; §4.C step 3). The broker itself -- presence,
// signalling, media routing -- is out of scope; this package only carries the
// contract and the request/response shapes the admission engine needs.
package broker

import (
	"context"

	"github.com/google/uuid"
)

// EnterRequest describes an agent's attempt to join a room's real-time
// session.
type EnterRequest struct {
	RoomID    uuid.UUID
	AgentID   string
	AccountID string
	Label     string
}

// Broker is the external collaborator used by component C (Admission &
// Ban). Enter calls both methods in parallel via errgroup on every entry,
// and both must succeed (spec.md §4.C step 3).
type Broker interface {
	// EnterRoom requests entry into a room's regular (non-broadcast) session.
	EnterRoom(ctx context.Context, req EnterRequest) error
	// EnterBroadcastRoom requests entry into a room's broadcast session.
	EnterBroadcastRoom(ctx context.Context, req EnterRequest) error
}
