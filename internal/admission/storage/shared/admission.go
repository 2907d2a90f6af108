// Package shared implements component C's business rules (spec.md §4.C) on
// top of the tables.Agents/tables.Bans repositories, the room registry port,
// the event store port, and the external authz/broker collaborators.
package shared

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/foxford/eventd/internal/admission"
	"github.com/foxford/eventd/internal/admission/bancache"
	"github.com/foxford/eventd/internal/admission/storage/tables"
	"github.com/foxford/eventd/internal/apierrors"
	"github.com/foxford/eventd/internal/authz"
	"github.com/foxford/eventd/internal/broker"
	"github.com/foxford/eventd/internal/eventstore"
	eventstorage "github.com/foxford/eventd/internal/eventstore/storage"
	"github.com/foxford/eventd/internal/notify"
	"github.com/foxford/eventd/internal/roomregistry"
	roomstorage "github.com/foxford/eventd/internal/roomregistry/storage"
	"github.com/foxford/eventd/internal/sqlutil"
)

// occurredAtNow converts the current wall-clock instant into occurred_at
// nanoseconds relative to the room's opening, per spec.md §3 ("occurred_at
// (i64 nanoseconds relative to room opening)").
func occurredAtNow(room *roomregistry.Room) int64 {
	return time.Since(room.Time.Start).Nanoseconds()
}

// Database implements storage.Database (the admission port).
type Database struct {
	DB     *sql.DB
	Writer sqlutil.Writer

	Agents tables.Agents
	Bans   tables.Bans

	Rooms   roomstorage.Database
	Events  eventstorage.Database
	Authz   authz.Engine
	Broker  broker.Broker
	Outbox  *notify.Outbox
	BanTTL  time.Duration
	BanCache *bancache.Cache
}

type agentEnterPayload struct {
	AgentID   string `json:"agent_id"`
	AccountID string `json:"account_id"`
}

type agentBanPayload struct {
	AccountID string `json:"account_id"`
	Banned    bool   `json:"banned"`
	Reason    *string `json:"reason,omitempty"`
}

// Enter runs spec.md §4.C's Enter protocol.
func (d *Database) Enter(ctx context.Context, roomID uuid.UUID, accountID, agentID, label string) (*admission.EnterResult, error) {
	// Step 1: verify room is open. Authorization of the `read` action on the
	// room object is not checked here, and the HTTP layer does not call the
	// authz engine either; this step only checks the room's time window.
	room, err := d.Rooms.Find(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.IsClosed(time.Now()) {
		return nil, apierrors.New(apierrors.KindRoomClosed, "cannot enter a closed room")
	}

	// Step 2: idempotent -- insert-or-update the Agent row to in_progress and
	// append the agent.enter event. Reruns of this step for the same
	// (room_id, agent_id) simply reassert in_progress.
	agent := admission.Agent{
		AgentID:   agentID,
		RoomID:    roomID,
		AccountID: accountID,
		Label:     label,
		Status:    admission.StatusInProgress,
		CreatedAt: time.Now(),
	}
	if err := d.Writer.Do(d.DB, nil, func(txn *sql.Tx) error {
		if err := d.Agents.Insert(ctx, txn, &agent); err != nil {
			return err
		}
		payload, err := json.Marshal(agentEnterPayload{AgentID: agentID, AccountID: accountID})
		if err != nil {
			return err
		}
		_, err = d.Events.Insert(ctx, eventstore.NewEventInput{
			RoomID:     roomID,
			Kind:       "agent.enter",
			Data:       payload,
			OccurredAt: occurredAtNow(room),
			CreatedBy:  agentID,
		})
		return err
	}); err != nil {
		return nil, apierrors.Wrap(apierrors.KindDBQueryFailed, err)
	}

	// Step 3: call the broker contracts in parallel; both must succeed.
	eg, egCtx := errgroup.WithContext(ctx)
	req := broker.EnterRequest{RoomID: roomID, AgentID: agentID, AccountID: accountID, Label: label}
	eg.Go(func() error { return d.Broker.EnterRoom(egCtx, req) })
	eg.Go(func() error { return d.Broker.EnterBroadcastRoom(egCtx, req) })
	if err := eg.Wait(); err != nil {
		return nil, apierrors.Wrap(apierrors.KindBrokerRequestFailed, err)
	}

	// Step 4: re-verify the room is still open, then promote to ready
	// (idempotent: reruns just reassert ready).
	room, err = d.Rooms.Find(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.IsClosed(time.Now()) {
		return nil, apierrors.New(apierrors.KindRoomClosed, "room closed while entering")
	}
	if err := d.Writer.Do(d.DB, nil, func(txn *sql.Tx) error {
		return d.Agents.UpdateStatus(ctx, txn, roomID, agentID, admission.StatusReady)
	}); err != nil {
		return nil, apierrors.Wrap(apierrors.KindDBQueryFailed, err)
	}
	agent.Status = admission.StatusReady

	// Step 5: return the agent with its ban flag, looked up by
	// (account_id, classroom_id).
	banned := false
	if room.ClassroomID != nil {
		banned, err = d.bannedForClassroom(ctx, accountID, *room.ClassroomID)
		if err != nil {
			return nil, err
		}
	}
	return &admission.EnterResult{Agent: agent, Banned: banned}, nil
}

func (d *Database) bannedForClassroom(ctx context.Context, accountID string, classroomID uuid.UUID) (bool, error) {
	return d.Bans.ExistsForClassroom(ctx, nil, accountID, classroomID)
}

// IsBanned implements the ban-callback consulted by the external authz
// engine: looked up first by room, then by the room's classroom. Any error
// is the caller's responsibility to treat as fail-open; this method itself
// just surfaces it.
func (d *Database) IsBanned(ctx context.Context, accountID string, roomID uuid.UUID) (bool, error) {
	if d.BanCache != nil {
		return d.BanCache.IsBanned(ctx, accountID, roomID), nil
	}
	return d.isBanned(ctx, accountID, roomID)
}

func (d *Database) isBanned(ctx context.Context, accountID string, roomID uuid.UUID) (bool, error) {
	banned, err := d.Bans.ExistsForRoom(ctx, nil, accountID, roomID)
	if err != nil || banned {
		return banned, err
	}
	room, err := d.Rooms.Find(ctx, roomID)
	if err != nil {
		return false, err
	}
	if room.ClassroomID == nil {
		return false, nil
	}
	return d.Bans.ExistsForClassroom(ctx, nil, accountID, *room.ClassroomID)
}

// SetBan implements spec.md §4.C's agent-update transaction: insert/delete
// the ban row and append an agent_ban event atomically, then best-effort
// propagate to the external authz engine and emit the two notifications.
func (d *Database) SetBan(ctx context.Context, roomID uuid.UUID, accountID string, banned bool, reason *string) error {
	room, err := d.Rooms.Find(ctx, roomID)
	if err != nil {
		return err
	}

	err = sqlutil.WithTransaction(ctx, d.DB, func(txn *sql.Tx) error {
		if banned {
			if err := d.Bans.InsertRoomBan(ctx, txn, &admission.Ban{
				AccountID: accountID,
				RoomID:    &roomID,
				Reason:    reason,
				CreatedAt: time.Now(),
			}); err != nil {
				return err
			}
		} else {
			if err := d.Bans.DeleteRoomBan(ctx, txn, accountID, roomID); err != nil {
				return err
			}
		}

		payload, err := json.Marshal(agentBanPayload{AccountID: accountID, Banned: banned, Reason: reason})
		if err != nil {
			return err
		}
		occurredAt := occurredAtNow(room)
		ev := eventstore.Event{
			ID:                 uuid.New(),
			RoomID:             roomID,
			Kind:               "agent_ban",
			Set:                "agent_ban",
			Label:              &accountID,
			Data:               payload,
			OccurredAt:         occurredAt,
			CreatedBy:          accountID,
			CreatedAt:          time.Now(),
			OriginalOccurredAt: occurredAt,
		}
		if err := d.Events.CloneInto(ctx, txn, roomID, []eventstore.Event{ev}); err != nil {
			return err
		}

		if d.Outbox != nil {
			if err := d.Outbox.Publish(ctx, txn, notify.LabelAgentBan, notify.ScopeAudience, room.Audience, payload); err != nil {
				return err
			}
			if err := d.Outbox.Publish(ctx, txn, notify.LabelAgentUpdate, notify.ScopeRoom, roomID.String(), payload); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apierrors.Wrap(apierrors.KindDBQueryFailed, err)
	}

	if d.BanCache != nil {
		d.BanCache.Invalidate(accountID, roomID)
	}

	// Best-effort propagation to the external authz engine's cache; failure
	// is logged and not returned -- the DB row is already the source of truth.
	if d.Authz != nil {
		if err := d.Authz.Ban(ctx, accountID, authz.Object{"rooms", roomID.String(), "events"}, d.BanTTL, banned); err != nil {
			logrus.WithContext(ctx).WithError(err).Warn("admission: failed to propagate ban to authz engine")
		}
	}
	return nil
}

func (d *Database) ListBans(ctx context.Context, roomID uuid.UUID) ([]admission.Ban, error) {
	return d.Bans.ListForRoom(ctx, nil, roomID)
}

// ListAgents lists every agent that has entered roomID.
func (d *Database) ListAgents(ctx context.Context, roomID uuid.UUID) ([]admission.Agent, error) {
	return d.Agents.SelectByRoom(ctx, nil, roomID)
}
