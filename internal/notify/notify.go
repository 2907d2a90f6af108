// Package notify implements the notification outbox described in spec.md
// §6 ("Notification outbox"): every notification a request handler or engine
// wants to publish is written to the `notification` table -- inside the
// caller's transaction when one is passed to Publish, otherwise as its own
// write after the business-logic change -- and the Puller drains it
// asynchronously. This decouples publication from the NATS JetStream
// connection's availability -- a down broker delays delivery, it never
// loses or rolls back the triggering write.
package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// Scope distinguishes a room-scoped notification from a tenant/audience-wide
// one (spec.md §6 "Notification topics": `rooms/{room_id}/events` vs
// `audiences/{audience}/events`).
type Scope int

const (
	ScopeRoom Scope = iota
	ScopeAudience
)

// Standard notification labels (spec.md §6).
const (
	LabelRoomCreate      = "room.create"
	LabelRoomUpdate      = "room.update"
	LabelRoomClose       = "room.close"
	LabelRoomEnter       = "room.enter"
	LabelRoomAdjust      = "room.adjust"
	LabelRoomDumpEvents  = "room.dump_events"
	LabelEventCreate     = "event.create"
	LabelEventDelete     = "event.delete"
	LabelEditionCreate   = "edition.create"
	LabelEditionCommit   = "edition.commit"
	LabelAgentUpdate     = "agent.update"
	LabelAgentBan        = "agent.ban"
)

// Notification is one row of the outbox table.
type Notification struct {
	ID        int64
	Label     string
	Topic     string
	Namespace string
	Payload   json.RawMessage
	CreatedAt time.Time
}

// body is the wire envelope described in spec.md §6: "{label, payload,
// type:'event'}".
type body struct {
	Label   string          `json:"label"`
	Payload json.RawMessage `json:"payload"`
	Type    string          `json:"type"`
}

// Outbox appends outgoing notifications to the table, inside the caller's
// transaction when one is given; it never talks to the broker directly.
type Outbox struct {
	insertStmt *sql.Stmt
}

// NewOutbox prepares the outbox's insert statement. Schema creation is the
// caller's responsibility (CreateOutboxTable), matching every other storage
// package's Create/Prepare split.
func NewOutbox(db *sql.DB) (*Outbox, error) {
	stmt, err := db.Prepare(insertNotificationSQL)
	if err != nil {
		return nil, err
	}
	return &Outbox{insertStmt: stmt}, nil
}

const outboxSchema = `
CREATE TABLE IF NOT EXISTS notification (
	id         BIGSERIAL PRIMARY KEY,
	label      TEXT NOT NULL,
	topic      TEXT NOT NULL,
	namespace  TEXT NOT NULL,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_notification_created_at ON notification(created_at);
`

const insertNotificationSQL = `
INSERT INTO notification (label, topic, namespace, payload, created_at)
VALUES ($1,$2,$3,$4,$5)`

// CreateOutboxTable creates the notification table schema.
func CreateOutboxTable(db *sql.DB) error {
	_, err := db.Exec(outboxSchema)
	return err
}

// roomTopic and audienceTopic format spec.md §6's two topic shapes.
func roomTopic(roomID string) string    { return "rooms/" + roomID + "/events" }
func audienceTopic(audience string) string { return "audiences/" + audience + "/events" }

// Publish appends a notification row within txn, or on its own when txn is
// nil. scopeID is a room_id for
// ScopeRoom or an audience for ScopeAudience.
func (o *Outbox) Publish(ctx context.Context, txn *sql.Tx, label string, scope Scope, scopeID string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	env, err := json.Marshal(body{Label: label, Payload: raw, Type: "event"})
	if err != nil {
		return err
	}

	var topic string
	switch scope {
	case ScopeRoom:
		topic = roomTopic(scopeID)
	case ScopeAudience:
		topic = audienceTopic(scopeID)
	}

	stmt := o.insertStmt
	if txn != nil {
		stmt = txn.Stmt(o.insertStmt)
	}
	_, err = stmt.ExecContext(ctx, label, topic, scopeID, env, time.Now())
	return err
}
