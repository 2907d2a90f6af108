// Package postgres is the Postgres-backed implementation of the admission
// repositories (agents, bans).
package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/foxford/eventd/internal"
	"github.com/foxford/eventd/internal/admission"
	"github.com/foxford/eventd/internal/admission/storage/tables"
	"github.com/foxford/eventd/internal/sqlutil"
)

const agentsSchema = `
CREATE TABLE IF NOT EXISTS agent (
	agent_id   TEXT NOT NULL,
	room_id    UUID NOT NULL,
	account_id TEXT NOT NULL,
	label      TEXT NOT NULL,
	status     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (room_id, agent_id)
);

CREATE INDEX IF NOT EXISTS idx_agent_room_account ON agent(room_id, account_id);
`

const (
	insertAgentSQL = `
INSERT INTO agent (agent_id, room_id, account_id, label, status, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (room_id, agent_id) DO UPDATE SET status = EXCLUDED.status`

	updateAgentStatusSQL = `UPDATE agent SET status = $3 WHERE room_id = $1 AND agent_id = $2`

	selectAgentByRoomAndAgentSQL = `
SELECT agent_id, room_id, account_id, label, status, created_at
FROM agent WHERE room_id = $1 AND agent_id = $2`

	selectAgentsByRoomSQL = `
SELECT agent_id, room_id, account_id, label, status, created_at
FROM agent WHERE room_id = $1`
)

type agentsStatements struct {
	insertAgentStmt               *sql.Stmt
	updateAgentStatusStmt         *sql.Stmt
	selectAgentByRoomAndAgentStmt *sql.Stmt
	selectAgentsByRoomStmt        *sql.Stmt
}

// CreateAgentsTable creates the agent table schema.
func CreateAgentsTable(db *sql.DB) error {
	_, err := db.Exec(agentsSchema)
	return err
}

// PrepareAgentsTable prepares the Agents repository's statements.
func PrepareAgentsTable(db *sql.DB) (tables.Agents, error) {
	s := &agentsStatements{}
	return s, sqlutil.StatementList{
		{&s.insertAgentStmt, insertAgentSQL},
		{&s.updateAgentStatusStmt, updateAgentStatusSQL},
		{&s.selectAgentByRoomAndAgentStmt, selectAgentByRoomAndAgentSQL},
		{&s.selectAgentsByRoomStmt, selectAgentsByRoomSQL},
	}.Prepare(db)
}

func (s *agentsStatements) Insert(ctx context.Context, txn *sql.Tx, a *admission.Agent) error {
	stmt := sqlutil.TxStmt(txn, s.insertAgentStmt)
	_, err := stmt.ExecContext(ctx, a.AgentID, a.RoomID, a.AccountID, a.Label, a.Status, a.CreatedAt)
	return err
}

func (s *agentsStatements) UpdateStatus(ctx context.Context, txn *sql.Tx, roomID uuid.UUID, agentID string, status admission.Status) error {
	stmt := sqlutil.TxStmt(txn, s.updateAgentStatusStmt)
	_, err := stmt.ExecContext(ctx, roomID, agentID, status)
	return err
}

func (s *agentsStatements) SelectByRoomAndAgent(ctx context.Context, txn *sql.Tx, roomID uuid.UUID, agentID string) (*admission.Agent, error) {
	stmt := sqlutil.TxStmt(txn, s.selectAgentByRoomAndAgentStmt)
	row := stmt.QueryRowContext(ctx, roomID, agentID)
	a, err := scanAgent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (s *agentsStatements) SelectByRoom(ctx context.Context, txn *sql.Tx, roomID uuid.UUID) ([]admission.Agent, error) {
	stmt := sqlutil.TxStmt(txn, s.selectAgentsByRoomStmt)
	rows, err := stmt.QueryContext(ctx, roomID)
	if err != nil {
		return nil, err
	}
	defer internal.CloseAndLogIfError(ctx, rows, "Agents.SelectByRoom: rows.close() failed")

	var out []admission.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanAgent(row rowScanner) (*admission.Agent, error) {
	var a admission.Agent
	if err := row.Scan(&a.AgentID, &a.RoomID, &a.AccountID, &a.Label, &a.Status, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
